package team

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/operating-strengths/assessment-api/internal/assessment"
	"github.com/operating-strengths/assessment-api/internal/mailer"
	"github.com/operating-strengths/assessment-api/internal/realtime"
	"github.com/operating-strengths/assessment-api/internal/token"
)

const maxParticipants = 99 // plus leader = 100 total

// InputError is a client-correctable request problem (HTTP 400-class).
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

var ErrNoCompletions = errors.New("no completed assessments yet")

// Secrets carries the process-wide immutable secret material the
// service needs. Established at startup, read-only afterward.
type Secrets struct {
	Randomization string
	Token         string
}

type Service struct {
	store   Store
	mail    mailer.Mailer
	hub     *realtime.Hub
	streams *realtime.TokenService
	log     *zap.SugaredLogger

	secrets   Secrets
	publicURL string
}

func NewService(store Store, mail mailer.Mailer, hub *realtime.Hub, streams *realtime.TokenService, log *zap.SugaredLogger, secrets Secrets, publicURL string) *Service {
	return &Service{
		store:     store,
		mail:      mail,
		hub:       hub,
		streams:   streams,
		log:       log,
		secrets:   secrets,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// --- team creation ---

type CreateTeamInput struct {
	LeaderName        string   `json:"leaderName"`
	LeaderEmail       string   `json:"leaderEmail"`
	FirmName          string   `json:"firmName"`
	ParticipantEmails []string `json:"participantEmails"`
}

type CreateTeamOutput struct {
	TeamID              string `json:"teamId"`
	DashboardURL        string `json:"dashboardUrl"`
	LeaderAssessmentURL string `json:"leaderAssessmentUrl"`
	ParticipantCount    int    `json:"participantCount"`
}

func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput) (CreateTeamOutput, error) {
	leaderName := strings.TrimSpace(in.LeaderName)
	firmName := strings.TrimSpace(in.FirmName)
	if len(leaderName) < 2 {
		return CreateTeamOutput{}, &InputError{Msg: "name must be at least 2 characters"}
	}
	if len(firmName) < 2 {
		return CreateTeamOutput{}, &InputError{Msg: "firm name must be at least 2 characters"}
	}
	leaderEmail, err := normalizeEmail(in.LeaderEmail)
	if err != nil {
		return CreateTeamOutput{}, err
	}

	// Dedupe participants, drop the leader if listed, preserve order.
	seen := map[string]bool{leaderEmail: true}
	participants := make([]string, 0, len(in.ParticipantEmails))
	for _, raw := range in.ParticipantEmails {
		email, err := normalizeEmail(raw)
		if err != nil {
			return CreateTeamOutput{}, err
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		participants = append(participants, email)
	}
	if len(participants) == 0 {
		return CreateTeamOutput{}, &InputError{Msg: "at least one participant required"}
	}
	if len(participants) > maxParticipants {
		return CreateTeamOutput{}, &InputError{Msg: fmt.Sprintf("maximum %d participants (plus leader = %d total)", maxParticipants, maxParticipants+1)}
	}

	version, err := s.store.ActiveVersion(ctx)
	if err != nil {
		return CreateTeamOutput{}, fmt.Errorf("resolve active question version: %w", err)
	}

	t := Team{
		ID:                uuid.NewString(),
		FirmName:          firmName,
		LeaderName:        leaderName,
		LeaderEmail:       leaderEmail,
		QuestionVersionID: version.ID,
		CreatedAt:         time.Now().Unix(),
	}
	adminRaw := token.Derive(token.PurposeDashboard, t.ID, s.secrets.Token)

	members := make([]Member, 0, len(participants)+1)
	rawTokens := make([]string, 0, len(participants)+1)
	hashes := make([]string, 0, len(participants)+1)

	addMember := func(email string, isLeader bool) {
		m := Member{ID: uuid.NewString(), TeamID: t.ID, Email: email, IsLeader: isLeader}
		raw := token.Derive(token.PurposeAssessment, m.ID, s.secrets.Token)
		members = append(members, m)
		rawTokens = append(rawTokens, raw)
		hashes = append(hashes, token.Hash(raw))
	}
	addMember(leaderEmail, true)
	for _, email := range participants {
		addMember(email, false)
	}

	if err := s.store.CreateTeam(ctx, t, token.Hash(adminRaw), members, hashes); err != nil {
		return CreateTeamOutput{}, fmt.Errorf("create team: %w", err)
	}

	s.sendTeamEmails(t, members, rawTokens, adminRaw)

	return CreateTeamOutput{
		TeamID:              t.ID,
		DashboardURL:        s.dashboardLink(adminRaw),
		LeaderAssessmentURL: s.assessmentLink(rawTokens[0]),
		ParticipantCount:    len(participants),
	}, nil
}

// sendTeamEmails fans invites out in the background; delivery failures
// are logged, never surfaced to the creating request.
func (s *Service) sendTeamEmails(t Team, members []Member, rawTokens []string, adminRaw string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(4)

		for i, m := range members {
			m, raw := m, rawTokens[i]
			g.Go(func() error {
				var msg mailer.Message
				emailType := mailer.TypeParticipantInvite
				if m.IsLeader {
					emailType = mailer.TypeLeaderWelcome
					msg = mailer.BuildLeaderWelcome(mailer.LeaderWelcomeParams{
						LeaderName:     t.LeaderName,
						FirmName:       t.FirmName,
						MemberCount:    len(members) - 1,
						DashboardLink:  s.dashboardLink(adminRaw),
						AssessmentLink: s.assessmentLink(raw),
					})
				} else {
					msg = mailer.BuildParticipantInvite(mailer.ParticipantInviteParams{
						LeaderName:     t.LeaderName,
						FirmName:       t.FirmName,
						AssessmentLink: s.assessmentLink(raw),
					})
				}
				msg.To = m.Email
				s.deliver(ctx, t.ID, m.ID, emailType, msg)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// deliver sends one message and records the outcome in the email log.
func (s *Service) deliver(ctx context.Context, teamID, memberID, emailType string, msg mailer.Message) {
	res := s.mail.Send(ctx, msg)
	if !res.Success {
		s.log.Errorw("email delivery failed", "type", emailType, "to", msg.To, "error", res.Err)
	}
	if err := s.store.LogEmail(ctx, teamID, memberID, emailType, msg.To, res.Success, res.MessageID, res.Err); err != nil {
		s.log.Errorw("email log write failed", "type", emailType, "error", err)
	}
}

// --- question fetch ---

// ClientQuestion is the only question shape that leaves the server:
// canonical id, text, dimension and display position. Reverse-coding
// flags and subscales are withheld here, not merely hidden by the UI.
type ClientQuestion struct {
	ID        int                  `json:"id"`
	Text      string               `json:"text"`
	Dimension assessment.Dimension `json:"dimension"`
	Position  int                  `json:"position"`
}

type QuestionsView struct {
	Questions   []ClientQuestion `json:"questions"`
	MemberID    string           `json:"memberId"`
	MemberName  string           `json:"memberName,omitempty"`
	IsCompleted bool             `json:"isCompleted"`
}

func (s *Service) QuestionsForToken(ctx context.Context, rawToken string) (QuestionsView, error) {
	m, t, err := s.memberForToken(ctx, rawToken)
	if err != nil {
		return QuestionsView{}, err
	}

	questions, err := s.store.QuestionsForVersion(ctx, t.QuestionVersionID)
	if err != nil {
		return QuestionsView{}, err
	}
	if err := assessment.ValidateCatalog(questions); err != nil {
		return QuestionsView{}, &assessment.ConfigurationError{Msg: fmt.Sprintf("question version %d invalid: %v", t.QuestionVersionID, err)}
	}

	shuffled, err := assessment.ShuffledOrder(m.ID, s.secrets.Randomization, questions)
	if err != nil {
		return QuestionsView{}, err
	}

	view := QuestionsView{
		Questions:   make([]ClientQuestion, len(shuffled)),
		MemberID:    m.ID,
		MemberName:  m.DisplayName,
		IsCompleted: m.Completed,
	}
	for i, q := range shuffled {
		view.Questions[i] = ClientQuestion{
			ID:        q.Order,
			Text:      q.Text,
			Dimension: q.Dimension,
			Position:  i + 1,
		}
	}
	return view, nil
}

func (s *Service) SetDisplayName(ctx context.Context, rawToken, name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return &InputError{Msg: "name must be at least 2 characters"}
	}
	m, _, err := s.memberForToken(ctx, rawToken)
	if err != nil {
		return err
	}
	return s.store.SetDisplayName(ctx, m.ID, name)
}

// --- submission ---

type SubmitResult struct {
	Alignment      float64 `json:"alignment"`
	Execution      float64 `json:"execution"`
	Accountability float64 `json:"accountability"`
}

func (s *Service) Submit(ctx context.Context, rawToken string, responses map[int]int) (SubmitResult, error) {
	m, t, err := s.memberForToken(ctx, rawToken)
	if err != nil {
		return SubmitResult{}, err
	}
	if m.Completed {
		return SubmitResult{}, ErrAlreadyCompleted
	}

	questions, err := s.store.QuestionsForVersion(ctx, t.QuestionVersionID)
	if err != nil {
		return SubmitResult{}, err
	}

	scores, err := assessment.ScoreAll(responses, questions)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := s.store.SubmitAssessment(ctx, Submission{
		MemberID:  m.ID,
		Responses: responses,
		Scores:    scores,
	}); err != nil {
		return SubmitResult{}, err
	}

	s.hub.Publish(realtime.Event{
		Type:   realtime.EventMemberCompleted,
		TeamID: t.ID,
		Data:   map[string]string{"memberId": m.ID, "email": m.Email},
	})

	result := SubmitResult{
		Alignment:      scores[assessment.DimAlignment].Strength,
		Execution:      scores[assessment.DimExecution].Strength,
		Accountability: scores[assessment.DimAccountability].Strength,
	}

	displayName := m.DisplayName
	if displayName == "" {
		displayName = "Team Member"
	}
	msg := mailer.BuildPersonalResults(mailer.PersonalResultsParams{
		DisplayName:    displayName,
		Alignment:      result.Alignment,
		Execution:      result.Execution,
		Accountability: result.Accountability,
	})
	msg.To = m.Email
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.deliver(ctx, t.ID, m.ID, mailer.TypePersonalResults, msg)
	}()

	return result, nil
}

// --- dashboard ---

type DashboardView struct {
	Team    Team     `json:"team"`
	Members []Member `json:"members"`
}

func (s *Service) Dashboard(ctx context.Context, adminToken string) (DashboardView, error) {
	t, err := s.store.TeamByAdminTokenHash(ctx, token.Hash(adminToken))
	if err != nil {
		return DashboardView{}, err
	}
	members, err := s.store.ListMembers(ctx, t.ID)
	if err != nil {
		return DashboardView{}, err
	}
	return DashboardView{Team: t, Members: members}, nil
}

func (s *Service) AddMember(ctx context.Context, adminToken, rawEmail string) (Member, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return Member{}, err
	}
	t, err := s.store.TeamByAdminTokenHash(ctx, token.Hash(adminToken))
	if err != nil {
		return Member{}, err
	}

	m := Member{ID: uuid.NewString(), TeamID: t.ID, Email: email}
	raw := token.Derive(token.PurposeAssessment, m.ID, s.secrets.Token)
	if err := s.store.AddMember(ctx, m, token.Hash(raw)); err != nil {
		return Member{}, err
	}

	s.hub.Publish(realtime.Event{
		Type:   realtime.EventMemberAdded,
		TeamID: t.ID,
		Data:   map[string]string{"memberId": m.ID, "email": email},
	})

	msg := mailer.BuildParticipantInvite(mailer.ParticipantInviteParams{
		LeaderName:     t.LeaderName,
		FirmName:       t.FirmName,
		AssessmentLink: s.assessmentLink(raw),
	})
	msg.To = email
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.deliver(ctx, t.ID, m.ID, mailer.TypeParticipantInvite, msg)
	}()

	return m, nil
}

func (s *Service) ResendInvite(ctx context.Context, adminToken, memberID string) error {
	t, err := s.store.TeamByAdminTokenHash(ctx, token.Hash(adminToken))
	if err != nil {
		return err
	}
	m, err := s.store.MemberByID(ctx, t.ID, memberID)
	if err != nil {
		return err
	}
	if m.Completed {
		return &InputError{Msg: "member has already completed the assessment"}
	}

	// Tokens are deterministic, so the original link can be re-derived.
	raw := token.Derive(token.PurposeAssessment, m.ID, s.secrets.Token)
	msg := mailer.BuildParticipantInvite(mailer.ParticipantInviteParams{
		LeaderName:     t.LeaderName,
		FirmName:       t.FirmName,
		AssessmentLink: s.assessmentLink(raw),
	})
	msg.To = m.Email
	s.deliver(ctx, t.ID, m.ID, mailer.TypeParticipantInvite, msg)
	return nil
}

// --- reports ---

type GenerateReportOutput struct {
	ReportURL string `json:"reportUrl"`
}

func (s *Service) GenerateReport(ctx context.Context, adminToken string) (GenerateReportOutput, error) {
	t, err := s.store.TeamByAdminTokenHash(ctx, token.Hash(adminToken))
	if err != nil {
		return GenerateReportOutput{}, err
	}
	members, err := s.store.ListMembers(ctx, t.ID)
	if err != nil {
		return GenerateReportOutput{}, err
	}

	var completed []Member
	for _, m := range members {
		if m.Completed && m.AlignmentScore != nil && m.ExecutionScore != nil && m.AccountabilityScore != nil && m.Subscales != nil {
			completed = append(completed, m)
		}
	}
	if len(completed) == 0 {
		return GenerateReportOutput{}, ErrNoCompletions
	}

	scores := aggregate(completed, len(members))

	reportRaw := token.Derive(token.PurposeReport, t.ID, s.secrets.Token)
	report := Report{
		TeamID:          t.ID,
		ReportTokenHash: token.Hash(reportRaw),
		CompletionCount: scores.CompletionCount,
		TotalCount:      scores.TotalCount,
		Scores:          scores,
		GeneratedAt:     time.Now().Unix(),
	}
	if err := s.store.UpsertReport(ctx, report); err != nil {
		return GenerateReportOutput{}, err
	}

	s.hub.Publish(realtime.Event{Type: realtime.EventReportGenerated, TeamID: t.ID})

	reportURL := s.reportLink(reportRaw)
	msg := mailer.BuildReportReady(mailer.ReportReadyParams{
		LeaderName:      t.LeaderName,
		FirmName:        t.FirmName,
		CompletionCount: scores.CompletionCount,
		TotalCount:      scores.TotalCount,
		ReportLink:      reportURL,
	})
	msg.To = t.LeaderEmail
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.deliver(ctx, t.ID, "", mailer.TypeReportReady, msg)
	}()

	return GenerateReportOutput{ReportURL: reportURL}, nil
}

type ReportView struct {
	FirmName string       `json:"firmName"`
	Scores   ReportScores `json:"scoresJson"`
}

func (s *Service) ReportByToken(ctx context.Context, rawToken string) (ReportView, error) {
	r, t, err := s.store.ReportByTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		return ReportView{}, err
	}
	return ReportView{FirmName: t.FirmName, Scores: r.Scores}, nil
}

// ReportForAdmin returns the latest snapshot for export surfaces.
func (s *Service) ReportForAdmin(ctx context.Context, adminToken string) (Report, Team, error) {
	t, err := s.store.TeamByAdminTokenHash(ctx, token.Hash(adminToken))
	if err != nil {
		return Report{}, Team{}, err
	}
	r, err := s.store.ReportByTeamID(ctx, t.ID)
	if err != nil {
		return Report{}, Team{}, err
	}
	return r, t, nil
}

// --- realtime ---

type RealtimeTokenOutput struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

func (s *Service) RealtimeToken(ctx context.Context, adminToken string) (RealtimeTokenOutput, error) {
	t, err := s.store.TeamByAdminTokenHash(ctx, token.Hash(adminToken))
	if err != nil {
		return RealtimeTokenOutput{}, err
	}
	tok, err := s.streams.IssueChannelToken(t.ID)
	if err != nil {
		return RealtimeTokenOutput{}, err
	}
	return RealtimeTokenOutput{Token: tok, ExpiresIn: s.streams.TTL()}, nil
}

// --- catalog authoring ---

func (s *Service) CreateVersion(ctx context.Context, name string, questions []assessment.Question, activate bool) (QuestionVersion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return QuestionVersion{}, &InputError{Msg: "version name required"}
	}
	if err := assessment.ValidateCatalog(questions); err != nil {
		return QuestionVersion{}, &InputError{Msg: err.Error()}
	}
	return s.store.InsertVersion(ctx, name, questions, activate)
}

// --- helpers ---

func (s *Service) memberForToken(ctx context.Context, rawToken string) (Member, Team, error) {
	if rawToken == "" {
		return Member{}, Team{}, ErrNotFound
	}
	m, err := s.store.MemberByTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		return Member{}, Team{}, err
	}
	t, err := s.store.TeamByID(ctx, m.TeamID)
	if err != nil {
		return Member{}, Team{}, err
	}
	return m, t, nil
}

func (s *Service) assessmentLink(raw string) string { return s.publicURL + "/a/" + raw }
func (s *Service) dashboardLink(raw string) string  { return s.publicURL + "/d/" + raw }
func (s *Service) reportLink(raw string) string     { return s.publicURL + "/r/" + raw }

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return "", &InputError{Msg: fmt.Sprintf("invalid email format: %q", raw)}
	}
	return email, nil
}

// aggregate folds completed members into the report snapshot: team
// strength averages at one decimal, subscale averages as integers.
func aggregate(completed []Member, total int) ReportScores {
	meanOf := func(pick func(Member) float64) float64 {
		sum := 0.0
		for _, m := range completed {
			sum += pick(m)
		}
		return sum / float64(len(completed))
	}
	round1 := func(v float64) float64 { return math.Round(v*10) / 10 }

	teamAverages := map[assessment.Dimension]float64{
		assessment.DimAlignment:      round1(meanOf(func(m Member) float64 { return *m.AlignmentScore })),
		assessment.DimExecution:      round1(meanOf(func(m Member) float64 { return *m.ExecutionScore })),
		assessment.DimAccountability: round1(meanOf(func(m Member) float64 { return *m.AccountabilityScore })),
	}

	subscaleAverages := map[assessment.Dimension]map[assessment.Subscale]int{}
	for _, d := range assessment.Dimensions() {
		subscaleAverages[d] = map[assessment.Subscale]int{}
		for _, sub := range assessment.Subscales() {
			sum := 0
			for _, m := range completed {
				sum += m.Subscales[d][sub]
			}
			subscaleAverages[d][sub] = int(math.Round(float64(sum) / float64(len(completed))))
		}
	}

	individuals := make([]IndividualScore, len(completed))
	for i, m := range completed {
		name := m.DisplayName
		if name == "" {
			name = "(Name pending)"
		}
		individuals[i] = IndividualScore{
			Name:           name,
			Email:          m.Email,
			Alignment:      *m.AlignmentScore,
			Execution:      *m.ExecutionScore,
			Accountability: *m.AccountabilityScore,
		}
	}
	sort.SliceStable(individuals, func(i, j int) bool { return individuals[i].Email < individuals[j].Email })

	return ReportScores{
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		CompletionCount:  len(completed),
		TotalCount:       total,
		TeamAverages:     teamAverages,
		SubscaleAverages: subscaleAverages,
		IndividualScores: individuals,
	}
}
