package team_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operating-strengths/assessment-api/internal/assessment"
	"github.com/operating-strengths/assessment-api/internal/mailer"
	"github.com/operating-strengths/assessment-api/internal/realtime"
	"github.com/operating-strengths/assessment-api/internal/seed"
	"github.com/operating-strengths/assessment-api/internal/team"
	"github.com/operating-strengths/assessment-api/internal/token"
)

const (
	testTokenSecret   = "token-secret-for-tests"
	testShuffleSecret = "shuffle-secret-for-tests"
	testPublicURL     = "https://assess.example.com"
)

/* ---------------- in-memory fakes satisfying team.Store and mailer.Mailer ---------------- */

type fakeStore struct {
	mu       sync.Mutex
	versions map[int64]team.QuestionVersion
	catalogs map[int64][]assessment.Question
	teams    map[string]team.Team
	adminIdx map[string]string // admin token hash -> team id
	members  map[string]team.Member
	tokenIdx map[string]string // assessment token hash -> member id
	reports  map[string]team.Report
	emails   []string // "<type>:<recipient>"
	nextVer  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		versions: map[int64]team.QuestionVersion{},
		catalogs: map[int64][]assessment.Question{},
		teams:    map[string]team.Team{},
		adminIdx: map[string]string{},
		members:  map[string]team.Member{},
		tokenIdx: map[string]string{},
		reports:  map[string]team.Report{},
	}
}

func (s *fakeStore) ActiveVersion(context.Context) (team.QuestionVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.IsActive {
			return v, nil
		}
	}
	return team.QuestionVersion{}, team.ErrNotFound
}

func (s *fakeStore) QuestionsForVersion(_ context.Context, versionID int64) ([]assessment.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, ok := s.catalogs[versionID]
	if !ok {
		return nil, team.ErrNotFound
	}
	return qs, nil
}

func (s *fakeStore) InsertVersion(_ context.Context, name string, questions []assessment.Question, activate bool) (team.QuestionVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextVer++
	v := team.QuestionVersion{ID: s.nextVer, Name: name, IsActive: activate, CreatedAt: time.Now().Unix()}
	if activate {
		for id, old := range s.versions {
			old.IsActive = false
			s.versions[id] = old
		}
	}
	s.versions[v.ID] = v
	s.catalogs[v.ID] = questions
	return v, nil
}

func (s *fakeStore) CreateTeam(_ context.Context, t team.Team, adminTokenHash string, members []team.Member, tokenHashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
	s.adminIdx[adminTokenHash] = t.ID
	for i, m := range members {
		s.members[m.ID] = m
		s.tokenIdx[tokenHashes[i]] = m.ID
	}
	return nil
}

func (s *fakeStore) TeamByAdminTokenHash(_ context.Context, hash string) (team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.adminIdx[hash]
	if !ok {
		return team.Team{}, team.ErrNotFound
	}
	return s.teams[id], nil
}

func (s *fakeStore) TeamByID(_ context.Context, id string) (team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return team.Team{}, team.ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) AddMember(_ context.Context, m team.Member, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.TeamID == m.TeamID && existing.Email == m.Email {
			return team.ErrDuplicateMember
		}
	}
	s.members[m.ID] = m
	s.tokenIdx[tokenHash] = m.ID
	return nil
}

func (s *fakeStore) MemberByTokenHash(_ context.Context, hash string) (team.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokenIdx[hash]
	if !ok {
		return team.Member{}, team.ErrNotFound
	}
	return s.members[id], nil
}

func (s *fakeStore) MemberByID(_ context.Context, teamID, memberID string) (team.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok || m.TeamID != teamID {
		return team.Member{}, team.ErrNotFound
	}
	return m, nil
}

func (s *fakeStore) ListMembers(_ context.Context, teamID string) ([]team.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []team.Member
	for _, m := range s.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) SetDisplayName(_ context.Context, memberID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return team.ErrNotFound
	}
	m.DisplayName = name
	s.members[memberID] = m
	return nil
}

func (s *fakeStore) SubmitAssessment(_ context.Context, sub team.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[sub.MemberID]
	if !ok {
		return team.ErrNotFound
	}
	if m.Completed {
		return team.ErrAlreadyCompleted
	}
	align := sub.Scores[assessment.DimAlignment].Strength
	exec := sub.Scores[assessment.DimExecution].Strength
	acct := sub.Scores[assessment.DimAccountability].Strength
	m.Completed = true
	m.CompletedAt = time.Now().Unix()
	m.AlignmentScore = &align
	m.ExecutionScore = &exec
	m.AccountabilityScore = &acct
	m.Subscales = map[assessment.Dimension]map[assessment.Subscale]int{}
	for d, r := range sub.Scores {
		m.Subscales[d] = map[assessment.Subscale]int{
			assessment.SubPersonalDiscipline:  r.Pd,
			assessment.SubCollectiveSystems:   r.Cs,
			assessment.SubObservableBehaviors: r.Ob,
		}
	}
	s.members[sub.MemberID] = m
	return nil
}

func (s *fakeStore) UpsertReport(_ context.Context, r team.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.TeamID] = r
	return nil
}

func (s *fakeStore) ReportByTokenHash(_ context.Context, hash string) (team.Report, team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ReportTokenHash == hash {
			return r, s.teams[r.TeamID], nil
		}
	}
	return team.Report{}, team.Team{}, team.ErrNotFound
}

func (s *fakeStore) ReportByTeamID(_ context.Context, teamID string) (team.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[teamID]
	if !ok {
		return team.Report{}, team.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) LogEmail(_ context.Context, _, _, emailType, recipient string, _ bool, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, emailType+":"+recipient)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	ch   chan mailer.Message
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{ch: make(chan mailer.Message, 32)}
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) mailer.Result {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.ch <- msg
	return mailer.Result{Success: true, MessageID: "fake"}
}

func (m *fakeMailer) waitFor(t *testing.T, n int) []mailer.Message {
	t.Helper()
	out := make([]mailer.Message, 0, n)
	for len(out) < n {
		select {
		case msg := <-m.ch:
			out = append(out, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d emails, got %d", n, len(out))
		}
	}
	return out
}

/* ---------------- fixture ---------------- */

type fixture struct {
	svc   *team.Service
	store *fakeStore
	mail  *fakeMailer
	hub   *realtime.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	_, err := store.InsertVersion(context.Background(), "v1", seed.Questions(), true)
	require.NoError(t, err)

	mail := newFakeMailer()
	hub := realtime.NewHub()
	svc := team.NewService(store, mail, hub, realtime.NewTokenService("stream-secret"),
		zap.NewNop().Sugar(),
		team.Secrets{Randomization: testShuffleSecret, Token: testTokenSecret},
		testPublicURL)
	return &fixture{svc: svc, store: store, mail: mail, hub: hub}
}

func (f *fixture) createTeam(t *testing.T, participants ...string) team.CreateTeamOutput {
	t.Helper()
	out, err := f.svc.CreateTeam(context.Background(), team.CreateTeamInput{
		LeaderName:        "Dana Leader",
		LeaderEmail:       "dana@firm.example",
		FirmName:          "Acme Advisory",
		ParticipantEmails: participants,
	})
	require.NoError(t, err)
	return out
}

func rawTokenFromLink(link, prefix string) string {
	return strings.TrimPrefix(link, testPublicURL+prefix)
}

func uniformResponses(value int) map[int]int {
	out := make(map[int]int, 36)
	for i := 1; i <= 36; i++ {
		out[i] = value
	}
	return out
}

/* ---------------- tests ---------------- */

func TestCreateTeam(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.CreateTeam(context.Background(), team.CreateTeamInput{
		LeaderName:  "Dana Leader",
		LeaderEmail: "Dana@Firm.example",
		FirmName:    "Acme Advisory",
		ParticipantEmails: []string{
			"alice@firm.example",
			"ALICE@firm.example ", // duplicate after normalization
			"bob@firm.example",
			"dana@firm.example", // leader listed again
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.ParticipantCount)
	assert.True(t, strings.HasPrefix(out.DashboardURL, testPublicURL+"/d/"))
	assert.True(t, strings.HasPrefix(out.LeaderAssessmentURL, testPublicURL+"/a/"))

	members, err := f.store.ListMembers(context.Background(), out.TeamID)
	require.NoError(t, err)
	assert.Len(t, members, 3) // leader + 2 participants

	// Leader welcome plus two invites, all in the background.
	msgs := f.mail.waitFor(t, 3)
	recipients := map[string]bool{}
	welcomes := 0
	for _, m := range msgs {
		recipients[m.To] = true
		if strings.Contains(m.Subject, "Ready") {
			welcomes++
		}
	}
	assert.Equal(t, 1, welcomes)
	assert.True(t, recipients["dana@firm.example"])
	assert.True(t, recipients["alice@firm.example"])
	assert.True(t, recipients["bob@firm.example"])
}

func TestCreateTeamValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   team.CreateTeamInput
	}{
		{"short leader name", team.CreateTeamInput{LeaderName: "D", LeaderEmail: "d@x.example", FirmName: "Firm", ParticipantEmails: []string{"a@x.example"}}},
		{"bad leader email", team.CreateTeamInput{LeaderName: "Dana", LeaderEmail: "not-an-email", FirmName: "Firm", ParticipantEmails: []string{"a@x.example"}}},
		{"bad participant email", team.CreateTeamInput{LeaderName: "Dana", LeaderEmail: "d@x.example", FirmName: "Firm", ParticipantEmails: []string{"nope"}}},
		{"no participants", team.CreateTeamInput{LeaderName: "Dana", LeaderEmail: "d@x.example", FirmName: "Firm"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateTeam(ctx, tc.in)
			var ierr *team.InputError
			assert.ErrorAs(t, err, &ierr)
		})
	}

	t.Run("too many participants", func(t *testing.T) {
		emails := make([]string, 100)
		for i := range emails {
			emails[i] = fmt.Sprintf("p%d@x.example", i)
		}
		_, err := f.svc.CreateTeam(ctx, team.CreateTeamInput{
			LeaderName: "Dana", LeaderEmail: "d@x.example", FirmName: "Firm", ParticipantEmails: emails,
		})
		var ierr *team.InputError
		assert.ErrorAs(t, err, &ierr)
	})
}

func TestQuestionsForToken(t *testing.T) {
	f := newFixture(t)
	out := f.createTeam(t, "alice@firm.example")
	raw := rawTokenFromLink(out.LeaderAssessmentURL, "/a/")

	view, err := f.svc.QuestionsForToken(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, view.Questions, 36)
	assert.False(t, view.IsCompleted)

	// Positions are the 1-indexed display order; ids remain canonical.
	ids := map[int]bool{}
	for i, q := range view.Questions {
		assert.Equal(t, i+1, q.Position)
		ids[q.ID] = true
	}
	assert.Len(t, ids, 36)

	// Stable across repeated fetches.
	again, err := f.svc.QuestionsForToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, view.Questions, again.Questions)

	_, err = f.svc.QuestionsForToken(context.Background(), "bogus-token")
	assert.ErrorIs(t, err, team.ErrNotFound)
}

func TestSubmitAndRealtimeEvent(t *testing.T) {
	f := newFixture(t)
	out := f.createTeam(t, "alice@firm.example")
	raw := rawTokenFromLink(out.LeaderAssessmentURL, "/a/")

	events, cancel := f.hub.Subscribe(out.TeamID)
	defer cancel()

	// The seed catalog has one reverse-coded item per cell, so uniform 3s
	// (self-inverse under 6-v) give a clean expected value everywhere.
	result, err := f.svc.Submit(context.Background(), raw, uniformResponses(3))
	require.NoError(t, err)
	assert.Equal(t, 5.5, result.Alignment)
	assert.Equal(t, 5.5, result.Execution)
	assert.Equal(t, 5.5, result.Accountability)

	select {
	case e := <-events:
		assert.Equal(t, realtime.EventMemberCompleted, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no realtime event published")
	}

	// Double submit is a conflict, not an overwrite.
	_, err = f.svc.Submit(context.Background(), raw, uniformResponses(3))
	assert.ErrorIs(t, err, team.ErrAlreadyCompleted)
}

func TestSubmitValidationPropagates(t *testing.T) {
	f := newFixture(t)
	out := f.createTeam(t, "alice@firm.example")
	raw := rawTokenFromLink(out.LeaderAssessmentURL, "/a/")

	resp := uniformResponses(3)
	resp[5] = 6
	_, err := f.svc.Submit(context.Background(), raw, resp)
	var verr *assessment.ValidationError
	require.ErrorAs(t, err, &verr)

	// Nothing was persisted.
	view, err := f.svc.QuestionsForToken(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, view.IsCompleted)
}

func TestGenerateAndFetchReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.createTeam(t, "alice@firm.example")

	leaderRaw := rawTokenFromLink(out.LeaderAssessmentURL, "/a/")
	adminRaw := rawTokenFromLink(out.DashboardURL, "/d/")

	// No completions yet.
	_, err := f.svc.GenerateReport(ctx, adminRaw)
	assert.ErrorIs(t, err, team.ErrNoCompletions)

	_, err = f.svc.Submit(ctx, leaderRaw, uniformResponses(3))
	require.NoError(t, err)

	// Find alice's token through the deterministic derivation.
	dash, err := f.svc.Dashboard(ctx, adminRaw)
	require.NoError(t, err)
	var aliceID string
	for _, m := range dash.Members {
		if m.Email == "alice@firm.example" {
			aliceID = m.ID
		}
	}
	require.NotEmpty(t, aliceID)
	aliceRaw := token.Derive(token.PurposeAssessment, aliceID, testTokenSecret)
	_, err = f.svc.Submit(ctx, aliceRaw, uniformResponses(5))
	require.NoError(t, err)

	rep, err := f.svc.GenerateReport(ctx, adminRaw)
	require.NoError(t, err)
	reportRaw := rawTokenFromLink(rep.ReportURL, "/r/")

	view, err := f.svc.ReportByToken(ctx, reportRaw)
	require.NoError(t, err)
	assert.Equal(t, "Acme Advisory", view.FirmName)
	assert.Equal(t, 2, view.Scores.CompletionCount)
	assert.Equal(t, 2, view.Scores.TotalCount)
	require.Len(t, view.Scores.IndividualScores, 2)

	// Leader submitted uniform 3s (strength 5.5). Alice submitted 5s; one
	// reversed item per subscale drags each cell to 75 -> strength 7.8.
	// Team average: (5.5 + 7.8) / 2 = 6.65 -> 6.7 at one decimal.
	for _, d := range assessment.Dimensions() {
		assert.InDelta(t, 6.7, view.Scores.TeamAverages[d], 1e-9, "dimension %s", d)
	}

	// Regeneration keeps the same deterministic report token.
	rep2, err := f.svc.GenerateReport(ctx, adminRaw)
	require.NoError(t, err)
	assert.Equal(t, rep.ReportURL, rep2.ReportURL)
}

func TestAddMemberAndResend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.createTeam(t, "alice@firm.example")
	adminRaw := rawTokenFromLink(out.DashboardURL, "/d/")

	m, err := f.svc.AddMember(ctx, adminRaw, "Carol@Firm.example")
	require.NoError(t, err)
	assert.Equal(t, "carol@firm.example", m.Email)

	_, err = f.svc.AddMember(ctx, adminRaw, "carol@firm.example")
	assert.ErrorIs(t, err, team.ErrDuplicateMember)

	require.NoError(t, f.svc.ResendInvite(ctx, adminRaw, m.ID))

	_, err = f.svc.AddMember(ctx, "wrong-admin-token", "dave@firm.example")
	assert.ErrorIs(t, err, team.ErrNotFound)
}

func TestSetDisplayName(t *testing.T) {
	f := newFixture(t)
	out := f.createTeam(t, "alice@firm.example")
	raw := rawTokenFromLink(out.LeaderAssessmentURL, "/a/")

	require.NoError(t, f.svc.SetDisplayName(context.Background(), raw, "  Dana L.  "))

	view, err := f.svc.QuestionsForToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Dana L.", view.MemberName)

	err = f.svc.SetDisplayName(context.Background(), raw, "x")
	var ierr *team.InputError
	assert.ErrorAs(t, err, &ierr)
}

func TestRealtimeTokenIssuance(t *testing.T) {
	f := newFixture(t)
	out := f.createTeam(t, "alice@firm.example")
	adminRaw := rawTokenFromLink(out.DashboardURL, "/d/")

	tok, err := f.svc.RealtimeToken(context.Background(), adminRaw)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.Equal(t, 3600, tok.ExpiresIn)

	_, err = f.svc.RealtimeToken(context.Background(), "bad-token")
	assert.ErrorIs(t, err, team.ErrNotFound)
}
