package team

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/operating-strengths/assessment-api/internal/assessment"
)

// Sentinel errors the service and handlers branch on.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("assessment already completed")
	ErrDuplicateMember  = errors.New("member with this email already exists")
)

// Submission is the full output of one scored assessment, persisted as
// a single atomic write together with the completed flag.
type Submission struct {
	MemberID  string
	Responses map[int]int
	Scores    map[assessment.Dimension]assessment.DimensionResult
}

// Store is the persistence boundary for teams, members, catalogs and
// report snapshots.
type Store interface {
	ActiveVersion(ctx context.Context) (QuestionVersion, error)
	QuestionsForVersion(ctx context.Context, versionID int64) ([]assessment.Question, error)
	InsertVersion(ctx context.Context, name string, questions []assessment.Question, activate bool) (QuestionVersion, error)

	CreateTeam(ctx context.Context, t Team, adminTokenHash string, members []Member, tokenHashes []string) error
	TeamByAdminTokenHash(ctx context.Context, hash string) (Team, error)
	TeamByID(ctx context.Context, id string) (Team, error)

	AddMember(ctx context.Context, m Member, tokenHash string) error
	MemberByTokenHash(ctx context.Context, hash string) (Member, error)
	MemberByID(ctx context.Context, teamID, memberID string) (Member, error)
	ListMembers(ctx context.Context, teamID string) ([]Member, error)
	SetDisplayName(ctx context.Context, memberID, name string) error
	SubmitAssessment(ctx context.Context, sub Submission) error

	UpsertReport(ctx context.Context, r Report) error
	ReportByTokenHash(ctx context.Context, hash string) (Report, Team, error)
	ReportByTeamID(ctx context.Context, teamID string) (Report, error)

	LogEmail(ctx context.Context, teamID, memberID, emailType, recipient string, success bool, messageID, sendErr string) error
}

// SQLStore implements Store over database/sql; works against both the
// sqlite and postgres schemas in internal/db.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) ActiveVersion(ctx context.Context) (QuestionVersion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_active, created_at FROM question_versions
		 WHERE is_active = TRUE ORDER BY created_at DESC LIMIT 1`)
	var v QuestionVersion
	if err := row.Scan(&v.ID, &v.Name, &v.IsActive, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuestionVersion{}, fmt.Errorf("active question version: %w", ErrNotFound)
		}
		return QuestionVersion{}, err
	}
	return v, nil
}

func (s *SQLStore) QuestionsForVersion(ctx context.Context, versionID int64) ([]assessment.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_order, question_text, dimension, subscale, is_reversed
		 FROM questions WHERE version_id = $1 ORDER BY question_order ASC`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []assessment.Question
	for rows.Next() {
		var q assessment.Question
		var dim, sub string
		if err := rows.Scan(&q.Order, &q.Text, &dim, &sub, &q.IsReversed); err != nil {
			return nil, err
		}
		if q.Dimension, err = assessment.ParseDimension(dim); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.Order, err)
		}
		if q.Subscale, err = assessment.ParseSubscale(sub); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.Order, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) InsertVersion(ctx context.Context, name string, questions []assessment.Question, activate bool) (QuestionVersion, error) {
	if err := assessment.ValidateCatalog(questions); err != nil {
		return QuestionVersion{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return QuestionVersion{}, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO question_versions (name, is_active, created_at) VALUES ($1, $2, $3) RETURNING id`,
		name, activate, now).Scan(&id)
	if err != nil {
		return QuestionVersion{}, err
	}
	if activate {
		if _, err := tx.ExecContext(ctx,
			`UPDATE question_versions SET is_active = FALSE WHERE id <> $1`, id); err != nil {
			return QuestionVersion{}, err
		}
	}
	for _, q := range questions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (version_id, question_order, question_text, dimension, subscale, is_reversed)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, q.Order, q.Text, string(q.Dimension), string(q.Subscale), q.IsReversed); err != nil {
			return QuestionVersion{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return QuestionVersion{}, err
	}
	return QuestionVersion{ID: id, Name: name, IsActive: activate, CreatedAt: now}, nil
}

func (s *SQLStore) CreateTeam(ctx context.Context, t Team, adminTokenHash string, members []Member, tokenHashes []string) error {
	if len(members) != len(tokenHashes) {
		return errors.New("members and token hashes must align")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams (id, firm_name, leader_name, leader_email, question_version_id, admin_token_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.FirmName, t.LeaderName, t.LeaderEmail, t.QuestionVersionID, adminTokenHash, t.CreatedAt); err != nil {
		return err
	}
	for i, m := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (id, team_id, email, display_name, is_leader, assessment_token_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, t.ID, m.Email, nullString(m.DisplayName), m.IsLeader, tokenHashes[i], t.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) TeamByAdminTokenHash(ctx context.Context, hash string) (Team, error) {
	return s.scanTeam(s.db.QueryRowContext(ctx,
		`SELECT id, firm_name, leader_name, leader_email, question_version_id, created_at
		 FROM teams WHERE admin_token_hash = $1`, hash))
}

func (s *SQLStore) TeamByID(ctx context.Context, id string) (Team, error) {
	return s.scanTeam(s.db.QueryRowContext(ctx,
		`SELECT id, firm_name, leader_name, leader_email, question_version_id, created_at
		 FROM teams WHERE id = $1`, id))
}

func (s *SQLStore) scanTeam(row *sql.Row) (Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.FirmName, &t.LeaderName, &t.LeaderEmail, &t.QuestionVersionID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) AddMember(ctx context.Context, m Member, tokenHash string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM team_members WHERE team_id = $1 AND email = $2`, m.TeamID, m.Email).Scan(&exists)
	if err == nil {
		return ErrDuplicateMember
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO team_members (id, team_id, email, display_name, is_leader, assessment_token_hash, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
		m.ID, m.TeamID, m.Email, nullString(m.DisplayName), tokenHash, time.Now().Unix())
	return err
}

const memberCols = `id, team_id, email, display_name, is_leader, completed, completed_at,
	alignment_score, execution_score, accountability_score, subscales_json`

func (s *SQLStore) MemberByTokenHash(ctx context.Context, hash string) (Member, error) {
	return scanMember(s.db.QueryRowContext(ctx,
		`SELECT `+memberCols+` FROM team_members WHERE assessment_token_hash = $1`, hash))
}

func (s *SQLStore) MemberByID(ctx context.Context, teamID, memberID string) (Member, error) {
	return scanMember(s.db.QueryRowContext(ctx,
		`SELECT `+memberCols+` FROM team_members WHERE team_id = $1 AND id = $2`, teamID, memberID))
}

func (s *SQLStore) ListMembers(ctx context.Context, teamID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberCols+` FROM team_members WHERE team_id = $1 ORDER BY created_at ASC, email ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMemberRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetDisplayName(ctx context.Context, memberID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE team_members SET display_name = $1 WHERE id = $2`, name, memberID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SubmitAssessment writes scores, subscales, raw responses and the
// completed flag in one guarded statement. The completed = FALSE guard
// makes a double submit report ErrAlreadyCompleted instead of silently
// overwriting the first result.
func (s *SQLStore) SubmitAssessment(ctx context.Context, sub Submission) error {
	subscales := map[assessment.Dimension]map[assessment.Subscale]int{}
	for d, r := range sub.Scores {
		subscales[d] = map[assessment.Subscale]int{
			assessment.SubPersonalDiscipline:  r.Pd,
			assessment.SubCollectiveSystems:   r.Cs,
			assessment.SubObservableBehaviors: r.Ob,
		}
	}
	subJSON, err := json.Marshal(subscales)
	if err != nil {
		return err
	}
	respJSON, err := json.Marshal(sub.Responses)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE team_members
		 SET completed = TRUE, completed_at = $1,
		     alignment_score = $2, execution_score = $3, accountability_score = $4,
		     subscales_json = $5, responses_json = $6
		 WHERE id = $7 AND completed = FALSE`,
		time.Now().Unix(),
		sub.Scores[assessment.DimAlignment].Strength,
		sub.Scores[assessment.DimExecution].Strength,
		sub.Scores[assessment.DimAccountability].Strength,
		string(subJSON), string(respJSON), sub.MemberID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either an unknown member or a second submit; disambiguate.
		var completed bool
		err := s.db.QueryRowContext(ctx,
			`SELECT completed FROM team_members WHERE id = $1`, sub.MemberID).Scan(&completed)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadyCompleted
	}
	return nil
}

func (s *SQLStore) UpsertReport(ctx context.Context, r Report) error {
	scoresJSON, err := json.Marshal(r.Scores)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO team_reports (team_id, report_token_hash, completion_count, total_count, scores_json, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (team_id) DO UPDATE SET
		   report_token_hash = EXCLUDED.report_token_hash,
		   completion_count = EXCLUDED.completion_count,
		   total_count = EXCLUDED.total_count,
		   scores_json = EXCLUDED.scores_json,
		   generated_at = EXCLUDED.generated_at`,
		r.TeamID, r.ReportTokenHash, r.CompletionCount, r.TotalCount, string(scoresJSON), r.GeneratedAt)
	return err
}

func (s *SQLStore) ReportByTokenHash(ctx context.Context, hash string) (Report, Team, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.team_id, r.completion_count, r.total_count, r.scores_json, r.generated_at,
		        t.id, t.firm_name, t.leader_name, t.leader_email, t.question_version_id, t.created_at
		 FROM team_reports r JOIN teams t ON t.id = r.team_id
		 WHERE r.report_token_hash = $1`, hash)
	var (
		r          Report
		t          Team
		scoresJSON string
	)
	err := row.Scan(&r.TeamID, &r.CompletionCount, &r.TotalCount, &scoresJSON, &r.GeneratedAt,
		&t.ID, &t.FirmName, &t.LeaderName, &t.LeaderEmail, &t.QuestionVersionID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, Team{}, ErrNotFound
	}
	if err != nil {
		return Report{}, Team{}, err
	}
	if err := json.Unmarshal([]byte(scoresJSON), &r.Scores); err != nil {
		return Report{}, Team{}, err
	}
	return r, t, nil
}

func (s *SQLStore) ReportByTeamID(ctx context.Context, teamID string) (Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT team_id, report_token_hash, completion_count, total_count, scores_json, generated_at
		 FROM team_reports WHERE team_id = $1`, teamID)
	var (
		r          Report
		scoresJSON string
	)
	err := row.Scan(&r.TeamID, &r.ReportTokenHash, &r.CompletionCount, &r.TotalCount, &scoresJSON, &r.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if err := json.Unmarshal([]byte(scoresJSON), &r.Scores); err != nil {
		return Report{}, err
	}
	return r, nil
}

func (s *SQLStore) LogEmail(ctx context.Context, teamID, memberID, emailType, recipient string, success bool, messageID, sendErr string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_log (team_id, member_id, email_type, recipient, success, provider_message_id, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		teamID, nullString(memberID), emailType, recipient, success, nullString(messageID), nullString(sendErr), time.Now().Unix())
	return err
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row *sql.Row) (Member, error) {
	m, err := scanMemberFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	return m, err
}

func scanMemberRows(rows *sql.Rows) (Member, error) {
	return scanMemberFrom(rows)
}

func scanMemberFrom(sc rowScanner) (Member, error) {
	var (
		m           Member
		displayName sql.NullString
		completedAt sql.NullInt64
		align       sql.NullFloat64
		exec        sql.NullFloat64
		acct        sql.NullFloat64
		subJSON     sql.NullString
	)
	if err := sc.Scan(&m.ID, &m.TeamID, &m.Email, &displayName, &m.IsLeader, &m.Completed, &completedAt,
		&align, &exec, &acct, &subJSON); err != nil {
		return Member{}, err
	}
	m.DisplayName = displayName.String
	m.CompletedAt = completedAt.Int64
	if align.Valid {
		m.AlignmentScore = &align.Float64
	}
	if exec.Valid {
		m.ExecutionScore = &exec.Float64
	}
	if acct.Valid {
		m.AccountabilityScore = &acct.Float64
	}
	if subJSON.Valid && subJSON.String != "" {
		if err := json.Unmarshal([]byte(subJSON.String), &m.Subscales); err != nil {
			return Member{}, err
		}
	}
	return m, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
