package team

import "github.com/operating-strengths/assessment-api/internal/assessment"

// Team is one assessment run: a leader, a firm and an invited roster,
// locked to a question version at creation time.
type Team struct {
	ID                string `json:"id"`
	FirmName          string `json:"firm_name"`
	LeaderName        string `json:"leader_name"`
	LeaderEmail       string `json:"leader_email"`
	QuestionVersionID int64  `json:"question_version_id"`
	CreatedAt         int64  `json:"created_at"`
}

// Member is one participant. Scores and subscales stay nil until the
// member submits; submission writes them together with the completed
// flag in one atomic statement.
type Member struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	IsLeader    bool   `json:"is_leader"`
	Completed   bool   `json:"completed"`
	CompletedAt int64  `json:"completed_at,omitempty"`

	AlignmentScore      *float64                                             `json:"alignment_score,omitempty"`
	ExecutionScore      *float64                                             `json:"execution_score,omitempty"`
	AccountabilityScore *float64                                             `json:"accountability_score,omitempty"`
	Subscales           map[assessment.Dimension]map[assessment.Subscale]int `json:"subscales,omitempty"`
}

// IndividualScore is one completed member's row in a report snapshot.
type IndividualScore struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Alignment      float64 `json:"alignment"`
	Execution      float64 `json:"execution"`
	Accountability float64 `json:"accountability"`
}

// ReportScores is the frozen aggregate written when a leader generates
// (or regenerates) the team report.
type ReportScores struct {
	GeneratedAt      string                                               `json:"generated_at"`
	CompletionCount  int                                                  `json:"completion_count"`
	TotalCount       int                                                  `json:"total_count"`
	TeamAverages     map[assessment.Dimension]float64                     `json:"team_averages"`
	SubscaleAverages map[assessment.Dimension]map[assessment.Subscale]int `json:"subscale_averages"`
	IndividualScores []IndividualScore                                    `json:"individual_scores"`
}

// Report pairs a snapshot with its team and access-token hash.
type Report struct {
	TeamID          string       `json:"team_id"`
	ReportTokenHash string       `json:"-"`
	CompletionCount int          `json:"completion_count"`
	TotalCount      int          `json:"total_count"`
	Scores          ReportScores `json:"scores"`
	GeneratedAt     int64        `json:"generated_at"`
}

// QuestionVersion is a row of the versioned catalog registry.
type QuestionVersion struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
}
