package mailer

import "fmt"

// Email types recorded in the email log.
const (
	TypeLeaderWelcome     = "leader_welcome"
	TypeParticipantInvite = "participant_invite"
	TypePersonalResults   = "personal_results"
	TypeReportReady       = "report_ready"
)

type LeaderWelcomeParams struct {
	LeaderName     string
	FirmName       string
	MemberCount    int
	DashboardLink  string
	AssessmentLink string
}

func BuildLeaderWelcome(p LeaderWelcomeParams) Message {
	text := fmt.Sprintf(`%s,

Your Operating Strengths Assessment for %s has been created.
%d team members have been invited.

YOUR DASHBOARD (track progress, generate report):
%s

YOUR PERSONAL ASSESSMENT (complete this too):
%s

What to expect: Once your team completes their assessments, you'll see the collective averages and each participant's dimension scores by name.

-- The Operating Strengths Assessment`,
		p.LeaderName, p.FirmName, p.MemberCount, p.DashboardLink, p.AssessmentLink)

	return Message{Subject: "Your Operating Strengths Assessment is Ready", Text: text}
}

type ParticipantInviteParams struct {
	LeaderName     string
	FirmName       string
	AssessmentLink string
}

func BuildParticipantInvite(p ParticipantInviteParams) Message {
	text := fmt.Sprintf(`You're invited!

%s has asked you to complete a brief assessment for %s.

It measures the firm's collective operating strengths across multiple dimensions. The results help distinguish between systems issues and development gaps, so the firm can address the right problems.

Answer 36 questions/prompts.

TAKE THE ASSESSMENT:
%s

Privacy: Your individual answers stay confidential. Leadership sees firm-wide patterns and aggregate scores, not who said what. Please answer honestly.

-- The Operating Strengths Assessment`,
		p.LeaderName, p.FirmName, p.AssessmentLink)

	return Message{Subject: fmt.Sprintf("%s invited you to the Operating Strengths Assessment", p.LeaderName), Text: text}
}

type PersonalResultsParams struct {
	DisplayName    string
	Alignment      float64
	Execution      float64
	Accountability float64
}

func BuildPersonalResults(p PersonalResultsParams) Message {
	text := fmt.Sprintf(`%s,

Thank you for completing the Operating Strengths Assessment.

YOUR SCORES (1.0 - 10.0 scale):

Alignment:      %.1f
Execution:      %.1f
Accountability: %.1f

Higher scores reflect strength.

-- The Operating Strengths Assessment`,
		p.DisplayName, p.Alignment, p.Execution, p.Accountability)

	return Message{Subject: "Your Operating Strengths Results", Text: text}
}

type ReportReadyParams struct {
	LeaderName      string
	FirmName        string
	CompletionCount int
	TotalCount      int
	ReportLink      string
}

func BuildReportReady(p ReportReadyParams) Message {
	text := fmt.Sprintf(`%s,

Your Operating Strengths Report for %s is ready.

Based on %d of %d responses.

VIEW REPORT:
%s

-- The Operating Strengths Assessment`,
		p.LeaderName, p.FirmName, p.CompletionCount, p.TotalCount, p.ReportLink)

	return Message{Subject: fmt.Sprintf("Operating Strengths Report Ready for %s", p.FirmName), Text: text}
}
