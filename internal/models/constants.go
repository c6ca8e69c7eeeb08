package models

// Stage names one LLM call in a pipeline. Prompt templates are keyed by it.
type Stage string

const (
	StageAnalyzeJD         Stage = "analyze_jd"
	StageParseResume       Stage = "parse_resume"
	StageGenerateQuestions Stage = "generate_questions"
	StageGenerateFollowup  Stage = "generate_followup"
	StageGenerateReport    Stage = "generate_report"
)

// AllStages lists every stage that must have a prompt template.
func AllStages() []Stage {
	return []Stage{
		StageAnalyzeJD,
		StageParseResume,
		StageGenerateQuestions,
		StageGenerateFollowup,
		StageGenerateReport,
	}
}

// InterviewStatus is the persisted lifecycle state of an interview.
type InterviewStatus string

const (
	StatusPendingQuestions   InterviewStatus = "PENDING_QUESTIONS"
	StatusQuestionsGenerated InterviewStatus = "QUESTIONS_GENERATED"
	StatusQuestionsFailed    InterviewStatus = "QUESTIONS_FAILED"
	StatusLoggingCompleted   InterviewStatus = "LOGGING_COMPLETED"
	StatusReportGenerated    InterviewStatus = "REPORT_GENERATED"
)

// contains all known interview statuses
var ValidStatuses = map[InterviewStatus]bool{
	StatusPendingQuestions:   true,
	StatusQuestionsGenerated: true,
	StatusQuestionsFailed:    true,
	StatusLoggingCompleted:   true,
	StatusReportGenerated:    true,
}

// SpeakerRole identifies who produced one logged dialogue turn.
type SpeakerRole string

const (
	RoleInterviewer SpeakerRole = "INTERVIEWER"
	RoleCandidate   SpeakerRole = "CANDIDATE"
	RoleSystem      SpeakerRole = "SYSTEM"
)

// contains all valid speaker roles
var ValidSpeakerRoles = map[SpeakerRole]bool{
	RoleInterviewer: true,
	RoleCandidate:   true,
	RoleSystem:      true,
}

const (
	// QuestionsField is the array field the question prompt asks the model for.
	QuestionsField = "questions"
	// FollowupField is the array field the follow-up prompt asks the model for.
	FollowupField = "followup_questions"
	// CapabilityField wraps the score map at the end of a generated report.
	CapabilityField = "CANDIDATE_CAPABILITY_ASSESSMENT_JSON"
)

const (
	MinCapabilityScore = 1
	MaxCapabilityScore = 5
)
