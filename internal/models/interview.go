package models

import (
	"time"
)

// Job is owned by the job CRUD surface; the pipeline only reads it.
type Job struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Title               string    `gorm:"size:100;not null" json:"title"`
	Description         string    `gorm:"type:text;not null" json:"description"`
	AnalyzedDescription *string   `gorm:"type:text" json:"analyzed_description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Candidate is owned by the candidate CRUD surface; the pipeline only reads it.
type Candidate struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	ResumeText string    `gorm:"type:text;not null" json:"resume_text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CapabilityScores maps an evaluation dimension to an integer score 1-5.
type CapabilityScores map[string]int

// Interview is the aggregate root. Questions, logs and the report live and die with it.
type Interview struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	JobID           uint             `gorm:"not null;index" json:"job_id"`
	Job             *Job             `json:"job,omitempty"`
	CandidateID     uint             `gorm:"not null;index" json:"candidate_id"`
	Candidate       *Candidate       `json:"candidate,omitempty"`
	Status          InterviewStatus  `gorm:"type:varchar(32);not null;default:PENDING_QUESTIONS;index" json:"status"`
	ScheduledAt     *time.Time       `json:"scheduled_at,omitempty"`
	ConversationLog *string          `gorm:"type:text" json:"conversation_log,omitempty"`
	RadarData       CapabilityScores `gorm:"serializer:json" json:"radar_data,omitempty"`
	Questions       []Question       `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Logs            []InterviewLog   `gorm:"constraint:OnDelete:CASCADE" json:"logs,omitempty"`
	Report          *Report          `gorm:"constraint:OnDelete:CASCADE" json:"report,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Question is one generated interview question. OrderNum is 1-based and unique per interview.
type Question struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	InterviewID  uint   `gorm:"not null;uniqueIndex:idx_question_order" json:"interview_id"`
	QuestionText string `gorm:"type:text;not null" json:"question_text"`
	OrderNum     int    `gorm:"not null;uniqueIndex:idx_question_order" json:"order_num"`
}

// InterviewLog is one recorded dialogue turn.
type InterviewLog struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	InterviewID uint        `gorm:"not null;index" json:"interview_id"`
	QuestionID  *uint       `json:"question_id,omitempty"`
	Question    *Question   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	SpeakerRole SpeakerRole `gorm:"type:varchar(16);not null" json:"speaker_role"`
	// snapshot of the question text at recording time, stable if the Question row changes
	QuestionTextSnapshot *string   `gorm:"type:text" json:"question_text_snapshot,omitempty"`
	FullDialogueText     string    `gorm:"type:text;not null" json:"full_dialogue_text"`
	OrderNum             int       `gorm:"index" json:"order_num"`
	CreatedAt            time.Time `json:"created_at"`
}

// Report is the single evaluation artifact of an interview. Regeneration overwrites it.
type Report struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InterviewID    uint      `gorm:"not null;uniqueIndex" json:"interview_id"`
	GeneratedText  string    `gorm:"type:text;not null" json:"generated_text"`
	SourceDialogue *string   `gorm:"type:text" json:"source_dialogue,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AllModels returns every table owned by this service, for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{&Job{}, &Candidate{}, &Interview{}, &Question{}, &InterviewLog{}, &Report{}}
}
