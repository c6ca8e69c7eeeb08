package models

import (
	"interviewprep/ai/internal/utils"
)

// LogCreateRequest appends one dialogue turn to an interview.
type LogCreateRequest struct {
	SpeakerRole          string  `json:"speaker_role"`
	FullDialogueText     string  `json:"full_dialogue_text"`
	QuestionID           *uint   `json:"question_id,omitempty"`
	QuestionTextSnapshot *string `json:"question_text_snapshot,omitempty"`
	OrderNum             *int    `json:"order_num,omitempty"`
}

// implements the Validator interface
func (r *LogCreateRequest) Validate() error {
	r.SpeakerRole = utils.NormalizeSpeakerRole(r.SpeakerRole)
	if r.SpeakerRole == "" {
		// logs without an explicit speaker are system messages
		r.SpeakerRole = string(RoleSystem)
	}
	if !ValidSpeakerRoles[SpeakerRole(r.SpeakerRole)] {
		return &ErrorResponse{
			Code:    "invalid_speaker_role",
			Message: "speaker_role must be one of: INTERVIEWER, CANDIDATE, SYSTEM",
		}
	}

	r.FullDialogueText = utils.NormalizeDialogue(r.FullDialogueText)
	if r.FullDialogueText == "" {
		return &ErrorResponse{
			Code:    "missing_dialogue_text",
			Message: "full_dialogue_text is required",
		}
	}

	if r.OrderNum != nil && *r.OrderNum < 1 {
		return &ErrorResponse{
			Code:    "invalid_order_num",
			Message: "order_num must be a positive integer",
		}
	}

	return nil
}

// ToLog converts the request into an unsaved log row for the interview.
func (r *LogCreateRequest) ToLog(interviewID uint) *InterviewLog {
	log := &InterviewLog{
		InterviewID:          interviewID,
		QuestionID:           r.QuestionID,
		SpeakerRole:          SpeakerRole(r.SpeakerRole),
		QuestionTextSnapshot: r.QuestionTextSnapshot,
		FullDialogueText:     r.FullDialogueText,
	}
	if r.OrderNum != nil {
		log.OrderNum = *r.OrderNum
	}
	return log
}
