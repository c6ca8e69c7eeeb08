package models

// raw text returned by an LLM provider
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

// additional information about one provider call
type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// returned by the report endpoint
type ReportResponse struct {
	Report           *Report          `json:"report"`
	Status           InterviewStatus  `json:"status"`
	CapabilityScores CapabilityScores `json:"capability_scores,omitempty"`
	ScoresExtracted  bool             `json:"scores_extracted"`
}

// returned by the questions listing endpoint
type QuestionsResponse struct {
	InterviewID uint            `json:"interview_id"`
	Status      InterviewStatus `json:"status"`
	Questions   []Question      `json:"questions"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
