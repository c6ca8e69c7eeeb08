package models

import (
	"errors"
	"fmt"
)

// Outcome is a pipeline result that may move an interview's status.
type Outcome string

const (
	OutcomeQuestionsGenerated Outcome = "questions_generated"
	OutcomeQuestionsEmpty     Outcome = "questions_empty"
	OutcomeLoggingCompleted   Outcome = "logging_completed"
	OutcomeReportGenerated    Outcome = "report_generated"
)

var ErrIllegalTransition = errors.New("illegal interview status transition")

// QuestionOutcome maps the number of extracted questions to its outcome.
func QuestionOutcome(count int) Outcome {
	if count > 0 {
		return OutcomeQuestionsGenerated
	}
	return OutcomeQuestionsEmpty
}

// NextStatus is the interview state machine. It is the only place that decides a new status;
// the store refuses to write one that does not match the derived rows it is committing.
//
// Question generation may be re-run from any state. Logging completion requires questions.
// A report needs logging to be complete and may then be regenerated any number of times.
func NextStatus(current InterviewStatus, outcome Outcome) (InterviewStatus, error) {
	if !ValidStatuses[current] {
		return current, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, current)
	}

	switch outcome {
	case OutcomeQuestionsGenerated:
		return StatusQuestionsGenerated, nil
	case OutcomeQuestionsEmpty:
		return StatusQuestionsFailed, nil
	case OutcomeLoggingCompleted:
		if current == StatusQuestionsGenerated || current == StatusLoggingCompleted {
			return StatusLoggingCompleted, nil
		}
		return current, fmt.Errorf("%w: cannot complete logging from %s", ErrIllegalTransition, current)
	case OutcomeReportGenerated:
		if current == StatusLoggingCompleted || current == StatusReportGenerated {
			return StatusReportGenerated, nil
		}
		return current, fmt.Errorf("%w: cannot generate a report from %s", ErrIllegalTransition, current)
	default:
		return current, fmt.Errorf("%w: unknown outcome %q", ErrIllegalTransition, outcome)
	}
}
