package pipeline

import (
	"context"
	"errors"
	"fmt"

	"interviewprep/ai/internal/llm"
	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/store"
)

// ErrorKind groups pipeline errors by how a caller should react to them.
type ErrorKind string

const (
	KindPrecondition ErrorKind = "precondition"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindModel        ErrorKind = "model"
	KindPersistence  ErrorKind = "persistence"
	KindInternal     ErrorKind = "internal"
)

// Error codes carried on error events and JSON error responses.
const (
	CodeInterviewNotFound     = "interview_not_found"
	CodeLogNotFound           = "log_not_found"
	CodeMissingJobDescription = "missing_job_description"
	CodeMissingResume         = "missing_resume"
	CodeNotCandidateTurn      = "not_candidate_turn"
	CodeEmptyCandidateAnswer  = "empty_candidate_answer"
	CodeNoDialogue            = "no_dialogue"
	CodeLoggingNotCompleted   = "logging_not_completed"
	CodeGenerationInProgress  = "generation_in_progress"
	CodeEmptyReport           = "empty_report"
	CodePrompt                = "prompt_error"
	CodePersistence           = "persistence_error"
	CodeLockUnavailable       = "lock_unavailable"
)

// Error is returned by the report pipeline and carried on error events by the streaming ones.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func preconditionError(code, message string) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Message: message}
}

// modelError converts a gateway failure. The code names the failure kind, e.g. model_timeout.
func modelError(err error) *Error {
	var failure *llm.Failure
	if errors.As(err, &failure) {
		return &Error{
			Kind:    KindModel,
			Code:    "model_" + string(failure.Kind),
			Message: fmt.Sprintf("AI service failed during %s: %s", failure.Stage, failure.Detail),
			Err:     err,
		}
	}
	return &Error{Kind: KindModel, Code: "model_" + string(llm.FailureProvider), Message: "AI service failed", Err: err}
}

// loadError converts a store read failure.
func loadError(err error, notFoundCode, what string) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Code: notFoundCode, Message: what + " not found", Err: err}
	}
	return &Error{Kind: KindPersistence, Code: CodePersistence, Message: "failed to load " + what, Err: err}
}

func commitError(err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Code: CodeInterviewNotFound, Message: "interview not found", Err: err}
	}
	return &Error{Kind: KindPersistence, Code: CodePersistence, Message: "failed to save the generated result", Err: err}
}

func lockError(err error) *Error {
	if errors.Is(err, lock.ErrBusy) {
		return &Error{
			Kind:    KindConflict,
			Code:    CodeGenerationInProgress,
			Message: "another generation task is already running for this interview",
			Err:     err,
		}
	}
	return &Error{Kind: KindInternal, Code: CodeLockUnavailable, Message: "could not acquire the generation lock", Err: err}
}

// cancelled reports whether err only reflects the caller going away.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
