// Package pipeline sequences the model stages that turn an interview's job description,
// résumé and dialogue into questions, follow-ups and reports.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/store"
)

// Gateway makes one bounded model call.
type Gateway interface {
	Call(ctx context.Context, stage models.Stage, prompt string) (string, error)
}

// Prompts renders the prompt of a stage.
type Prompts interface {
	BuildPrompt(stage models.Stage, vars map[string]string) (string, error)
}

// Store is the part of the persistence boundary the pipelines use.
type Store interface {
	GetInterview(ctx context.Context, id uint) (*models.Interview, error)
	GetLog(ctx context.Context, interviewID, logID uint) (*models.InterviewLog, error)
	CommitGenerationResult(ctx context.Context, interviewID uint, items []string, newStatus models.InterviewStatus) error
	CommitReport(ctx context.Context, interviewID uint, result store.ReportResult, newStatus models.InterviewStatus) (*models.Report, error)
}

// Orchestrator runs the generation pipelines. One task is one sequential flow; nothing inside a
// task runs in parallel.
type Orchestrator struct {
	gateway Gateway
	prompts Prompts
	store   Store
	locker  lock.Locker
	cache   *StageCache
	logger  *zap.Logger
}

// New wires an orchestrator. A nil locker disables the per-interview guard, a nil cache
// disables stage output reuse.
func New(gateway Gateway, prompts Prompts, st Store, locker lock.Locker, cache *StageCache, logger *zap.Logger) *Orchestrator {
	if locker == nil {
		locker = lock.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gateway: gateway,
		prompts: prompts,
		store:   st,
		locker:  locker,
		cache:   cache,
		logger:  logger,
	}
}

// callStage renders the stage prompt and calls the model.
func (o *Orchestrator) callStage(ctx context.Context, stage models.Stage, vars map[string]string) (string, *Error) {
	prompt, err := o.prompts.BuildPrompt(stage, vars)
	if err != nil {
		return "", &Error{Kind: KindInternal, Code: CodePrompt, Message: "failed to build the " + string(stage) + " prompt", Err: err}
	}

	text, err := o.gateway.Call(ctx, stage, prompt)
	if err != nil {
		return "", modelError(err)
	}
	return text, nil
}

func (o *Orchestrator) remember(stage models.Stage, input, output string) {
	if o.cache != nil && strings.TrimSpace(output) != "" {
		o.cache.Set(stage, input, output)
	}
}

func (o *Orchestrator) recall(stage models.Stage, input string) (string, bool) {
	if o.cache == nil {
		return "", false
	}
	return o.cache.Get(stage, input)
}

// Placeholders used when an input a prompt needs is missing. Only the report and follow-up
// prompts tolerate missing context.
const (
	jdUnavailable     = "Job description not available."
	resumeUnavailable = "Candidate resume not available."
)

// jobContext returns the best available job description for prompts that do not run the
// analysis stage themselves: a cached analysis, the stored analysis, then the raw text.
func (o *Orchestrator) jobContext(interview *models.Interview) string {
	if interview.Job == nil || strings.TrimSpace(interview.Job.Description) == "" {
		return jdUnavailable
	}
	if analysed, ok := o.recall(models.StageAnalyzeJD, interview.Job.Description); ok {
		return analysed
	}
	if a := interview.Job.AnalyzedDescription; a != nil && strings.TrimSpace(*a) != "" {
		return *a
	}
	return interview.Job.Description
}

// resumeContext returns a cached parsed résumé or the raw résumé text.
func (o *Orchestrator) resumeContext(interview *models.Interview) string {
	if interview.Candidate == nil || strings.TrimSpace(interview.Candidate.ResumeText) == "" {
		return resumeUnavailable
	}
	if parsed, ok := o.recall(models.StageParseResume, interview.Candidate.ResumeText); ok {
		return parsed
	}
	return interview.Candidate.ResumeText
}
