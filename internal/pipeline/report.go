package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewprep/ai/internal/events"
	"interviewprep/ai/internal/extract"
	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/metrics"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/store"
)

// GenerateReport writes (or rewrites) the interview's assessment report from its recorded
// dialogue. Capability scores are optional: when the model output carries none, the report is
// still saved and the interview's scores are cleared.
func (o *Orchestrator) GenerateReport(ctx context.Context, interviewID uint) (*models.ReportResponse, error) {
	r := newRun(ReportFlow, uuid.NewString(), interviewID, o.logger)
	fail := func(err *Error) (*models.ReportResponse, error) {
		if cancelled(ctx, err.Err) {
			r.finish(StateFailed, "cancelled")
			return nil, err.Err
		}
		r.fail(err)
		return nil, err
	}

	release, err := o.locker.TryLock(ctx, lock.Key(interviewID))
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			metrics.ObserveLockBusy(ReportFlow.Name)
		}
		return fail(lockError(err))
	}
	defer release()

	interview, err := o.store.GetInterview(ctx, interviewID)
	if err != nil {
		return fail(loadError(err, CodeInterviewNotFound, "interview"))
	}

	next, err := models.NextStatus(interview.Status, models.OutcomeReportGenerated)
	if err != nil {
		return fail(&Error{Kind: KindPrecondition, Code: CodeLoggingNotCompleted, Message: "Dialogue logging is not complete for this interview. Cannot generate report.", Err: err})
	}

	dialogue := transcript(interview)
	if dialogue == "" {
		return fail(preconditionError(CodeNoDialogue, "No dialogue recorded for this interview. Cannot generate report."))
	}

	r.advance(StateGenerating)
	text, stageErr := o.callStage(ctx, models.StageGenerateReport, map[string]string{
		"analyzed_jd":       o.jobContext(interview),
		"structured_resume": o.resumeContext(interview),
		"conversation_log":  dialogue,
	})
	if stageErr != nil {
		return fail(stageErr)
	}
	if strings.TrimSpace(text) == "" {
		return fail(&Error{Kind: KindModel, Code: CodeEmptyReport, Message: "AI service generated an empty report."})
	}

	r.advance(StateFinalizing)
	scores, found := extract.Scores(text, models.CapabilityField)
	metrics.ObserveExtracted(ReportFlow.Name, len(scores))

	result := store.ReportResult{Text: text, SourceDialogue: dialogue}
	if found {
		result.Scores = scores
	}
	report, err := o.store.CommitReport(ctx, interviewID, result, next)
	if err != nil {
		return fail(commitError(err))
	}

	r.finish(StateSucceeded, string(events.StatusSuccess), zap.Bool("scores_extracted", found))
	return &models.ReportResponse{
		Report:           report,
		Status:           next,
		CapabilityScores: result.Scores,
		ScoresExtracted:  found,
	}, nil
}

// transcript renders the dialogue in order with speaker labels. Interviews recorded before
// per-turn logs existed fall back to their free-text conversation log.
func transcript(interview *models.Interview) string {
	var b strings.Builder
	for _, l := range interview.Logs {
		text := strings.TrimSpace(l.FullDialogueText)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if l.SpeakerRole == models.RoleCandidate && l.QuestionTextSnapshot != nil && strings.TrimSpace(*l.QuestionTextSnapshot) != "" {
			fmt.Fprintf(&b, "(answering: %s)\n", strings.TrimSpace(*l.QuestionTextSnapshot))
		}
		fmt.Fprintf(&b, "%s: %s", speakerLabel(l.SpeakerRole), text)
	}
	if b.Len() > 0 {
		return b.String()
	}

	if interview.ConversationLog != nil {
		return strings.TrimSpace(*interview.ConversationLog)
	}
	return ""
}

func speakerLabel(role models.SpeakerRole) string {
	switch role {
	case models.RoleInterviewer:
		return "Interviewer"
	case models.RoleCandidate:
		return "Candidate"
	default:
		return "System"
	}
}
