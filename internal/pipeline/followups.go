package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"interviewprep/ai/internal/events"
	"interviewprep/ai/internal/extract"
	"interviewprep/ai/internal/metrics"
	"interviewprep/ai/internal/models"
)

const followupsTaskName = "generate_followups"

// StreamFollowups suggests follow-up questions for one candidate answer. Suggestions are only
// streamed; the interview's question set and status are left alone.
func (o *Orchestrator) StreamFollowups(ctx context.Context, interviewID, logID uint) <-chan events.Event {
	return events.Go(ctx, followupsTaskName, func(task *events.Task) {
		o.runFollowups(ctx, task, interviewID, logID)
	})
}

func (o *Orchestrator) runFollowups(ctx context.Context, task *events.Task, interviewID, logID uint) {
	r := newRun(FollowupFlow, task.ID, interviewID, o.logger.With(zap.Uint("log_id", logID)))
	fail := func(err *Error) {
		if cancelled(ctx, err.Err) {
			r.finish(StateFailed, "cancelled")
			return
		}
		r.fail(err)
		task.Fail(err.Code, err.Message)
	}
	skip := func(err *Error) {
		r.finish(StateSkipped, "skipped", zap.String("reason", err.Code))
		task.Fail(err.Code, err.Message)
	}

	task.Start(fmt.Sprintf("Starting follow-up generation for log %d.", logID))

	interview, err := o.store.GetInterview(ctx, interviewID)
	if err != nil {
		fail(loadError(err, CodeInterviewNotFound, "interview"))
		return
	}
	entry, err := o.store.GetLog(ctx, interviewID, logID)
	if err != nil {
		fail(loadError(err, CodeLogNotFound, "interview log"))
		return
	}

	if entry.SpeakerRole != models.RoleCandidate {
		skip(preconditionError(CodeNotCandidateTurn, "Follow-up questions are only generated for candidate answers."))
		return
	}
	answer := strings.TrimSpace(entry.FullDialogueText)
	if answer == "" {
		skip(preconditionError(CodeEmptyCandidateAnswer, "The candidate answer is empty."))
		return
	}

	r.advance(StateGenerating)
	task.Thought("Reviewing the question and the candidate answer...")
	generated, stageErr := o.callStage(ctx, models.StageGenerateFollowup, map[string]string{
		"analyzed_jd":       o.jobContext(interview),
		"structured_resume": o.resumeContext(interview),
		"last_question":     lastQuestion(interview, entry),
		"candidate_answer":  answer,
	})
	if stageErr != nil {
		fail(stageErr)
		return
	}

	r.advance(StateFinalizing)
	task.Thought("Extracting follow-up questions from the model output...")
	followups := extract.List(generated, models.FollowupField)
	metrics.ObserveExtracted(FollowupFlow.Name, len(followups))

	final := make([]events.FinalQuestion, len(followups))
	for i, text := range followups {
		task.Generated(text, i+1, len(followups))
		final[i] = events.FinalQuestion{Text: text, Order: i + 1}
	}

	if len(followups) == 0 {
		r.finish(StateSucceeded, string(events.StatusCompletedNoResults))
		task.End(events.StatusCompletedNoResults, "The model returned no usable follow-up questions.", final)
		return
	}
	r.finish(StateSucceeded, string(events.StatusSuccess), zap.Int("followups", len(followups)))
	task.End(events.StatusSuccess, fmt.Sprintf("Generated %d follow-up questions.", len(followups)), final)
}

// lastQuestion finds the question an answer responds to: the snapshot taken when the answer
// was logged, the linked question row, then the nearest interviewer turn before the answer.
func lastQuestion(interview *models.Interview, entry *models.InterviewLog) string {
	if entry.QuestionTextSnapshot != nil && strings.TrimSpace(*entry.QuestionTextSnapshot) != "" {
		return *entry.QuestionTextSnapshot
	}
	if entry.Question != nil && strings.TrimSpace(entry.Question.QuestionText) != "" {
		return entry.Question.QuestionText
	}

	question := ""
	for _, l := range interview.Logs {
		if l.ID == entry.ID {
			break
		}
		if l.SpeakerRole == models.RoleInterviewer && strings.TrimSpace(l.FullDialogueText) != "" {
			question = l.FullDialogueText
		}
	}
	if question == "" {
		return "Question not recorded."
	}
	return question
}
