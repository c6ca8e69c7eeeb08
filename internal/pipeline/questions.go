package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"interviewprep/ai/internal/events"
	"interviewprep/ai/internal/extract"
	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/metrics"
	"interviewprep/ai/internal/models"
)

const questionsTaskName = "generate_questions"

// StreamQuestions runs analyse JD, parse résumé and generate questions for the interview and
// returns the task's events. On success the extracted questions replace the interview's
// question set and its status follows the state machine. On any failure nothing is written.
func (o *Orchestrator) StreamQuestions(ctx context.Context, interviewID uint) <-chan events.Event {
	return events.Go(ctx, questionsTaskName, func(task *events.Task) {
		o.runQuestions(ctx, task, interviewID)
	})
}

func (o *Orchestrator) runQuestions(ctx context.Context, task *events.Task, interviewID uint) {
	r := newRun(QuestionFlow, task.ID, interviewID, o.logger)
	fail := func(err *Error) {
		if cancelled(ctx, err.Err) {
			r.finish(StateFailed, "cancelled")
			return
		}
		r.fail(err)
		task.Fail(err.Code, err.Message)
	}

	task.Start(fmt.Sprintf("Starting question generation for interview %d.", interviewID))

	release, err := o.locker.TryLock(ctx, lock.Key(interviewID))
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			metrics.ObserveLockBusy(QuestionFlow.Name)
		}
		fail(lockError(err))
		return
	}
	defer release()

	interview, err := o.store.GetInterview(ctx, interviewID)
	if err != nil {
		fail(loadError(err, CodeInterviewNotFound, "interview"))
		return
	}

	if interview.Job == nil || strings.TrimSpace(interview.Job.Description) == "" {
		fail(preconditionError(CodeMissingJobDescription, "Job description (JD) not found for this interview."))
		return
	}
	if interview.Candidate == nil || strings.TrimSpace(interview.Candidate.ResumeText) == "" {
		fail(preconditionError(CodeMissingResume, "Candidate resume text not found for this interview."))
		return
	}
	jd := interview.Job.Description
	resume := interview.Candidate.ResumeText

	r.advance(StateAnalyzingJD)
	task.Thought("Analyzing the job description...")
	analysedJD, stageErr := o.callStage(ctx, models.StageAnalyzeJD, map[string]string{"jd_text": jd})
	if stageErr != nil {
		fail(stageErr)
		return
	}
	o.remember(models.StageAnalyzeJD, jd, analysedJD)

	r.advance(StateParsingResume)
	task.Thought("Job description analysed. Parsing the candidate resume...")
	parsedResume, stageErr := o.callStage(ctx, models.StageParseResume, map[string]string{"resume_text": resume})
	if stageErr != nil {
		fail(stageErr)
		return
	}
	o.remember(models.StageParseResume, resume, parsedResume)

	r.advance(StateGenerating)
	task.Thought("Resume parsed. Generating interview questions...")
	generated, stageErr := o.callStage(ctx, models.StageGenerateQuestions, map[string]string{
		"analyzed_jd":       analysedJD,
		"structured_resume": parsedResume,
	})
	if stageErr != nil {
		fail(stageErr)
		return
	}

	r.advance(StateFinalizing)
	task.Thought("Extracting questions from the model output...")
	questions := extract.List(generated, models.QuestionsField)
	metrics.ObserveExtracted(QuestionFlow.Name, len(questions))

	next, err := models.NextStatus(interview.Status, models.QuestionOutcome(len(questions)))
	if err != nil {
		fail(&Error{Kind: KindInternal, Code: CodePersistence, Message: "interview status cannot accept this result", Err: err})
		return
	}
	if err := o.store.CommitGenerationResult(ctx, interviewID, questions, next); err != nil {
		fail(commitError(err))
		return
	}

	final := make([]events.FinalQuestion, len(questions))
	for i, text := range questions {
		task.Generated(text, i+1, len(questions))
		final[i] = events.FinalQuestion{Text: text, Order: i + 1}
	}

	if len(questions) == 0 {
		r.finish(StateSucceeded, string(events.StatusCompletedNoResults), zap.String("status", string(next)))
		task.End(events.StatusCompletedNoResults, "The model returned no usable questions.", final)
		return
	}
	r.finish(StateSucceeded, string(events.StatusSuccess), zap.Int("questions", len(questions)), zap.String("status", string(next)))
	task.End(events.StatusSuccess, fmt.Sprintf("Generated %d questions.", len(questions)), final)
}
