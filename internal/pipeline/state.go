package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"interviewprep/ai/internal/metrics"
)

// State is where one generation task currently is.
type State string

const (
	StateIdle          State = "idle"
	StateAnalyzingJD   State = "analyzing_jd"
	StateParsingResume State = "parsing_resume"
	StateGenerating    State = "generating"
	StateFinalizing    State = "finalizing"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateSkipped       State = "skipped"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Flow names a task kind and the transitions it allows. Every non-terminal state may also
// move to StateFailed.
type Flow struct {
	Name        string
	transitions map[State][]State
}

var (
	QuestionFlow = Flow{
		Name: "questions",
		transitions: map[State][]State{
			StateIdle:          {StateAnalyzingJD},
			StateAnalyzingJD:   {StateParsingResume},
			StateParsingResume: {StateGenerating},
			StateGenerating:    {StateFinalizing},
			StateFinalizing:    {StateSucceeded},
		},
	}

	FollowupFlow = Flow{
		Name: "followups",
		transitions: map[State][]State{
			StateIdle:       {StateGenerating, StateSkipped},
			StateGenerating: {StateFinalizing},
			StateFinalizing: {StateSucceeded},
		},
	}

	ReportFlow = Flow{
		Name: "report",
		transitions: map[State][]State{
			StateIdle:       {StateGenerating},
			StateGenerating: {StateFinalizing},
			StateFinalizing: {StateSucceeded},
		},
	}
)

// Allows reports whether the flow may move from one state to another.
func (f Flow) Allows(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range f.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// run tracks the state of one task and logs every transition.
type run struct {
	flow        Flow
	state       State
	taskID      string
	interviewID uint
	started     time.Time
	logger      *zap.Logger
}

func newRun(flow Flow, taskID string, interviewID uint, logger *zap.Logger) *run {
	r := &run{
		flow:        flow,
		state:       StateIdle,
		taskID:      taskID,
		interviewID: interviewID,
		started:     time.Now(),
		logger: logger.With(
			zap.String("task", flow.Name),
			zap.String("task_id", taskID),
			zap.Uint("interview_id", interviewID),
		),
	}
	r.logger.Info("generation task started")
	return r
}

// advance moves to next. An illegal transition is a programming error.
func (r *run) advance(next State) {
	if !r.flow.Allows(r.state, next) {
		panic(fmt.Sprintf("%s task: illegal transition %s -> %s", r.flow.Name, r.state, next))
	}
	r.logger.Debug("state transition", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
}

// finish moves to a terminal state and records the outcome. status is the metric label.
func (r *run) finish(next State, status string, fields ...zap.Field) {
	r.advance(next)
	metrics.ObserveTask(r.flow.Name, status)

	fields = append(fields,
		zap.String("state", string(next)),
		zap.String("outcome", status),
		zap.Duration("duration", time.Since(r.started)),
	)
	if next == StateFailed {
		r.logger.Warn("generation task failed", fields...)
		return
	}
	r.logger.Info("generation task finished", fields...)
}

func (r *run) fail(err *Error) {
	r.finish(StateFailed, "failure",
		zap.String("error_code", err.Code),
		zap.String("error_kind", string(err.Kind)),
		zap.Error(err.Err),
	)
}
