package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"interviewprep/ai/internal/llm"
	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/store"
)

func TestFlowAllows(t *testing.T) {
	cases := []struct {
		flow Flow
		from State
		to   State
		want bool
	}{
		{QuestionFlow, StateIdle, StateAnalyzingJD, true},
		{QuestionFlow, StateAnalyzingJD, StateParsingResume, true},
		{QuestionFlow, StateParsingResume, StateGenerating, true},
		{QuestionFlow, StateGenerating, StateFinalizing, true},
		{QuestionFlow, StateFinalizing, StateSucceeded, true},
		{QuestionFlow, StateIdle, StateFailed, true},
		{QuestionFlow, StateGenerating, StateFailed, true},
		{QuestionFlow, StateIdle, StateGenerating, false},
		{QuestionFlow, StateAnalyzingJD, StateSucceeded, false},
		{QuestionFlow, StateIdle, StateSkipped, false},
		{QuestionFlow, StateSucceeded, StateFailed, false},
		{FollowupFlow, StateIdle, StateGenerating, true},
		{FollowupFlow, StateIdle, StateSkipped, true},
		{FollowupFlow, StateIdle, StateAnalyzingJD, false},
		{FollowupFlow, StateFinalizing, StateSucceeded, true},
		{FollowupFlow, StateSkipped, StateGenerating, false},
		{ReportFlow, StateIdle, StateGenerating, true},
		{ReportFlow, StateIdle, StateSkipped, false},
		{ReportFlow, StateFailed, StateFailed, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s %s to %s", tc.flow.Name, tc.from, tc.to), func(t *testing.T) {
			if got := tc.flow.Allows(tc.from, tc.to); got != tc.want {
				t.Fatalf("Allows() = %v, expected %v", got, tc.want)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateSucceeded, StateFailed, StateSkipped} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateIdle, StateAnalyzingJD, StateParsingResume, StateGenerating, StateFinalizing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestRunRejectsIllegalTransition(t *testing.T) {
	r := newRun(QuestionFlow, "task", 1, zap.NewNop())
	r.advance(StateAnalyzingJD)

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected a panic on an illegal transition")
		}
		if !strings.Contains(fmt.Sprint(rec), "analyzing_jd -> finalizing") {
			t.Fatalf("unexpected panic %v", rec)
		}
	}()
	r.advance(StateFinalizing)
}

func TestRunFinishIsTerminal(t *testing.T) {
	r := newRun(ReportFlow, "task", 1, zap.NewNop())
	r.fail(preconditionError(CodeNoDialogue, "nothing to report"))
	if r.state != StateFailed {
		t.Fatalf("expected failed, got %s", r.state)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("a finished run must not move again")
		}
	}()
	r.advance(StateGenerating)
}

func TestErrorConversions(t *testing.T) {
	timeout := &llm.Failure{Kind: llm.FailureTimeout, Stage: models.StageAnalyzeJD, Detail: "deadline"}

	cases := []struct {
		name string
		err  *Error
		kind ErrorKind
		code string
	}{
		{name: "gateway failure", err: modelError(timeout), kind: KindModel, code: "model_timeout"},
		{name: "unclassified model error", err: modelError(errors.New("boom")), kind: KindModel, code: "model_provider_error"},
		{name: "missing record", err: loadError(store.ErrNotFound, CodeLogNotFound, "interview log"), kind: KindNotFound, code: CodeLogNotFound},
		{name: "broken read", err: loadError(errors.New("db down"), CodeLogNotFound, "interview log"), kind: KindPersistence, code: CodePersistence},
		{name: "commit on deleted interview", err: commitError(store.ErrNotFound), kind: KindNotFound, code: CodeInterviewNotFound},
		{name: "commit failure", err: commitError(store.ErrStatusMismatch), kind: KindPersistence, code: CodePersistence},
		{name: "lock busy", err: lockError(lock.ErrBusy), kind: KindConflict, code: CodeGenerationInProgress},
		{name: "lock backend down", err: lockError(errors.New("redis down")), kind: KindInternal, code: CodeLockUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Kind != tc.kind || tc.err.Code != tc.code {
				t.Fatalf("expected %s/%s, got %s/%s", tc.kind, tc.code, tc.err.Kind, tc.err.Code)
			}
		})
	}

	wrapped := modelError(timeout)
	var failure *llm.Failure
	if !errors.As(wrapped, &failure) || failure != timeout {
		t.Fatal("the gateway failure must stay reachable through Unwrap")
	}
	if !strings.Contains(wrapped.Error(), "model_timeout") {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
	if got := preconditionError(CodeMissingResume, "no resume").Error(); got != "missing_resume: no resume" {
		t.Fatalf("unexpected message %q", got)
	}
}
