package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type frame struct {
	kind string
	data map[string]interface{}
}

func parseFrames(t *testing.T, body string) []frame {
	t.Helper()
	var frames []frame
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[0], "event: ") || !strings.HasPrefix(lines[1], "data: ") {
			t.Fatalf("malformed frame %q", block)
		}
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &data); err != nil {
			t.Fatalf("invalid frame json: %v", err)
		}
		frames = append(frames, frame{kind: strings.TrimPrefix(lines[0], "event: "), data: data})
	}
	return frames
}

func kinds(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.kind
	}
	return out
}

func TestEncode(t *testing.T) {
	e := Event{Kind: KindThought, Payload: Thought{Base: Base{TaskID: "t1"}, Thought: "line one\nline two"}}
	encoded, err := Encode(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "event: thought\ndata: {\"task_id\":\"t1\",\"thought\":\"line one\\nline two\"}\n\n"
	if string(encoded) != want {
		t.Fatalf("unexpected frame %q", encoded)
	}
}

func TestPumpStreamsTaskInOrder(t *testing.T) {
	ch := Go(context.Background(), "questions", func(task *Task) {
		task.Start("starting")
		task.Thought("analysing")
		task.Generated("Q1", 1, 2)
		task.Generated("Q2", 2, 2)
		task.End(StatusSuccess, "done", []FinalQuestion{{Text: "Q1", Order: 1}, {Text: "Q2", Order: 2}})
		task.Thought("ignored after end")
	})

	rec := httptest.NewRecorder()
	if err := Pump(context.Background(), rec, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !rec.Flushed {
		t.Fatalf("expected the recorder to be flushed")
	}

	frames := parseFrames(t, rec.Body.String())
	got := strings.Join(kinds(frames), ",")
	if got != "task_start,thought,question_generated,question_generated,task_end" {
		t.Fatalf("unexpected sequence %s", got)
	}

	taskID := frames[0].data["task_id"]
	for _, f := range frames {
		if f.data["task_id"] != taskID || taskID == "" {
			t.Fatalf("task id missing or inconsistent in %v", f.data)
		}
	}
	if frames[2].data["question_order"].(float64) != 1 || frames[3].data["question_text"] != "Q2" {
		t.Fatalf("unexpected generated payloads %v %v", frames[2].data, frames[3].data)
	}
	if final := frames[4].data["final_questions"].([]interface{}); len(final) != 2 {
		t.Fatalf("expected two final questions, got %v", final)
	}
}

func TestGoRecoversPanic(t *testing.T) {
	ch := Go(context.Background(), "questions", func(task *Task) {
		task.Start("starting")
		panic("boom")
	})

	rec := httptest.NewRecorder()
	if err := Pump(context.Background(), rec, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 2 || frames[1].kind != "error" {
		t.Fatalf("expected start followed by error, got %v", kinds(frames))
	}
	if frames[1].data["error_code"] != CodeInternal {
		t.Fatalf("unexpected error code %v", frames[1].data["error_code"])
	}
}

func TestGoReportsMissingTerminal(t *testing.T) {
	ch := Go(context.Background(), "questions", func(task *Task) {
		task.Start("starting")
	})

	rec := httptest.NewRecorder()
	if err := Pump(context.Background(), rec, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frames := parseFrames(t, rec.Body.String())
	if last := frames[len(frames)-1]; last.kind != "error" || last.data["error_code"] != CodeIncomplete {
		t.Fatalf("expected incomplete error, got %v", last)
	}
}

func TestPumpSynthesizesErrorWhenChannelClosesEarly(t *testing.T) {
	ch := make(chan Event, 1)
	ch <- Event{Kind: KindTaskStart, TaskID: "abc", Payload: TaskStart{Base: Base{TaskID: "abc", TaskName: "followups"}, Message: "go"}}
	close(ch)

	rec := httptest.NewRecorder()
	if err := Pump(context.Background(), rec, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[1].kind != "error" || frames[1].data["task_id"] != "abc" || frames[1].data["task_name"] != "followups" {
		t.Fatalf("unexpected synthesized error %v", frames[1].data)
	}
}

func TestPumpDropsEventsAfterTerminal(t *testing.T) {
	ch := make(chan Event, 3)
	ch <- NewError("x", "", "model_error", "failed")
	ch <- Event{Kind: KindThought, TaskID: "x", Payload: Thought{Base: Base{TaskID: "x"}, Thought: "late"}}
	ch <- NewError("x", "", "model_error", "again")
	close(ch)

	rec := httptest.NewRecorder()
	if err := Pump(context.Background(), rec, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames := parseFrames(t, rec.Body.String()); len(frames) != 1 {
		t.Fatalf("expected only the first terminal event, got %v", kinds(frames))
	}
}

type plainWriter struct {
	header http.Header
}

func (w *plainWriter) Header() http.Header         { return w.header }
func (w *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *plainWriter) WriteHeader(int)             {}

func TestPumpRequiresFlusher(t *testing.T) {
	err := Pump(context.Background(), &plainWriter{header: http.Header{}}, make(chan Event))
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
}

func TestPumpStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Pump(ctx, httptest.NewRecorder(), make(chan Event))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTaskStopsSendingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sent := make(chan bool, 1)

	ch := Go(ctx, "questions", func(task *Task) {
		cancel()
		sent <- task.Thought("after cancel")
	})

	for range ch {
		t.Fatalf("no events expected after cancellation")
	}
	if <-sent {
		t.Fatalf("send should report failure after cancellation")
	}
}
