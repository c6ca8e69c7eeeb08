package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Error codes for faults raised by the stream machinery itself.
const (
	CodeInternal   = "internal_error"
	CodeIncomplete = "stream_incomplete"
)

// Task is the producer side of one stream. It stamps every event with the task id and
// refuses to send anything after a terminal event. A Task is owned by one goroutine.
type Task struct {
	ID   string
	Name string

	ctx   context.Context
	ch    chan Event
	ended bool
}

// Go runs fn in a new goroutine and returns the channel its events are sent on. The channel
// is closed when fn returns. A panic in fn, or fn returning without a terminal event, is
// turned into an error event so the stream never ends silently.
func Go(ctx context.Context, name string, fn func(t *Task)) <-chan Event {
	t := &Task{
		ID:   uuid.NewString(),
		Name: name,
		ctx:  ctx,
		ch:   make(chan Event, 8),
	}

	go func() {
		defer close(t.ch)
		defer func() {
			if r := recover(); r != nil {
				t.Fail(CodeInternal, fmt.Sprintf("unexpected error: %v", r))
			}
		}()

		fn(t)

		if !t.ended && ctx.Err() == nil {
			t.Fail(CodeIncomplete, "task ended without a result")
		}
	}()

	return t.ch
}

// Ended reports whether a terminal event has been sent.
func (t *Task) Ended() bool {
	return t.ended
}

func (t *Task) base() Base {
	return Base{TaskID: t.ID, TaskName: t.Name}
}

// send delivers e unless the task already ended or ctx is done. It reports whether the event
// was delivered.
func (t *Task) send(e Event) bool {
	if t.ended {
		return false
	}
	if t.ctx.Err() != nil {
		return false
	}
	e.TaskID = t.ID
	select {
	case t.ch <- e:
	case <-t.ctx.Done():
		return false
	}
	if e.Terminal() {
		t.ended = true
	}
	return true
}

func (t *Task) Start(message string) bool {
	return t.send(Event{Kind: KindTaskStart, Payload: TaskStart{Base: t.base(), Message: message}})
}

func (t *Task) Thought(text string) bool {
	return t.send(Event{Kind: KindThought, Payload: Thought{Base: t.base(), Thought: text}})
}

func (t *Task) Chunk(text string, partial bool) bool {
	return t.send(Event{Kind: KindQuestionChunk, Payload: QuestionChunk{Base: t.base(), ChunkText: text, IsPartial: partial}})
}

// Generated announces item order (1-based) of total.
func (t *Task) Generated(text string, order, total int) bool {
	return t.send(Event{Kind: KindQuestionGenerated, Payload: QuestionGenerated{
		Base:           t.base(),
		QuestionText:   text,
		QuestionOrder:  order,
		TotalQuestions: total,
	}})
}

// End sends the task_end event. final may be empty but is never encoded as null.
func (t *Task) End(status TaskStatus, message string, final []FinalQuestion) bool {
	if final == nil {
		final = []FinalQuestion{}
	}
	return t.send(Event{Kind: KindTaskEnd, Payload: TaskEnd{
		Base:           t.base(),
		Status:         status,
		Message:        message,
		FinalQuestions: final,
	}})
}

// Fail sends a terminal error event.
func (t *Task) Fail(code, message string) bool {
	return t.send(NewError(t.ID, t.Name, code, message))
}
