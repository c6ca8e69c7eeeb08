package events

import (
	"context"
	"errors"
	"net/http"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("events: response writer does not support flushing")

// Pump is the only writer of the response. It writes every event from ch in arrival order and
// flushes after each frame. Events after the first terminal event are dropped. If ch closes
// before a terminal event, Pump writes an error event itself so the client always sees an end.
// Pump returns when ch is closed or ctx is done.
func Pump(ctx context.Context, w http.ResponseWriter, ch <-chan Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var (
		terminated bool
		taskID     string
		taskName   string
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, open := <-ch:
			if !open {
				if terminated {
					return nil
				}
				closing := NewError(taskID, taskName, CodeIncomplete, "stream closed before the task finished")
				if err := Write(w, closing); err != nil {
					return err
				}
				flusher.Flush()
				return nil
			}
			if terminated {
				continue
			}

			if taskID == "" {
				taskID = e.TaskID
				taskName = nameOf(e.Payload)
			}
			if err := Write(w, e); err != nil {
				return err
			}
			flusher.Flush()
			terminated = e.Terminal()
		}
	}
}

func nameOf(payload interface{}) string {
	switch p := payload.(type) {
	case TaskStart:
		return p.TaskName
	case Thought:
		return p.TaskName
	case QuestionGenerated:
		return p.TaskName
	default:
		return ""
	}
}
