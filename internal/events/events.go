// Package events defines the progress events a generation task produces and the server-sent
// event framing used to push them to the client.
package events

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind is the SSE event name.
type Kind string

const (
	KindTaskStart         Kind = "task_start"
	KindThought           Kind = "thought"
	KindQuestionChunk     Kind = "question_chunk"
	KindQuestionGenerated Kind = "question_generated"
	KindTaskEnd           Kind = "task_end"
	KindError             Kind = "error"
)

// TaskStatus is reported in the task_end payload.
type TaskStatus string

const (
	StatusSuccess            TaskStatus = "success"
	StatusCompletedNoResults TaskStatus = "completed_with_no_results"
	StatusFailure            TaskStatus = "failure"
)

// Base is embedded in every payload.
type Base struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name,omitempty"`
}

type TaskStart struct {
	Base
	Message string `json:"message"`
}

type Thought struct {
	Base
	Thought string `json:"thought"`
}

type QuestionChunk struct {
	Base
	ChunkText string `json:"chunk_text"`
	IsPartial bool   `json:"is_partial"`
}

type QuestionGenerated struct {
	Base
	QuestionText   string `json:"question_text"`
	QuestionOrder  int    `json:"question_order"`
	TotalQuestions int    `json:"total_questions"`
}

// FinalQuestion is one entry of task_end.final_questions.
type FinalQuestion struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type TaskEnd struct {
	Base
	Status         TaskStatus      `json:"status"`
	Message        string          `json:"message"`
	FinalQuestions []FinalQuestion `json:"final_questions"`
}

type Error struct {
	Base
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code,omitempty"`
}

// Event is one frame on the stream. Payload is one of the payload structs above.
type Event struct {
	Kind    Kind
	TaskID  string
	Payload interface{}
}

// Terminal reports whether no further events may follow this one.
func (e Event) Terminal() bool {
	return e.Kind == KindTaskEnd || e.Kind == KindError
}

// Encode renders the event as "event: <kind>\ndata: <json>\n\n".
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	frame := make([]byte, 0, len(e.Kind)+len(data)+16)
	frame = append(frame, "event: "...)
	frame = append(frame, e.Kind...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// Write encodes e and writes the frame to w.
func Write(w io.Writer, e Event) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// NewError builds an error event for the given task.
func NewError(taskID, taskName, code, message string) Event {
	return Event{
		Kind:   KindError,
		TaskID: taskID,
		Payload: Error{
			Base:         Base{TaskID: taskID, TaskName: taskName},
			ErrorMessage: message,
			ErrorCode:    code,
		},
	}
}
