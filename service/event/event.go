package event

import "time"

// Context identifies the source of an event.
type Context struct {
	TaskID    string `json:"taskID"`
	EventType string `json:"eventType"`
	Source    string `json:"source"`
}

// Event is the generic envelope published by engine components.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
