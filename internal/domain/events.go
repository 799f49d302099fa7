package domain

import "time"

// PurchaseTaskEvent is the queue payload delivered to the worker,
// one event per enqueued purchase request.
type PurchaseTaskEvent struct {
	TaskID     string          `json:"task_id"`
	Request    PurchaseRequest `json:"request"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// PurchaseStatusEvent is published after every progress update and after
// the terminal outcome, keyed by task id so a client-side listener can
// follow a single task.
type PurchaseStatusEvent struct {
	TaskID    string    `json:"task_id"`
	State     string    `json:"state"`
	Progress  int       `json:"progress"`
	Feedback  string    `json:"feedback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
