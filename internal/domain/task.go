package domain

import (
	"errors"
	"time"
)

var ErrTaskNotFound = errors.New("purchase task not found")

type TaskState string

const (
	TaskStatePending    TaskState = "PENDING"
	TaskStateProcessing TaskState = "PROCESSING"
	TaskStateFeedback   TaskState = "FEEDBACK"
	TaskStateCompleted  TaskState = "COMPLETED"
)

// PurchaseTask is the ledger record behind one queued purchase request.
// The client polls it for progress and feedback and deletes it once the
// outcome has been observed.
type PurchaseTask struct {
	ID        string
	Request   PurchaseRequest
	State     TaskState
	Progress  int
	Feedback  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
