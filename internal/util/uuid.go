package util

import (
	"log"

	"github.com/google/uuid"
)

// NewTaskID returns a random UUID string used as a purchase task identifier
// and as the Kafka message key for that task's events.
func NewTaskID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		log.Fatalf("Failed to generate task id: %v", err)
	}
	return id.String()
}
