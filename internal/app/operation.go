package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation tracks a single CLI invocation. Its ID tags every log line the
// invocation writes.
type Operation struct {
	ID        string
	Name      string
	Args      []string
	Status    string // "success" or "error"
	StartedAt time.Time
}

// NewOperation creates an operation with a fresh random ID.
func NewOperation(name string, args []string, now time.Time) *Operation {
	return &Operation{
		ID:        uuid.New().String(),
		Name:      name,
		Args:      args,
		Status:    "success",
		StartedAt: now,
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Failed returns true if Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

// ShortID returns the first segment of the ID for compact log lines.
func (op *Operation) ShortID() string {
	if len(op.ID) >= 8 {
		return op.ID[:8]
	}
	return op.ID
}
