package app

import (
	"strings"
	"time"

	"biji-go/internal/biji"
)

// Operation tracks one CLI invocation. Its ID tags every log line the
// invocation writes, so a run can be followed through the rotating log.
type Operation struct {
	ID      string
	Name    string
	Args    []string
	Started time.Time
	Status  string // "success" or "error"
	Err     error
	clock   biji.Clock
}

// NewOperation starts an operation.
func NewOperation(name string, args []string, ids biji.IDGenerator, clock biji.Clock) *Operation {
	return &Operation{
		ID:      ids.New(),
		Name:    name,
		Args:    args,
		Started: clock.Now(),
		Status:  "success",
		clock:   clock,
	}
}

// Fail records err as the outcome. The first failure wins.
func (op *Operation) Fail(err error) {
	if err == nil || op.Err != nil {
		return
	}
	op.Status = "error"
	op.Err = err
}

// Elapsed returns the time since the operation started.
func (op *Operation) Elapsed() time.Duration {
	return op.clock.Now().Sub(op.Started)
}

// LogFields returns key/value pairs describing the finished operation.
func (op *Operation) LogFields() []any {
	fields := []any{
		"operation", op.Name,
		"args", strings.Join(op.Args, " "),
		"status", op.Status,
		"elapsed", op.Elapsed().String(),
	}
	if op.Err != nil {
		fields = append(fields, "error", op.Err)
	}
	return fields
}
