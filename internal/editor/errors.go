package editor

import (
	"errors"
	"fmt"
)

var (
	ErrClosed         = errors.New("editor session closed")
	ErrSaveInProgress = errors.New("save already in progress")
)

// CapacityError rejects a change that would exceed the project's team size.
type CapacityError struct {
	Max int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("maximum team size of %d reached", e.Max)
}

func (e CapacityError) UserMessage() string {
	return fmt.Sprintf("Maximum team size of %d reached", e.Max)
}

// ValidationError is a local check failing before any request is made.
type ValidationError struct {
	EmployeeID int64
	Field      string
	Reason     string
}

func (e ValidationError) Error() string {
	if e.EmployeeID != 0 {
		return fmt.Sprintf("employee %d: %s %s", e.EmployeeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e ValidationError) UserMessage() string {
	return "Cannot save: " + e.Error()
}

// SaveError reports a batch that stopped partway. Removed and Created hold
// what the server applied before the failing call; nothing is rolled back.
type SaveError struct {
	Op           string
	AllocationID int64
	EmployeeID   int64
	Removed      []int64
	Created      []int64
	Err          error
}

func (e *SaveError) Error() string {
	target := fmt.Sprintf("allocation %d", e.AllocationID)
	if e.Op == "create" {
		target = fmt.Sprintf("employee %d", e.EmployeeID)
	}
	return fmt.Sprintf("%s %s: %v (applied: %d removed, %d created)", e.Op, target, e.Err, len(e.Removed), len(e.Created))
}

func (e *SaveError) Unwrap() error { return e.Err }
