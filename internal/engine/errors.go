package engine

import "fmt"

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string { return e.Message }

// CapacityError rejects an allocation that would exceed the team size.
type CapacityError struct {
	ProjectID int64
	Max       int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("project %d: maximum team size of %d reached", e.ProjectID, e.Max)
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
