// Package filter narrows the employee directory by free text, reference
// selectors and required skill tags. Everything here is pure and synchronous.
package filter

import (
	"strings"

	"staffline/internal/domain"
)

// Criteria is a conjunction of clauses. Zero values are empty clauses and
// match every employee.
type Criteria struct {
	Query         string
	ShiftID       int64
	DepartmentID  int64
	DesignationID int64
	Skills        []string
}

// Empty reports whether no clause is set.
func (c Criteria) Empty() bool {
	return strings.TrimSpace(c.Query) == "" && c.ShiftID == 0 && c.DepartmentID == 0 &&
		c.DesignationID == 0 && len(c.Skills) == 0
}

// Match reports whether e satisfies every non-empty clause of c.
func Match(e domain.Employee, c Criteria) bool {
	if !matchText(e, c.Query) {
		return false
	}
	if !matchRef(e.Shift, c.ShiftID) || !matchRef(e.Department, c.DepartmentID) || !matchRef(e.Designation, c.DesignationID) {
		return false
	}
	for _, tag := range c.Skills {
		if !e.HasSkill(tag) {
			return false
		}
	}
	return true
}

// Apply returns the employees of dir matching c, in directory order. dir is
// never modified.
func Apply(dir []domain.Employee, c Criteria) []domain.Employee {
	out := make([]domain.Employee, 0, len(dir))
	for _, e := range dir {
		if Match(e, c) {
			out = append(out, e)
		}
	}
	return out
}

func matchText(e domain.Employee, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{e.Name, e.Email, e.EmployeeCode} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func matchRef(ref *domain.Ref, id int64) bool {
	if id == 0 {
		return true
	}
	return ref != nil && ref.ID == id
}
