package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of deadline and allocated_on.
const DateLayout = "2006-01-02"

// Ref is a small reference entity: department, designation or shift.
type Ref struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Code string `json:"code,omitempty" yaml:"code"`
}

type Employee struct {
	ID           int64    `json:"id" yaml:"id"`
	EmployeeCode string   `json:"employee_code" yaml:"employee_code"`
	Name         string   `json:"name" yaml:"name"`
	Email        string   `json:"email" yaml:"email"`
	Experience   float64  `json:"experience" yaml:"experience"`
	Skills       []string `json:"skills" yaml:"skills"`
	Department   *Ref     `json:"department,omitempty" yaml:"department"`
	Designation  *Ref     `json:"designation,omitempty" yaml:"designation"`
	Shift        *Ref     `json:"shift,omitempty" yaml:"shift"`
	Score        float64  `json:"score" yaml:"-"`
}

// HasSkill reports whether tag is one of the employee's skills.
func (e Employee) HasSkill(tag string) bool {
	for _, s := range e.Skills {
		if s == tag {
			return true
		}
	}
	return false
}

// Project is an allocation target. A nil RequiredSkills means the field was
// never provided, which is not the same as an empty list.
type Project struct {
	ID             int64    `json:"id" yaml:"id"`
	Code           string   `json:"code" yaml:"code"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	StartDate      string   `json:"start_date" yaml:"start_date"`
	EndDate        string   `json:"end_date" yaml:"end_date"`
	MaxTeamSize    int      `json:"max_team_size" yaml:"max_team_size"`
	MinExperience  int      `json:"min_experience" yaml:"min_experience"`
	RequiredSkills []string `json:"required_skills" yaml:"required_skills"`
	Status         string   `json:"status" yaml:"status"`
	Priority       string   `json:"priority" yaml:"priority"`
}

type Allocation struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	EmployeeID  int64     `json:"employee_id"`
	Employee    *Employee `json:"employee,omitempty"`
	Project     *Project  `json:"project,omitempty"`
	Role        string    `json:"role"`
	Deadline    string    `json:"deadline"`
	AllocatedOn string    `json:"allocated_on"`
	Status      string    `json:"status"`
}

// AllocationCreate is the body of a create request.
type AllocationCreate struct {
	ProjectID   int64  `json:"project_id" validate:"required,gt=0"`
	EmployeeID  int64  `json:"employee_id" validate:"required,gt=0"`
	Role        string `json:"role"`
	Deadline    string `json:"deadline" validate:"required"`
	AllocatedOn string `json:"allocated_on" validate:"required"`
}

// StatusHistoryEntry is one status transition. ChangedAt is zero when the
// gateway sent no timestamp or one in an unknown layout.
type StatusHistoryEntry struct {
	ID            int64     `json:"id"`
	AllocationID  int64     `json:"allocation_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ChangedAt     time.Time `json:"changed_at"`
	DurationSpent *string   `json:"duration_spent,omitempty"`
}

// changedAtLayouts are tried in order; zoneless values are read as UTC.
var changedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts changed_at with or without a zone. An unparsable
// timestamp leaves ChangedAt zero instead of failing the whole entry.
func (h *StatusHistoryEntry) UnmarshalJSON(data []byte) error {
	type plain StatusHistoryEntry
	var raw struct {
		plain
		ChangedAt *string `json:"changed_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = StatusHistoryEntry(raw.plain)
	h.ChangedAt = ParseTimestamp(raw.ChangedAt)
	return nil
}

// ParseTimestamp parses an optional gateway timestamp, returning the zero
// time when it is absent or unrecognized.
func ParseTimestamp(v *string) time.Time {
	if v == nil || *v == "" {
		return time.Time{}
	}
	for _, layout := range changedAtLayouts {
		if t, err := time.ParseInLocation(layout, *v, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// PerformanceScore is computed by the backend; employee ids arrive as strings.
type PerformanceScore struct {
	EmployeeID string  `json:"employee_id" yaml:"employee_id"`
	Score      float64 `json:"score" yaml:"score"`
}

type ProjectsMetadata struct {
	Roles      Vocabulary `json:"roles" yaml:"roles"`
	Statuses   Vocabulary `json:"statuses" yaml:"statuses"`
	Priorities Vocabulary `json:"priorities" yaml:"priorities"`
}
