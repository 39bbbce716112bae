package editor

import (
	"github.com/sirupsen/logrus"

	"staffline/internal/domain"
	"staffline/internal/notify"
)

// StageCreate stages a new allocation for e with the first known role, the
// project end date as deadline and today as allocation date. Staging an
// employee who is already staged or allocated does nothing. When persisted
// plus staged allocations already fill the team, the call is rejected with a
// CapacityError and nothing changes.
func (s *Session) StageCreate(e domain.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.stagedIndexLocked(e.ID) >= 0 || s.allocatedLocked(e.ID) {
		return nil
	}
	if len(s.allocations)+len(s.staged) >= s.project.MaxTeamSize {
		err := CapacityError{Max: s.project.MaxTeamSize}
		s.log.WithFields(logrus.Fields{"op": "stage_create", "employee_id": e.ID}).Warn(err.Error())
		s.notifier.Notify(notify.LevelWarning, err.UserMessage())
		return err
	}
	s.staged = append(s.staged, Staged{
		Employee:    e,
		ProjectID:   s.project.ID,
		Role:        s.metadata.Roles.First(),
		Deadline:    s.project.EndDate,
		AllocatedOn: s.today(),
	})
	return nil
}

// UnstageCreate drops the staged creation for an employee, if any.
func (s *Session) UnstageCreate(employeeID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.stagedIndexLocked(employeeID)
	if i < 0 {
		return false
	}
	s.staged = append(s.staged[:i], s.staged[i+1:]...)
	return true
}

// Toggle runs the employee's button action: stage when addable, unstage
// when staged, nothing when already allocated.
func (s *Session) Toggle(e domain.Employee) error {
	switch s.Action(e.ID) {
	case ActionRemoveStaged:
		s.UnstageCreate(e.ID)
		return nil
	case ActionAllocated:
		return nil
	}
	return s.StageCreate(e)
}

// SetStagedRole changes the role of a staged creation. Callers offer only
// roles from the fetched vocabulary.
func (s *Session) SetStagedRole(employeeID int64, role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.stagedIndexLocked(employeeID)
	if i < 0 {
		return false
	}
	s.staged[i].Role = role
	return true
}

// SetStagedDeadline changes the deadline of a staged creation. Any date
// string is accepted.
func (s *Session) SetStagedDeadline(employeeID int64, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.stagedIndexLocked(employeeID)
	if i < 0 {
		return false
	}
	s.staged[i].Deadline = date
	return true
}

// StageRemoval marks a persisted allocation for deletion on save.
func (s *Session) StageRemoval(allocationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.removalIndexLocked(allocationID) >= 0 {
		return false
	}
	for _, a := range s.allocations {
		if a.ID == allocationID {
			s.removals = append(s.removals, allocationID)
			return true
		}
	}
	return false
}

func (s *Session) UnstageRemoval(allocationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.removalIndexLocked(allocationID)
	if i < 0 {
		return false
	}
	s.removals = append(s.removals[:i], s.removals[i+1:]...)
	return true
}

func (s *Session) MarkedForRemoval(allocationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removalIndexLocked(allocationID) >= 0
}

// Action reports what the button next to an employee does.
func (s *Session) Action(employeeID int64) Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.allocatedLocked(employeeID):
		return ActionAllocated
	case s.stagedIndexLocked(employeeID) >= 0:
		return ActionRemoveStaged
	}
	return ActionAdd
}

// TeamCount is the team size the project will have after save.
func (s *Session) TeamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teamCountLocked()
}

func (s *Session) teamCountLocked() int {
	return len(s.allocations) + len(s.staged) - len(s.removals)
}

func (s *Session) stagedIndexLocked(employeeID int64) int {
	for i, st := range s.staged {
		if st.Employee.ID == employeeID {
			return i
		}
	}
	return -1
}

func (s *Session) removalIndexLocked(allocationID int64) int {
	for i, id := range s.removals {
		if id == allocationID {
			return i
		}
	}
	return -1
}

func (s *Session) allocatedLocked(employeeID int64) bool {
	for _, a := range s.allocations {
		if a.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

func (s *Session) Project() domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

func (s *Session) Metadata() domain.ProjectsMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

func (s *Session) Refs() Refs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Staged returns the pending creations in staging order.
func (s *Session) Staged() []Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Staged(nil), s.staged...)
}

// Removals returns the allocation ids marked for removal in staging order.
func (s *Session) Removals() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.removals...)
}

func (s *Session) Allocations() []domain.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Allocation(nil), s.allocations...)
}

// Directory returns the full scored directory, best score first.
func (s *Session) Directory() []domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Employee(nil), s.directory...)
}

// Suggested returns the server-ranked shortlist in server order.
func (s *Session) Suggested() []domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Employee(nil), s.suggested...)
}
