package editor

import (
	"staffline/internal/domain"
	"staffline/internal/filter"
)

// FilterEmployees applies c to the directory without touching the session's
// own filter state.
func (s *Session) FilterEmployees(c filter.Criteria) []domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Apply(s.directory, c)
}

// Filtered returns the directory narrowed by the active filters.
func (s *Session) Filtered() []domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Employee(nil), s.filtered...)
}

// Criteria returns the active filters, skill tags included.
func (s *Session) Criteria() filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.criteria
	c.Skills = s.skills.Tags()
	return c
}

func (s *Session) SetQuery(q string) {
	s.update(func() { s.criteria.Query = q })
}

func (s *Session) SetShift(id int64) {
	s.update(func() { s.criteria.ShiftID = id })
}

func (s *Session) SetDepartment(id int64) {
	s.update(func() { s.criteria.DepartmentID = id })
}

func (s *Session) SetDesignation(id int64) {
	s.update(func() { s.criteria.DesignationID = id })
}

// AddSkillFilter requires tag; duplicates are ignored.
func (s *Session) AddSkillFilter(tag string) {
	s.update(func() { s.skills.Add(tag) })
}

func (s *Session) RemoveSkillFilter(tag string) {
	s.update(func() { s.skills.Remove(tag) })
}

func (s *Session) ClearFilters() {
	s.update(func() {
		s.criteria = filter.Criteria{}
		s.skills = filter.SkillSet{}
	})
}

func (s *Session) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.refilterLocked()
}

func (s *Session) refilterLocked() {
	c := s.criteria
	c.Skills = s.skills.Tags()
	s.filtered = filter.Apply(s.directory, c)
}
