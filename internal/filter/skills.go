package filter

import "strings"

// SkillSet is an ordered set of required skill tags.
type SkillSet struct {
	tags []string
}

// Add inserts tag and reports whether the set changed. Blank and duplicate
// tags are ignored.
func (s *SkillSet) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || s.Has(tag) {
		return false
	}
	s.tags = append(s.tags, tag)
	return true
}

// Remove deletes tag and reports whether the set changed.
func (s *SkillSet) Remove(tag string) bool {
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return true
		}
	}
	return false
}

func (s *SkillSet) Has(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns a copy of the tags in insertion order.
func (s *SkillSet) Tags() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

func (s *SkillSet) Len() int { return len(s.tags) }
