package domain

import "fmt"

// Vocabulary is a runtime-loaded set of allowed values for an open string
// enum (roles, allocation statuses, project statuses and priorities).
type Vocabulary []string

func (v Vocabulary) Contains(value string) bool {
	for _, item := range v {
		if item == value {
			return true
		}
	}
	return false
}

// First returns the first entry, or "" when the vocabulary is empty.
func (v Vocabulary) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Label renders value, marking it when it is outside the fetched set.
func (v Vocabulary) Label(value string) string {
	if value == "" {
		return "-"
	}
	if v.Contains(value) {
		return value
	}
	return fmt.Sprintf("unknown (%s)", value)
}
