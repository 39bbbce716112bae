package lifecycle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// Duration is a time-in-status value split into whole components.
type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// ParseDuration parses a PT#H#M#S token. Absent components are zero; ok is
// false when the token does not have that shape.
func ParseDuration(token string) (d Duration, ok bool) {
	m := durationPattern.FindStringSubmatch(token)
	if m == nil {
		return Duration{}, false
	}
	parts := [3]int{}
	for i, group := range m[1:] {
		if group == "" {
			continue
		}
		n, err := strconv.Atoi(group)
		if err != nil {
			return Duration{}, false
		}
		parts[i] = n
	}
	return Duration{Hours: parts[0], Minutes: parts[1], Seconds: parts[2]}, true
}

// FormatDuration encodes d as a PT#H#M#S token, omitting zero components.
// A zero duration encodes as PT0S.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	if s > 0 || (h == 0 && m == 0) {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}

// Std converts d to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Hours)*time.Hour + time.Duration(d.Minutes)*time.Minute + time.Duration(d.Seconds)*time.Second
}

// String renders d for humans, e.g. "1h 30m" or "45s".
func (d Duration) String() string {
	var parts []string
	if d.Hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", d.Hours))
	}
	if d.Minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", d.Minutes))
	}
	if d.Seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", d.Seconds))
	}
	return strings.Join(parts, " ")
}

// DurationLabel renders an optional duration token, "-" when absent and
// "invalid (token)" when it cannot be parsed.
func DurationLabel(token *string) string {
	if token == nil || *token == "" {
		return "-"
	}
	d, ok := ParseDuration(*token)
	if !ok {
		return fmt.Sprintf("invalid (%s)", *token)
	}
	return d.String()
}
