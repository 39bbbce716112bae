package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"staffline/internal/lifecycle"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		token string
		want  lifecycle.Duration
		ok    bool
	}{
		{"PT1H30M", lifecycle.Duration{Hours: 1, Minutes: 30}, true},
		{"PT45M", lifecycle.Duration{Minutes: 45}, true},
		{"PT45S", lifecycle.Duration{Seconds: 45}, true},
		{"PT0S", lifecycle.Duration{}, true},
		{"PT2H5S", lifecycle.Duration{Hours: 2, Seconds: 5}, true},
		{"PT", lifecycle.Duration{}, true},
		{"45M", lifecycle.Duration{}, false},
		{"garbage", lifecycle.Duration{}, false},
		{"PT1.5H", lifecycle.Duration{}, false},
		{"PT30M1H", lifecycle.Duration{}, false},
		{"", lifecycle.Duration{}, false},
	}
	for _, tc := range cases {
		got, ok := lifecycle.ParseDuration(tc.token)
		assert.Equal(t, tc.ok, ok, tc.token)
		assert.Equal(t, tc.want, got, tc.token)
	}
}

func TestFormatDurationRoundTrip(t *testing.T) {
	assert.Equal(t, "PT0S", lifecycle.FormatDuration(0))
	assert.Equal(t, "PT1H30M", lifecycle.FormatDuration(90*time.Minute))
	assert.Equal(t, "PT26H1S", lifecycle.FormatDuration(26*time.Hour+time.Second))

	d, ok := lifecycle.ParseDuration(lifecycle.FormatDuration(3*time.Hour + 4*time.Minute + 5*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 3*time.Hour+4*time.Minute+5*time.Second, d.Std())
}

func TestDurationLabel(t *testing.T) {
	tok := func(s string) *string { return &s }
	assert.Equal(t, "-", lifecycle.DurationLabel(nil))
	assert.Equal(t, "1h 30m", lifecycle.DurationLabel(tok("PT1H30M")))
	assert.Equal(t, "0s", lifecycle.DurationLabel(tok("PT0S")))
	assert.Equal(t, "invalid (45M)", lifecycle.DurationLabel(tok("45M")))
}
