package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDeadline(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		text string
		want time.Time
		ok   bool
	}{
		{"2026-01-15", date(2026, 1, 15), true},
		{"2026/1/5", date(2026, 1, 5), true},
		{"15/01/2026", date(2026, 1, 15), true},
		{"01/15/2026", date(2026, 1, 15), true},
		{"15.03.2026", date(2026, 3, 15), true},
		{"15 January 2026", date(2026, 1, 15), true},
		{"1st of March 2026", date(2026, 3, 1), true},
		{"January 15, 2026", date(2026, 1, 15), true},
		{"Deadline: Jan 15th 2026 (EU applicants)", date(2026, 1, 15), true},
		{"Sept 30 2026", date(2026, 9, 30), true},
		{"31 February 2026", time.Time{}, false},
		{"January 15", time.Time{}, false},
		{"rolling", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseDeadline(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaysUntil_IgnoresTimeOfDay(t *testing.T) {
	deadline := time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 45, daysUntil(deadline, time.Date(2025, 11, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 45, daysUntil(deadline, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, daysUntil(deadline, time.Date(2025, 12, 17, 8, 0, 0, 0, time.UTC)))
}

func TestDaysUntil_UsesLocalDate(t *testing.T) {
	taipei := time.FixedZone("UTC+8", 8*60*60)
	deadline := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// Already the 16th in Taipei, still the 15th in UTC.
	assert.Equal(t, -1, daysUntil(deadline, time.Date(2026, 1, 16, 7, 0, 0, 0, taipei)))
	assert.Equal(t, 0, daysUntil(deadline, time.Date(2026, 1, 15, 23, 0, 0, 0, taipei)))

	newYork := time.FixedZone("UTC-5", -5*60*60)
	// Still the 14th in New York, already the 15th in UTC.
	assert.Equal(t, 1, daysUntil(deadline, time.Date(2026, 1, 14, 21, 0, 0, 0, newYork)))
}
