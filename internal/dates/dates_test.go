package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptedFormats(t *testing.T) {
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2024-03-05",
		"03/05/2024",
		"3/5/2024",
		"03/05/24",
		"3/5/24",
		"  2024-03-05  ",
	} {
		got, err := Parse(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "not a date", "2024-13-01", "31/12/2024"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("1/31/24")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", got)
}

func TestAddMonthsClamped(t *testing.T) {
	day := func(s string) time.Time {
		d, err := Parse(s)
		require.NoError(t, err)
		return d
	}

	tests := []struct {
		start  string
		months int
		want   string
	}{
		{"2024-01-31", 1, "2024-02-29"}, // leap year clamp
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-02-29", 1, "2024-03-29"}, // clamped day is sticky
		{"2024-01-15", 1, "2024-02-15"},
		{"2024-03-31", 2, "2024-05-31"},
		{"2024-10-31", 4, "2025-02-28"}, // year rollover into short month
		{"2024-01-01", 12, "2025-01-01"},
	}
	for _, tc := range tests {
		got := AddMonthsClamped(day(tc.start), tc.months)
		assert.Equal(t, tc.want, Format(got), "%s + %d months", tc.start, tc.months)
	}
}
