package recur

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/task"
)

func testExpander() *Expander {
	return NewExpander(zerolog.Nop())
}

func occurrenceDates(occs []task.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.DateKey())
	}
	return out
}

func TestExpandNonRecurringPassthrough(t *testing.T) {
	tpl := task.Template{ID: 7, Title: "file report", Deadline: "2024-04-01"}

	occs := testExpander().Expand([]task.Template{tpl})
	require.Len(t, occs, 1)
	assert.Equal(t, "7", occs[0].ID)
	assert.False(t, occs[0].Generated)
	assert.Equal(t, "2024-04-01", occs[0].DateKey())
	assert.Equal(t, "file report", occs[0].Title)
}

func TestExpandMonthOverflowClamping(t *testing.T) {
	tpl := task.Template{
		ID:             1,
		Title:          "end-of-month review",
		Deadline:       "2024-01-31",
		Recurring:      true,
		IntervalMonths: 1,
	}

	occs := testExpander().Expand([]task.Template{tpl})
	require.GreaterOrEqual(t, len(occs), 3)

	// Feb clamps to its last day; later steps continue from the clamped day.
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-29"},
		occurrenceDates(occs[:3]))
}

func TestExpandHorizonBound(t *testing.T) {
	fd := "2025-06-01"
	tpl := task.Template{
		ID:             2,
		Title:          "semiannual audit",
		Deadline:       "2024-01-01",
		Recurring:      true,
		IntervalMonths: 6,
		FinalDate:      &fd,
	}

	occs := testExpander().Expand([]task.Template{tpl})
	assert.Equal(t, []string{"2024-01-01", "2024-07-01", "2025-01-01"},
		occurrenceDates(occs))
}

func TestExpandDefaultHorizon(t *testing.T) {
	e := testExpander()
	e.HorizonYears = 2
	tpl := task.Template{
		ID:             3,
		Deadline:       "2024-01-01",
		Recurring:      true,
		IntervalMonths: 12,
	}

	occs := e.Expand([]task.Template{tpl})
	assert.Equal(t, []string{"2024-01-01", "2025-01-01", "2026-01-01"},
		occurrenceDates(occs))
}

func TestExpandDeterministic(t *testing.T) {
	fd := "2026-01-01"
	templates := []task.Template{
		{ID: 1, Deadline: "2024-01-31", Recurring: true, IntervalMonths: 1, FinalDate: &fd},
		{ID: 2, Deadline: "2024-06-15"},
		{ID: 3, Deadline: "garbage", Recurring: true, IntervalMonths: 3},
	}

	a := testExpander().Expand(templates)
	b := testExpander().Expand(templates)
	assert.Equal(t, a, b)
}

func TestExpandGeneratedIDs(t *testing.T) {
	fd := "2024-06-01"
	tpl := task.Template{ID: 42, Deadline: "2024-01-01", Recurring: true, IntervalMonths: 6, FinalDate: &fd}

	occs := testExpander().Expand([]task.Template{tpl})
	require.Len(t, occs, 1)
	assert.Equal(t, "42_2024-01-01", occs[0].ID)
	assert.True(t, occs[0].Generated)
	assert.Equal(t, 1, occs[0].Instance)
}

func TestExpandMalformedTemplateDegrades(t *testing.T) {
	templates := []task.Template{
		{ID: 1, Title: "broken", Deadline: "someday", Recurring: true, IntervalMonths: 1},
		{ID: 2, Title: "fine", Deadline: "2024-05-01"},
	}

	// the bad template must not abort the batch
	occs := testExpander().Expand(templates)
	require.Len(t, occs, 2)
	assert.Equal(t, "1", occs[0].ID)
	assert.True(t, occs[0].Date.IsZero())
	assert.Equal(t, "2024-05-01", occs[1].DateKey())
}

func TestExpandInvalidIntervalDegrades(t *testing.T) {
	for _, interval := range []int{0, -3} {
		tpl := task.Template{ID: 5, Deadline: "2024-01-01", Recurring: true, IntervalMonths: interval}
		occs := testExpander().Expand([]task.Template{tpl})
		require.Len(t, occs, 1, "interval %d", interval)
		assert.False(t, occs[0].Generated)
	}
}

func TestExpandUnparseableFinalDateFallsBackToHorizon(t *testing.T) {
	e := testExpander()
	e.HorizonYears = 1
	fd := "whenever"
	tpl := task.Template{ID: 6, Deadline: "2024-01-01", Recurring: true, IntervalMonths: 6, FinalDate: &fd}

	occs := e.Expand([]task.Template{tpl})
	assert.Equal(t, []string{"2024-01-01", "2024-07-01", "2025-01-01"},
		occurrenceDates(occs))
}
