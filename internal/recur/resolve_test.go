package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/task"
)

func boolp(b bool) *bool    { return &b }
func strp(s string) *string { return &s }

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func rawOccurrence(t *testing.T, templateID uint64, date string, instance int) task.Occurrence {
	t.Helper()
	return task.Occurrence{
		ID:         "x",
		TemplateID: templateID,
		Instance:   instance,
		Date:       day(t, date),
		Generated:  true,
		Title:      "quarterly filing",
	}
}

func TestResolveNoOverridePassthrough(t *testing.T) {
	raw := []task.Occurrence{rawOccurrence(t, 1, "2024-01-01", 1)}

	out := Resolve(raw, nil)
	require.Len(t, out, 1)
	assert.Equal(t, raw[0], out[0])
	assert.False(t, out[0].Completed)
	assert.False(t, out[0].Important)
}

func TestResolveOverridePrecedence(t *testing.T) {
	raw := []task.Occurrence{rawOccurrence(t, 1, "2024-01-01", 1)}
	ovs := []task.Override{{
		TemplateID: 1,
		Date:       "2024-01-01",
		Completed:  boolp(true),
		Notes:      strp("done early"),
	}}

	out := Resolve(raw, ovs)
	require.Len(t, out, 1)
	assert.True(t, out[0].Completed)
	assert.Equal(t, "done early", out[0].Notes)
	// fields the override does not set keep the raw value
	assert.Equal(t, "quarterly filing", out[0].Title)
	assert.False(t, out[0].Important)
}

func TestResolveSoftDeleteSuppression(t *testing.T) {
	raw := []task.Occurrence{
		rawOccurrence(t, 1, "2024-01-01", 1),
		rawOccurrence(t, 1, "2024-02-01", 2),
		rawOccurrence(t, 1, "2024-03-01", 3),
	}
	ovs := []task.Override{{TemplateID: 1, Date: "2024-02-01", Deleted: true}}

	out := Resolve(raw, ovs)
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-01", out[0].DateKey())
	assert.Equal(t, "2024-03-01", out[1].DateKey())
}

func TestResolveNoDuplicateKeys(t *testing.T) {
	raw := []task.Occurrence{
		rawOccurrence(t, 1, "2024-01-01", 1),
		rawOccurrence(t, 1, "2024-01-01", 1), // duplicate key in input
		rawOccurrence(t, 2, "2024-01-01", 1), // same date, other template
	}

	out := Resolve(raw, nil)
	require.Len(t, out, 2)

	seen := map[Key]struct{}{}
	for _, occ := range out {
		k := Key{TemplateID: occ.TemplateID, Date: occ.DateKey()}
		_, dup := seen[k]
		assert.False(t, dup, "duplicate key %+v", k)
		seen[k] = struct{}{}
	}
}

func TestResolvePreservesOrder(t *testing.T) {
	raw := []task.Occurrence{
		rawOccurrence(t, 1, "2024-01-01", 1),
		rawOccurrence(t, 1, "2024-02-01", 2),
		rawOccurrence(t, 2, "2024-01-15", 1),
	}
	ovs := []task.Override{{TemplateID: 1, Date: "2024-02-01", Important: boolp(true)}}

	out := Resolve(raw, ovs)
	require.Len(t, out, 3)
	assert.Equal(t, "2024-01-01", out[0].DateKey())
	assert.Equal(t, "2024-02-01", out[1].DateKey())
	assert.True(t, out[1].Important)
	assert.Equal(t, uint64(2), out[2].TemplateID)
}

func TestResolveOverrideOnOtherOccurrenceOnly(t *testing.T) {
	raw := []task.Occurrence{
		rawOccurrence(t, 1, "2024-01-01", 1),
		rawOccurrence(t, 1, "2024-02-01", 2),
	}
	ovs := []task.Override{{TemplateID: 1, Date: "2024-01-01", Completed: boolp(true)}}

	out := Resolve(raw, ovs)
	require.Len(t, out, 2)
	assert.True(t, out[0].Completed)
	assert.False(t, out[1].Completed, "override must not bleed into sibling occurrences")
}
