package recur

import (
	"cadence/internal/task"
)

// Key identifies one occurrence across the override store and the
// expander's output: the date is the natural key, not a surrogate.
type Key struct {
	TemplateID uint64
	Date       string // canonical yyyy-MM-dd
}

// Resolve merges sparse overrides onto raw occurrences. Order is preserved,
// no two emitted occurrences share a key, soft-deleted occurrences are
// suppressed, and for every field an override sets the override wins.
func Resolve(raw []task.Occurrence, overrides []task.Override) []task.Occurrence {
	byKey := make(map[Key]*task.Override, len(overrides))
	for i := range overrides {
		ov := &overrides[i]
		byKey[Key{TemplateID: ov.TemplateID, Date: ov.Date}] = ov
	}

	seen := make(map[Key]struct{}, len(raw))
	out := make([]task.Occurrence, 0, len(raw))
	for _, occ := range raw {
		k := Key{TemplateID: occ.TemplateID, Date: occ.DateKey()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		ov, ok := byKey[k]
		if !ok {
			out = append(out, occ)
			continue
		}
		if ov.Deleted {
			continue
		}
		out = append(out, apply(occ, ov))
	}
	return out
}

// Effective is the full read path: expand then resolve.
func Effective(e *Expander, templates []task.Template, overrides []task.Override) []task.Occurrence {
	return Resolve(e.Expand(templates), overrides)
}

func apply(occ task.Occurrence, ov *task.Override) task.Occurrence {
	if ov.Completed != nil {
		occ.Completed = *ov.Completed
	}
	if ov.Important != nil {
		occ.Important = *ov.Important
	}
	if ov.Title != nil {
		occ.Title = *ov.Title
	}
	if ov.Notes != nil {
		occ.Notes = *ov.Notes
	}
	if ov.DocumentLink != nil {
		occ.DocumentLink = *ov.DocumentLink
	}
	return occ
}
