package recur

import (
	"github.com/rs/zerolog"

	"cadence/internal/dates"
	"cadence/internal/task"
)

// DefaultHorizonYears bounds templates with no final date. Far enough out
// to be effectively unbounded for deadline tracking.
const DefaultHorizonYears = 50

// Expander turns templates into their full calendar of occurrences.
// Expansion is deterministic over its inputs: the same templates always
// produce the same occurrence ids in the same order, so an occurrence
// resolves to the same override key no matter when it is computed.
type Expander struct {
	HorizonYears int
	Log          zerolog.Logger
}

func NewExpander(log zerolog.Logger) *Expander {
	return &Expander{HorizonYears: DefaultHorizonYears, Log: log}
}

// Expand emits every occurrence of every template inside the horizon.
// Malformed templates never abort the batch: an unparseable deadline or a
// non-positive interval degrades that template to a single occurrence
// equal to itself.
func (e *Expander) Expand(templates []task.Template) []task.Occurrence {
	horizon := e.HorizonYears
	if horizon <= 0 {
		horizon = DefaultHorizonYears
	}

	var out []task.Occurrence
	for _, t := range templates {
		out = e.expandOne(t, horizon, out)
	}
	return out
}

func (e *Expander) expandOne(t task.Template, horizon int, out []task.Occurrence) []task.Occurrence {
	base, err := dates.Parse(t.Deadline)
	if err != nil {
		if t.Recurring {
			e.Log.Warn().
				Uint64("template_id", t.ID).
				Str("deadline", t.Deadline).
				Msg("unparseable deadline, degrading template to single occurrence")
		}
		return append(out, task.FromTemplate(t, base, 1, false))
	}

	if !t.Recurring || t.IntervalMonths <= 0 {
		if t.Recurring {
			e.Log.Warn().
				Uint64("template_id", t.ID).
				Int("interval_months", t.IntervalMonths).
				Msg("invalid interval, degrading template to single occurrence")
		}
		return append(out, task.FromTemplate(t, base, 1, false))
	}

	end := base.AddDate(horizon, 0, 0)
	if t.FinalDate != nil {
		if fd, err := dates.Parse(*t.FinalDate); err == nil {
			end = fd
		} else {
			e.Log.Warn().
				Uint64("template_id", t.ID).
				Str("final_date", *t.FinalDate).
				Msg("unparseable final date, using default horizon")
		}
	}

	instance := 1
	for d := base; !d.After(end); d = dates.AddMonthsClamped(d, t.IntervalMonths) {
		out = append(out, task.FromTemplate(t, d, instance, true))
		instance++
	}
	return out
}
