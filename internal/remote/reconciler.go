package remote

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cadence/internal/dates"
	"cadence/internal/task"
)

// ErrSyncInProgress is returned when a reconciliation is triggered while
// one is already running. The second trigger is a no-op, never queued.
var ErrSyncInProgress = errors.New("reconciliation already in progress")

// Report summarizes one reconciliation run. Per-item failures are counted
// here, never surfaced as mid-batch errors.
type Report struct {
	RunID      string    `json:"run_id"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Reconciler materializes effective occurrences into the remote flat-row
// list without ever creating two rows for the same (name, normalized date)
// pair. Writes go out sequentially with a small pause between calls; that
// throughput trade is deliberate, it keeps the remote side out of
// rate-limit and duplicate races.
type Reconciler struct {
	Remote List
	Links  LinkStore

	// Delay is the pause between consecutive remote writes.
	Delay time.Duration

	Log zerolog.Logger

	running atomic.Bool
}

// rowKey is the duplicate guard: task name plus canonical date. Comparing
// heterogeneous raw date strings is where naive implementations double up.
type rowKey struct {
	name string
	date string
}

// Reconcile pushes the given occurrences to the remote list. At most one
// run is in flight at a time; a concurrent call returns ErrSyncInProgress
// with an empty report. Soft-deleted occurrences never reach this point:
// callers pass the resolver's output.
func (r *Reconciler) Reconcile(ctx context.Context, orgID uint64, occs []task.Occurrence) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInProgress
	}
	defer r.running.Store(false)

	rep := Report{RunID: uuid.NewString(), StartedAt: time.Now()}

	snapshot, err := r.Remote.List(ctx, orgID)
	if err != nil {
		rep.FinishedAt = time.Now()
		return rep, err
	}

	byKey := make(map[rowKey]Row, len(snapshot))
	for _, row := range snapshot {
		norm, err := dates.Normalize(row.DueDate)
		if err != nil {
			r.Log.Warn().
				Str("row_id", row.ID).
				Str("due_date", row.DueDate).
				Msg("remote row has unparseable due date, excluded from matching")
			continue
		}
		byKey[rowKey{name: row.Name, date: norm}] = row
	}

	createdThisRun := make(map[rowKey]struct{})

	for _, occ := range occs {
		day := occ.DateKey()
		if day == "" {
			rep.Skipped++
			continue
		}
		key := rowKey{name: occ.Title, date: day}

		remoteID, linked, err := r.Links.Get(ctx, occ.TemplateID, day)
		if err != nil {
			rep.Failed++
			r.Log.Error().Err(err).Str("occurrence", occ.ID).Msg("link lookup failed")
			continue
		}

		if !linked {
			// Not linked yet: search the snapshot by (name, date, instance)
			// before falling back to a create. Covers rows materialized by
			// an earlier run whose link write was lost.
			if row, ok := byKey[key]; ok && row.Instance == occ.Instance {
				remoteID = row.ID
				linked = true
				if err := r.Links.Set(ctx, orgID, occ.TemplateID, day, remoteID); err != nil {
					r.Log.Warn().Err(err).Str("occurrence", occ.ID).Msg("relink failed")
				}
			}
		}

		if linked {
			row := r.rowFrom(orgID, occ)
			row.ID = remoteID
			err := r.Remote.Update(ctx, row)
			switch {
			case errors.Is(err, ErrRowNotFound):
				// Counterpart vanished remotely: recreate and relink.
				r.create(ctx, orgID, occ, key, createdThisRun, &rep)
			case err != nil:
				rep.Failed++
				r.Log.Error().Err(err).Str("occurrence", occ.ID).Msg("remote update failed")
			default:
				rep.Updated++
			}
			r.pause()
			continue
		}

		// Create path, guarded against both within-run and cross-run
		// duplication.
		if _, dup := createdThisRun[key]; dup {
			rep.Skipped++
			continue
		}
		if _, exists := byKey[key]; exists {
			rep.Skipped++
			continue
		}
		r.create(ctx, orgID, occ, key, createdThisRun, &rep)
		r.pause()
	}

	rep.FinishedAt = time.Now()
	r.Log.Info().
		Str("run_id", rep.RunID).
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("reconciliation finished")
	return rep, nil
}

func (r *Reconciler) create(ctx context.Context, orgID uint64, occ task.Occurrence, key rowKey, createdThisRun map[rowKey]struct{}, rep *Report) {
	id, err := r.Remote.Create(ctx, r.rowFrom(orgID, occ))
	if err != nil {
		rep.Failed++
		r.Log.Error().Err(err).Str("occurrence", occ.ID).Msg("remote create failed")
		return
	}
	rep.Created++
	createdThisRun[key] = struct{}{}
	if err := r.Links.Set(ctx, orgID, occ.TemplateID, occ.DateKey(), id); err != nil {
		r.Log.Warn().Err(err).Str("occurrence", occ.ID).Msg("link write failed")
	}
}

func (r *Reconciler) rowFrom(orgID uint64, occ task.Occurrence) Row {
	return Row{
		OrgID:     orgID,
		Name:      occ.Title,
		DueDate:   occ.DateKey(),
		Instance:  occ.Instance,
		Completed: occ.Completed,
		Important: occ.Important,
		Notes:     occ.Notes,
	}
}

// pause runs to completion even on a cancelled context; a long run simply
// finishes and reports partial success.
func (r *Reconciler) pause() {
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
}
