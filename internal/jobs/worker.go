package jobs

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"cadence/internal/recur"
	"cadence/internal/remote"
	"cadence/internal/task"
)

// Worker drains the job queue. One claimed job at a time; reconcile runs
// are heavyweight and the reconciler enforces its own single-run guard on
// top of the queue dedupe.
type Worker struct {
	ID         string
	Repo       *Repo
	Tasks      *task.Service
	Expander   *recur.Expander
	Reconciler *remote.Reconciler
	Runs       *remote.Runs
	Log        zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error().Err(err).Msg("worker claim error")
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeReconcile:
		w.handleReconcile(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleReconcile(ctx context.Context, job *Job) {
	templates, err := w.Tasks.ListTemplates(ctx, job.OrgID)
	if err != nil {
		w.retry(job, "load templates: "+err.Error())
		return
	}
	overrides, err := w.Tasks.ListOverrides(ctx, job.OrgID)
	if err != nil {
		w.retry(job, "load overrides: "+err.Error())
		return
	}

	effective := recur.Effective(w.Expander, templates, overrides)

	rep, err := w.Reconciler.Reconcile(ctx, job.OrgID, effective)
	if errors.Is(err, remote.ErrSyncInProgress) {
		// Another run is already covering this org's state.
		_ = w.Repo.MarkDone(job.ID)
		return
	}
	if err != nil {
		w.retry(job, "reconcile: "+err.Error())
		return
	}

	if w.Runs != nil {
		if err := w.Runs.SaveRun(ctx, job.OrgID, rep); err != nil {
			w.Log.Warn().Err(err).Str("run_id", rep.RunID).Msg("saving run report failed")
		}
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
