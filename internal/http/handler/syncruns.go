package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"cadence/internal/auth"
	"cadence/internal/jobs"
	"cadence/internal/remote"
)

type SyncHandler struct {
	Jobs *jobs.Repo
	Runs *remote.Runs
}

// Trigger enqueues a reconciliation run. While one is pending or running
// for the org, further triggers are no-ops and report the queued state.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	queued, err := h.Jobs.EnqueueReconcile(oid, time.Now())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queued": queued,
	})
}

type runDTO struct {
	RunID      string    `json:"run_id"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (h *SyncHandler) Latest(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	rec, err := h.Runs.Latest(r.Context(), oid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no runs yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runDTO{
		RunID:      rec.RunID,
		Created:    rec.Created,
		Updated:    rec.Updated,
		Skipped:    rec.Skipped,
		Failed:     rec.Failed,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	})
}
