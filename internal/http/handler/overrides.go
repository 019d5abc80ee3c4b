package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cadence/internal/auth"
	"cadence/internal/task"

	"github.com/go-chi/chi/v5"
)

type OverrideHandler struct {
	Svc *task.Service
}

type overrideReq struct {
	Completed    *bool   `json:"completed"`
	Important    *bool   `json:"important"`
	Title        *string `json:"title"`
	Notes        *string `json:"notes"`
	DocumentLink *string `json:"document_link"`
	Deleted      *bool   `json:"deleted"`
}

type overrideDTO struct {
	TemplateID   uint64    `json:"template_id"`
	Date         string    `json:"date"`
	Completed    *bool     `json:"completed"`
	Important    *bool     `json:"important"`
	Title        *string   `json:"title"`
	Notes        *string   `json:"notes"`
	DocumentLink *string   `json:"document_link"`
	Deleted      bool      `json:"deleted"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Upsert records occurrence-scoped changes for (template, date): toggling
// completion or urgency, editing fields, soft-deleting. Repeat writes for
// the same key update the one existing record.
func (h *OverrideHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	date := chi.URLParam(r, "date")

	var req overrideReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	ov, err := h.Svc.UpsertOverride(r.Context(), oid, id, date, task.OverrideFields{
		Completed:    req.Completed,
		Important:    req.Important,
		Title:        req.Title,
		Notes:        req.Notes,
		DocumentLink: req.DocumentLink,
		Deleted:      req.Deleted,
	})
	if err != nil {
		switch {
		case errors.Is(err, task.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, task.ErrInvalidInput):
			http.Error(w, "invalid date", http.StatusBadRequest)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(overrideDTO{
		TemplateID:   ov.TemplateID,
		Date:         ov.Date,
		Completed:    ov.Completed,
		Important:    ov.Important,
		Title:        ov.Title,
		Notes:        ov.Notes,
		DocumentLink: ov.DocumentLink,
		Deleted:      ov.Deleted,
		UpdatedAt:    ov.UpdatedAt,
	})
}
