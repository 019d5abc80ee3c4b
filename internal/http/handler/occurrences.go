package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cadence/internal/auth"
	"cadence/internal/dates"
	"cadence/internal/recur"
	"cadence/internal/task"
)

type OccurrenceHandler struct {
	Svc      *task.Service
	Expander *recur.Expander
}

type occurrenceDTO struct {
	ID           string   `json:"id"`
	TemplateID   uint64   `json:"template_id"`
	Instance     int      `json:"instance"`
	Date         string   `json:"date"`
	Generated    bool     `json:"generated"`
	Project      string   `json:"project"`
	Title        string   `json:"title"`
	Assignees    []string `json:"assignees"`
	Important    bool     `json:"important"`
	Completed    bool     `json:"completed"`
	Notes        string   `json:"notes"`
	DocumentLink string   `json:"document_link"`
}

// List returns the effective occurrence calendar: templates expanded and
// overrides applied, optionally windowed by from/to (inclusive, any
// accepted date format).
func (h *OccurrenceHandler) List(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	var from, to time.Time
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := dates.Parse(v)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		from = t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := dates.Parse(v)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		to = t
	}

	templates, err := h.Svc.ListTemplates(r.Context(), oid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	overrides, err := h.Svc.ListOverrides(r.Context(), oid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	effective := recur.Effective(h.Expander, templates, overrides)

	out := make([]occurrenceDTO, 0, len(effective))
	for _, occ := range effective {
		if !from.IsZero() && occ.Date.Before(from) {
			continue
		}
		if !to.IsZero() && occ.Date.After(to) {
			continue
		}
		out = append(out, occurrenceDTO{
			ID:           occ.ID,
			TemplateID:   occ.TemplateID,
			Instance:     occ.Instance,
			Date:         occ.DateKey(),
			Generated:    occ.Generated,
			Project:      occ.Project,
			Title:        occ.Title,
			Assignees:    occ.Assignees,
			Important:    occ.Important,
			Completed:    occ.Completed,
			Notes:        occ.Notes,
			DocumentLink: occ.DocumentLink,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
