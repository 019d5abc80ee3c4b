package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cadence/internal/auth"
	"cadence/internal/task"

	"github.com/go-chi/chi/v5"
)

type TemplateHandler struct {
	Svc *task.Service
}

type templateReq struct {
	Project        string         `json:"project"`
	Title          string         `json:"title"`
	Assignees      task.Assignees `json:"assignees"`
	Deadline       string         `json:"deadline"`
	Recurring      bool           `json:"recurring"`
	IntervalMonths int            `json:"interval_months"`
	FinalDate      *string        `json:"final_date"`
	Important      bool           `json:"important"`
	Notes          string         `json:"notes"`
	DocumentLink   string         `json:"document_link"`
}

type templateDTO struct {
	ID             uint64    `json:"id"`
	Project        string    `json:"project"`
	Title          string    `json:"title"`
	Assignees      []string  `json:"assignees"`
	Deadline       string    `json:"deadline"`
	Recurring      bool      `json:"recurring"`
	IntervalMonths int       `json:"interval_months"`
	FinalDate      *string   `json:"final_date"`
	Important      bool      `json:"important"`
	Completed      bool      `json:"completed"`
	Notes          string    `json:"notes"`
	DocumentLink   string    `json:"document_link"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toTemplateDTO(t task.Template) templateDTO {
	return templateDTO{
		ID:             t.ID,
		Project:        t.Project,
		Title:          t.Title,
		Assignees:      []string(t.Assignees),
		Deadline:       t.Deadline,
		Recurring:      t.Recurring,
		IntervalMonths: t.IntervalMonths,
		FinalDate:      t.FinalDate,
		Important:      t.Important,
		Completed:      t.Completed,
		Notes:          t.Notes,
		DocumentLink:   t.DocumentLink,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	var req templateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	t, err := h.Svc.CreateTemplate(r.Context(), oid, task.TemplateInput{
		Project:        req.Project,
		Title:          req.Title,
		Assignees:      req.Assignees,
		Deadline:       req.Deadline,
		Recurring:      req.Recurring,
		IntervalMonths: req.IntervalMonths,
		FinalDate:      req.FinalDate,
		Important:      req.Important,
		Notes:          req.Notes,
		DocumentLink:   req.DocumentLink,
	})
	if err != nil {
		if errors.Is(err, task.ErrInvalidInput) {
			http.Error(w, "invalid input", http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toTemplateDTO(*t))
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	ts, err := h.Svc.ListTemplates(r.Context(), oid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]templateDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTemplateDTO(t))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.Svc.GetTemplate(r.Context(), oid, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toTemplateDTO(*t))
}

type templatePatchReq struct {
	Project        *string         `json:"project"`
	Title          *string         `json:"title"`
	Assignees      *task.Assignees `json:"assignees"`
	Deadline       *string         `json:"deadline"`
	Recurring      *bool           `json:"recurring"`
	IntervalMonths *int            `json:"interval_months"`
	FinalDate      *string         `json:"final_date"`
	Important      *bool           `json:"important"`
	Completed      *bool           `json:"completed"`
	Notes          *string         `json:"notes"`
	DocumentLink   *string         `json:"document_link"`
}

// Patch carries template-scoped edits; occurrence-scoped changes go
// through the override endpoint instead.
func (h *TemplateHandler) Patch(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req templatePatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	t, err := h.Svc.UpdateTemplate(r.Context(), oid, id, task.TemplatePatch{
		Project:        req.Project,
		Title:          req.Title,
		Assignees:      req.Assignees,
		Deadline:       req.Deadline,
		Recurring:      req.Recurring,
		IntervalMonths: req.IntervalMonths,
		FinalDate:      req.FinalDate,
		Important:      req.Important,
		Completed:      req.Completed,
		Notes:          req.Notes,
		DocumentLink:   req.DocumentLink,
	})
	if err != nil {
		switch {
		case errors.Is(err, task.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, task.ErrInvalidInput):
			http.Error(w, "invalid input", http.StatusBadRequest)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toTemplateDTO(*t))
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	oid, _ := auth.OrgIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.DeleteTemplate(r.Context(), oid, id); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
