package task

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"cadence/internal/dates"
)

var ErrNotFound = errors.New("not found")
var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	DB *gorm.DB
}

type TemplateInput struct {
	Project        string
	Title          string
	Assignees      Assignees
	Deadline       string
	Recurring      bool
	IntervalMonths int
	FinalDate      *string
	Important      bool
	Notes          string
	DocumentLink   string
}

// CreateTemplate stores a new template. The deadline is normalized to the
// canonical form when it parses; a raw value is kept otherwise so the
// expander can degrade it instead of the write failing.
func (s *Service) CreateTemplate(ctx context.Context, orgID uint64, in TemplateInput) (*Template, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Deadline) == "" {
		return nil, ErrInvalidInput
	}

	t := Template{
		OrgID:          orgID,
		Project:        strings.TrimSpace(in.Project),
		Title:          in.Title,
		Assignees:      pq.StringArray(in.Assignees),
		Deadline:       normalizeOrKeep(in.Deadline),
		Recurring:      in.Recurring,
		IntervalMonths: in.IntervalMonths,
		Important:      in.Important,
		Notes:          in.Notes,
		DocumentLink:   strings.TrimSpace(in.DocumentLink),
	}
	if in.FinalDate != nil && strings.TrimSpace(*in.FinalDate) != "" {
		fd := normalizeOrKeep(*in.FinalDate)
		t.FinalDate = &fd
	}

	if err := s.DB.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) ListTemplates(ctx context.Context, orgID uint64) ([]Template, error) {
	var ts []Template
	if err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("id asc").
		Find(&ts).Error; err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *Service) GetTemplate(ctx context.Context, orgID, id uint64) (*Template, error) {
	var t Template
	err := s.DB.WithContext(ctx).Where("id = ? AND org_id = ?", id, orgID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TemplatePatch carries template-scoped edits. These apply to every
// non-overridden occurrence on the next expansion; recorded overrides are
// never touched.
type TemplatePatch struct {
	Project        *string
	Title          *string
	Assignees      *Assignees
	Deadline       *string
	Recurring      *bool
	IntervalMonths *int
	FinalDate      *string
	Important      *bool
	Completed      *bool
	Notes          *string
	DocumentLink   *string
}

func (s *Service) UpdateTemplate(ctx context.Context, orgID, id uint64, p TemplatePatch) (*Template, error) {
	t, err := s.GetTemplate(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if p.Project != nil {
		t.Project = strings.TrimSpace(*p.Project)
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrInvalidInput
		}
		t.Title = title
	}
	if p.Assignees != nil {
		t.Assignees = pq.StringArray(*p.Assignees)
	}
	if p.Deadline != nil {
		t.Deadline = normalizeOrKeep(*p.Deadline)
	}
	if p.Recurring != nil {
		t.Recurring = *p.Recurring
	}
	if p.IntervalMonths != nil {
		t.IntervalMonths = *p.IntervalMonths
	}
	if p.FinalDate != nil {
		if strings.TrimSpace(*p.FinalDate) == "" {
			t.FinalDate = nil
		} else {
			fd := normalizeOrKeep(*p.FinalDate)
			t.FinalDate = &fd
		}
	}
	if p.Important != nil {
		t.Important = *p.Important
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.DocumentLink != nil {
		t.DocumentLink = strings.TrimSpace(*p.DocumentLink)
	}

	if err := s.DB.WithContext(ctx).Save(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTemplate removes a template and cascades its overrides in one
// transaction, so no override row is ever orphaned.
func (s *Service) DeleteTemplate(ctx context.Context, orgID, id uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t Template
		if err := tx.Where("id = ? AND org_id = ?", id, orgID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("template_id = ? AND org_id = ?", id, orgID).
			Delete(&Override{}).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
}

func (s *Service) ListOverrides(ctx context.Context, orgID uint64) ([]Override, error) {
	var ovs []Override
	if err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("template_id asc, date asc").
		Find(&ovs).Error; err != nil {
		return nil, err
	}
	return ovs, nil
}

// OverrideFields is the subset of occurrence fields a single write may
// change. Nil means "leave as is".
type OverrideFields struct {
	Completed    *bool
	Important    *bool
	Title        *string
	Notes        *string
	DocumentLink *string
	Deleted      *bool
}

// UpsertOverride records a per-occurrence exception for (templateID, date).
// A second write for the same key updates the existing row; it is never an
// error and never a duplicate. The unique index on (template_id, date)
// backs this up at the database level.
func (s *Service) UpsertOverride(ctx context.Context, orgID, templateID uint64, date string, f OverrideFields) (*Override, error) {
	day, err := dates.Normalize(date)
	if err != nil {
		return nil, ErrInvalidInput
	}

	var out Override
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// ensure the template belongs to the org
		var t Template
		if err := tx.Where("id = ? AND org_id = ?", templateID, orgID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var ov Override
		err := tx.Where("template_id = ? AND date = ?", templateID, day).First(&ov).Error
		switch {
		case err == nil:
			// fall through to update
		case errors.Is(err, gorm.ErrRecordNotFound):
			ov = Override{OrgID: orgID, TemplateID: templateID, Date: day}
		default:
			return err
		}

		if f.Completed != nil {
			ov.Completed = f.Completed
		}
		if f.Important != nil {
			ov.Important = f.Important
		}
		if f.Title != nil {
			ov.Title = f.Title
		}
		if f.Notes != nil {
			ov.Notes = f.Notes
		}
		if f.DocumentLink != nil {
			ov.DocumentLink = f.DocumentLink
		}
		if f.Deleted != nil {
			ov.Deleted = *f.Deleted
		}

		if err := tx.Save(&ov).Error; err != nil {
			return err
		}
		out = ov
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func normalizeOrKeep(raw string) string {
	if norm, err := dates.Normalize(raw); err == nil {
		return norm
	}
	return strings.TrimSpace(raw)
}
