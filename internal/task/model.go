package task

import (
	"strconv"
	"time"

	"github.com/lib/pq"

	"cadence/internal/dates"
)

// Template is the stored, possibly-recurring task definition.
// Occurrences are derived from it on every read, never persisted.
type Template struct {
	ID      uint64 `gorm:"primaryKey"`
	OrgID   uint64 `gorm:"index;not null"`
	Project string `gorm:"type:text;not null;default:''"`
	Title   string `gorm:"type:text;not null"`

	Assignees pq.StringArray `gorm:"type:text[];not null;default:'{}'"`

	// Deadline is kept as entered. It is normalized to yyyy-MM-dd when it
	// parses; otherwise the raw value stays and expansion degrades the
	// template to a single occurrence.
	Deadline string `gorm:"type:text;not null"`

	Recurring      bool    `gorm:"not null;default:false"`
	IntervalMonths int     `gorm:"not null;default:0"`
	FinalDate      *string `gorm:"type:text"`

	Important    bool   `gorm:"not null;default:false"`
	Completed    bool   `gorm:"not null;default:false"`
	Notes        string `gorm:"type:text;not null;default:''"`
	DocumentLink string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// Override is a sparse exception record for exactly one occurrence,
// keyed by (template id, canonical occurrence date). At most one row
// exists per key; writes for an existing key update in place.
// Nil pointer fields mean "not overridden" and keep the template value.
type Override struct {
	ID         uint64 `gorm:"primaryKey"`
	OrgID      uint64 `gorm:"index;not null"`
	TemplateID uint64 `gorm:"index;not null"`
	Date       string `gorm:"type:text;not null"` // canonical yyyy-MM-dd

	Completed    *bool
	Important    *bool
	Title        *string `gorm:"type:text"`
	Notes        *string `gorm:"type:text"`
	DocumentLink *string `gorm:"type:text"`

	// Deleted suppresses the occurrence from every effective view without
	// touching the template or this record (soft delete).
	Deleted bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// Occurrence is one concrete dated instance of a template. It only ever
// exists in memory, rebuilt from (template, overrides) on each read.
type Occurrence struct {
	ID         string `json:"id"`
	TemplateID uint64 `json:"template_id"`

	// Instance is the 1-based position in the template's date sequence.
	Instance int `json:"instance"`

	// Date is this occurrence's own deadline. Zero when the template's
	// deadline did not parse.
	Date time.Time `json:"date"`

	// Generated is false when the occurrence is the template itself
	// (non-recurring or degraded templates).
	Generated bool `json:"generated"`

	Project      string   `json:"project"`
	Title        string   `json:"title"`
	Assignees    []string `json:"assignees"`
	Important    bool     `json:"important"`
	Completed    bool     `json:"completed"`
	Notes        string   `json:"notes"`
	DocumentLink string   `json:"document_link"`
}

// DateKey returns the canonical date used to match overrides and remote
// rows. Empty for occurrences without a parseable date.
func (o Occurrence) DateKey() string {
	if o.Date.IsZero() {
		return ""
	}
	return dates.Format(o.Date)
}

// FromTemplate builds the occurrence for a given date in the template's
// sequence. A zero date marks a degraded template carried through as-is.
func FromTemplate(t Template, date time.Time, instance int, generated bool) Occurrence {
	id := strconv.FormatUint(t.ID, 10)
	if generated {
		id += "_" + dates.Format(date)
	}
	return Occurrence{
		ID:           id,
		TemplateID:   t.ID,
		Instance:     instance,
		Date:         date,
		Generated:    generated,
		Project:      t.Project,
		Title:        t.Title,
		Assignees:    []string(t.Assignees),
		Important:    t.Important,
		Completed:    t.Completed,
		Notes:        t.Notes,
		DocumentLink: t.DocumentLink,
	}
}
