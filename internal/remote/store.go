package remote

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Row is one flat entry in the remote task list. The remote side has no
// native recurrence, so every occurrence materializes as its own row.
// DueDate is whatever format the remote happens to store; it is normalized
// before any comparison.
type Row struct {
	ID        string
	OrgID     uint64
	Name      string
	DueDate   string
	Instance  int
	Completed bool
	Important bool
	Notes     string
}

// List is the remote flat-row store the reconciler writes into.
type List interface {
	List(ctx context.Context, orgID uint64) ([]Row, error)
	Create(ctx context.Context, row Row) (string, error)
	Update(ctx context.Context, row Row) error
}

// LinkStore records which remote row a local occurrence materialized into.
type LinkStore interface {
	Get(ctx context.Context, templateID uint64, date string) (string, bool, error)
	Set(ctx context.Context, orgID, templateID uint64, date, remoteID string) error
}

// RowRecord is the gorm-backed remote list used when the remote side lives
// in the same database (the seam for an external list API is the List
// interface above).
type RowRecord struct {
	ID        uint64    `gorm:"primaryKey"`
	RowID     string    `gorm:"uniqueIndex;not null"`
	OrgID     uint64    `gorm:"index;not null"`
	Name      string    `gorm:"type:text;not null"`
	DueDate   string    `gorm:"type:text;not null"`
	Instance  int       `gorm:"not null;default:0"`
	Completed bool      `gorm:"not null;default:false"`
	Important bool      `gorm:"not null;default:false"`
	Notes     string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (RowRecord) TableName() string { return "remote_rows" }

type GormList struct {
	DB *gorm.DB
}

func (g *GormList) List(ctx context.Context, orgID uint64) ([]Row, error) {
	var recs []RowRecord
	if err := g.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("id asc").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, Row{
			ID:        r.RowID,
			OrgID:     r.OrgID,
			Name:      r.Name,
			DueDate:   r.DueDate,
			Instance:  r.Instance,
			Completed: r.Completed,
			Important: r.Important,
			Notes:     r.Notes,
		})
	}
	return rows, nil
}

func (g *GormList) Create(ctx context.Context, row Row) (string, error) {
	rec := RowRecord{
		RowID:     uuid.NewString(),
		OrgID:     row.OrgID,
		Name:      row.Name,
		DueDate:   row.DueDate,
		Instance:  row.Instance,
		Completed: row.Completed,
		Important: row.Important,
		Notes:     row.Notes,
	}
	if err := g.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", err
	}
	return rec.RowID, nil
}

func (g *GormList) Update(ctx context.Context, row Row) error {
	res := g.DB.WithContext(ctx).
		Model(&RowRecord{}).
		Where("row_id = ?", row.ID).
		Updates(map[string]any{
			"name":      row.Name,
			"due_date":  row.DueDate,
			"instance":  row.Instance,
			"completed": row.Completed,
			"important": row.Important,
			"notes":     row.Notes,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (g *GormList) Delete(ctx context.Context, rowID string) error {
	return g.DB.WithContext(ctx).Where("row_id = ?", rowID).Delete(&RowRecord{}).Error
}

// ErrRowNotFound signals a missing remote counterpart during an update.
// The reconciler treats it as a create-then-link fallback, never fatal.
var ErrRowNotFound = errors.New("remote row not found")

// Link ties a local occurrence key to the remote row it created.
type Link struct {
	ID         uint64    `gorm:"primaryKey"`
	OrgID      uint64    `gorm:"index;not null"`
	TemplateID uint64    `gorm:"index;not null"`
	Date       string    `gorm:"type:text;not null"` // canonical yyyy-MM-dd
	RemoteID   string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;default:now()"`
}

func (Link) TableName() string { return "remote_links" }

type GormLinks struct {
	DB *gorm.DB
}

func (g *GormLinks) Get(ctx context.Context, templateID uint64, date string) (string, bool, error) {
	var l Link
	err := g.DB.WithContext(ctx).
		Where("template_id = ? AND date = ?", templateID, date).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return l.RemoteID, true, nil
}

func (g *GormLinks) Set(ctx context.Context, orgID, templateID uint64, date, remoteID string) error {
	var l Link
	err := g.DB.WithContext(ctx).
		Where("template_id = ? AND date = ?", templateID, date).
		First(&l).Error
	switch {
	case err == nil:
		l.RemoteID = remoteID
		return g.DB.WithContext(ctx).Save(&l).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		l = Link{OrgID: orgID, TemplateID: templateID, Date: date, RemoteID: remoteID}
		return g.DB.WithContext(ctx).Create(&l).Error
	default:
		return err
	}
}

// RunRecord persists the summary of one reconciliation run so callers can
// read "N succeeded, M failed" after the fact.
type RunRecord struct {
	ID         uint64    `gorm:"primaryKey"`
	RunID      string    `gorm:"uniqueIndex;not null"`
	OrgID      uint64    `gorm:"index;not null"`
	Created    int       `gorm:"not null;default:0"`
	Updated    int       `gorm:"not null;default:0"`
	Skipped    int       `gorm:"not null;default:0"`
	Failed     int       `gorm:"not null;default:0"`
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time `gorm:"not null"`
}

func (RunRecord) TableName() string { return "sync_runs" }

type Runs struct {
	DB *gorm.DB
}

func (r *Runs) SaveRun(ctx context.Context, orgID uint64, rep Report) error {
	rec := RunRecord{
		RunID:      rep.RunID,
		OrgID:      orgID,
		Created:    rep.Created,
		Updated:    rep.Updated,
		Skipped:    rep.Skipped,
		Failed:     rep.Failed,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
	}
	return r.DB.WithContext(ctx).Create(&rec).Error
}

func (r *Runs) Latest(ctx context.Context, orgID uint64) (*RunRecord, error) {
	var rec RunRecord
	err := r.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("started_at desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
