package db

import (
	"fmt"

	"cadence/internal/auth"
	"cadence/internal/jobs"
	"cadence/internal/remote"
	"cadence/internal/task"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.Org{},
		&auth.User{},
		&task.Template{},
		&task.Override{},
		&remote.RowRecord{},
		&remote.Link{},
		&remote.RunRecord{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// One override per (template, date): the second write for a key must
	// update the existing row, never add another.
	if err := gdb.Exec(`create unique index if not exists uq_overrides_template_date on overrides(template_id, date);`).Error; err != nil {
		return err
	}

	// One link per occurrence key.
	if err := gdb.Exec(`create unique index if not exists uq_links_template_date on remote_links(template_id, date);`).Error; err != nil {
		return err
	}

	// Duplicate guard mirror on the in-process remote list.
	if err := gdb.Exec(`create index if not exists idx_remote_rows_org_name_date on remote_rows(org_id, name, due_date);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_templates_org on templates(org_id, id);`,
		`create index if not exists idx_overrides_org on overrides(org_id, template_id);`,
		`create index if not exists idx_sync_runs_org_started on sync_runs(org_id, started_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
