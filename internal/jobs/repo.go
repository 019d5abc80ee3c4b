package jobs

import (
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// EnqueueReconcile schedules a reconciliation run for one org. A pending
// or running reconcile job for the same org makes this a no-op so triggers
// never pile up.
func (r *Repo) EnqueueReconcile(orgID uint64, runAt time.Time) (bool, error) {
	res := r.DB.Exec(`
insert into jobs (org_id, type, payload, run_at, status, attempts, max_attempts, created_at, updated_at)
select ?, 'RECONCILE_RUN', '{}'::jsonb, ?, 'PENDING', 0, 8, now(), now()
where not exists (
  select 1 from jobs
  where org_id = ? and type = 'RECONCILE_RUN' and status in ('PENDING','RUNNING')
)`, orgID, runAt, orgID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// EnqueueReconcileAll schedules a run for every org that has none pending.
// Used by the periodic scheduler.
func (r *Repo) EnqueueReconcileAll(runAt time.Time) error {
	return r.DB.Exec(`
insert into jobs (org_id, type, payload, run_at, status, attempts, max_attempts, created_at, updated_at)
select o.id, 'RECONCILE_RUN', '{}'::jsonb, ?, 'PENDING', 0, 8, now(), now()
from orgs o
where not exists (
  select 1 from jobs j
  where j.org_id = o.id and j.type = 'RECONCILE_RUN' and j.status in ('PENDING','RUNNING')
)`, runAt).Error
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(workerID string) (*Job, error) {
	var job Job
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// requeue stuck RUNNING jobs (optional safety)
		tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`)

		// claim
		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(id uint64) error {
	return r.DB.Exec(`update jobs set status='DONE', updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(id uint64, errMsg string) error {
	return r.DB.Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}
