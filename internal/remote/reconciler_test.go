package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/task"
)

type fakeList struct {
	mu      sync.Mutex
	rows    map[string]Row
	nextID  int
	failOn  map[string]bool // by row name
	creates int
	updates int
}

func newFakeList() *fakeList {
	return &fakeList{rows: map[string]Row{}, failOn: map[string]bool{}}
}

func (f *fakeList) List(ctx context.Context, orgID uint64) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Row, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeList) Create(ctx context.Context, row Row) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[row.Name] {
		return "", errors.New("remote unavailable")
	}
	f.nextID++
	row.ID = fmt.Sprintf("r%d", f.nextID)
	f.rows[row.ID] = row
	f.creates++
	return row.ID, nil
}

func (f *fakeList) Update(ctx context.Context, row Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[row.Name] {
		return errors.New("remote unavailable")
	}
	if _, ok := f.rows[row.ID]; !ok {
		return ErrRowNotFound
	}
	f.rows[row.ID] = row
	f.updates++
	return nil
}

type fakeLinks struct {
	mu    sync.Mutex
	links map[string]string
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{links: map[string]string{}}
}

func linkKey(templateID uint64, date string) string {
	return fmt.Sprintf("%d|%s", templateID, date)
}

func (f *fakeLinks) Get(ctx context.Context, templateID uint64, date string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.links[linkKey(templateID, date)]
	return id, ok, nil
}

func (f *fakeLinks) Set(ctx context.Context, orgID, templateID uint64, date, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[linkKey(templateID, date)] = remoteID
	return nil
}

func testReconciler(list List, links LinkStore) *Reconciler {
	return &Reconciler{Remote: list, Links: links, Log: zerolog.Nop()}
}

func occ(templateID uint64, date string, instance int, title string) task.Occurrence {
	d, _ := time.Parse("2006-01-02", date)
	return task.Occurrence{
		ID:         fmt.Sprintf("%d_%s", templateID, date),
		TemplateID: templateID,
		Instance:   instance,
		Date:       d,
		Generated:  true,
		Title:      title,
	}
}

func TestReconcileCreatesMissingRows(t *testing.T) {
	list := newFakeList()
	r := testReconciler(list, newFakeLinks())

	occs := []task.Occurrence{
		occ(1, "2024-01-01", 1, "audit"),
		occ(1, "2024-02-01", 2, "audit"),
	}

	rep, err := r.Reconcile(context.Background(), 10, occs)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Created)
	assert.Equal(t, 0, rep.Updated)
	assert.Equal(t, 0, rep.Failed)
	assert.NotEmpty(t, rep.RunID)
	assert.Len(t, list.rows, 2)
}

func TestReconcileIdempotence(t *testing.T) {
	list := newFakeList()
	links := newFakeLinks()
	r := testReconciler(list, links)

	occs := []task.Occurrence{
		occ(1, "2024-01-01", 1, "audit"),
		occ(1, "2024-02-01", 2, "audit"),
	}

	first, err := r.Reconcile(context.Background(), 10, occs)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	second, err := r.Reconcile(context.Background(), 10, occs)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created, "second run must create nothing")
	assert.Equal(t, 2, second.Updated)
	assert.Len(t, list.rows, 2)
}

func TestReconcileNormalizesRemoteDates(t *testing.T) {
	list := newFakeList()
	// remote already has the row, but with a US-format date string
	list.rows["r1"] = Row{ID: "r1", OrgID: 10, Name: "audit", DueDate: "1/1/2024", Instance: 1}
	r := testReconciler(list, newFakeLinks())

	rep, err := r.Reconcile(context.Background(), 10, []task.Occurrence{
		occ(1, "2024-01-01", 1, "audit"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Created, "heterogeneous date formats must not cause a duplicate create")
	assert.Equal(t, 1, rep.Updated, "unlinked row should be found by (name, date, instance) and relinked")
	assert.Len(t, list.rows, 1)
}

func TestReconcileSkipsSameKeyDifferentInstance(t *testing.T) {
	list := newFakeList()
	list.rows["r1"] = Row{ID: "r1", OrgID: 10, Name: "audit", DueDate: "2024-01-01", Instance: 9}
	r := testReconciler(list, newFakeLinks())

	rep, err := r.Reconcile(context.Background(), 10, []task.Occurrence{
		occ(1, "2024-01-01", 1, "audit"),
	})
	require.NoError(t, err)
	// instance mismatch means no relink, but the (name, date) guard still
	// forbids creating a second row for the pair
	assert.Equal(t, 0, rep.Created)
	assert.Equal(t, 1, rep.Skipped)
	assert.Len(t, list.rows, 1)
}

func TestReconcilePartialFailureContinuesBatch(t *testing.T) {
	list := newFakeList()
	list.failOn["doomed"] = true
	r := testReconciler(list, newFakeLinks())

	rep, err := r.Reconcile(context.Background(), 10, []task.Occurrence{
		occ(1, "2024-01-01", 1, "audit"),
		occ(2, "2024-01-01", 1, "doomed"),
		occ(3, "2024-01-01", 1, "filing"),
	})
	require.NoError(t, err, "per-item failures are counted, not propagated")
	assert.Equal(t, 2, rep.Created)
	assert.Equal(t, 1, rep.Failed)
}

func TestReconcileRecreatesVanishedRow(t *testing.T) {
	list := newFakeList()
	links := newFakeLinks()
	require.NoError(t, links.Set(context.Background(), 10, 1, "2024-01-01", "gone"))
	r := testReconciler(list, links)

	rep, err := r.Reconcile(context.Background(), 10, []task.Occurrence{
		occ(1, "2024-01-01", 1, "audit"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created, "missing counterpart triggers create-then-link, not a failure")
	assert.Equal(t, 0, rep.Failed)

	id, ok, err := links.Get(context.Background(), 1, "2024-01-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, "gone", id)
}

func TestReconcileSecondTriggerIsNoOp(t *testing.T) {
	list := newFakeList()
	r := testReconciler(list, newFakeLinks())

	occs := []task.Occurrence{occ(1, "2024-01-01", 1, "audit")}

	// simulate a run holding the guard
	r.running.Store(true)
	rep, err := r.Reconcile(context.Background(), 10, occs)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Zero(t, rep.Created)
	assert.Empty(t, rep.RunID)
	r.running.Store(false)

	// guard released: the next trigger runs normally
	rep, err = r.Reconcile(context.Background(), 10, occs)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)
}

func TestReconcileSkipsOccurrencesWithoutDate(t *testing.T) {
	list := newFakeList()
	r := testReconciler(list, newFakeLinks())

	rep, err := r.Reconcile(context.Background(), 10, []task.Occurrence{
		{ID: "9", TemplateID: 9, Instance: 1, Title: "degraded"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 0, rep.Created)
}
