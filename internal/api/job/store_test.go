package job

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/strata/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("backtest")
	if job.ID == "" {
		t.Error("expected job ID")
	}
	if job.Status != StatusPending {
		t.Errorf("expected pending, got %s", job.Status)
	}

	retrieved, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != job.ID {
		t.Error("IDs don't match")
	}
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("backtest")

	err := store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, _ := store.Get(job.ID)
	if retrieved.Status != StatusRunning {
		t.Errorf("expected running, got %s", retrieved.Status)
	}
	if retrieved.Progress != 50 {
		t.Errorf("expected 50, got %d", retrieved.Progress)
	}
}

func TestStore_CompleteAndFail(t *testing.T) {
	store := NewStore(10, time.Hour)
	ok := store.Create("backtest")
	bad := store.Create("backtest")

	store.Complete(ok.ID, map[string]int{"trades": 3})
	store.Fail(bad.ID, core.Errorf(core.ErrProvider, "no data"))

	got, _ := store.Get(ok.ID)
	if got.Status != StatusComplete || got.Progress != 100 || got.Result == nil {
		t.Errorf("unexpected completed job %+v", got)
	}

	got, _ = store.Get(bad.ID)
	if got.Status != StatusFailed || got.Error == nil || got.Error.Code != "PROVIDER_ERROR" {
		t.Errorf("unexpected failed job %+v", got)
	}
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1 := store.Create("backtest")
	store.Create("backtest")
	store.Create("backtest") // Should evict job1

	_, err := store.Get(job1.ID)
	if err == nil {
		t.Error("expected job1 to be evicted")
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if err := store.Update("nonexistent", func(*Job) {}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected NOT_FOUND on update, got %v", err)
	}
}

func TestStore_TTLExpiresFinishedJobs(t *testing.T) {
	store := NewStore(100, time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("backtest")
	running := store.Create("backtest")
	store.Complete(done.ID, nil)
	store.Update(running.ID, func(j *Job) { j.Status = StatusRunning })

	now = now.Add(2 * time.Hour)

	if _, err := store.Get(done.ID); err == nil {
		t.Error("finished job should expire after ttl")
	}
	if _, err := store.Get(running.ID); err != nil {
		t.Errorf("running job should not expire: %v", err)
	}

	store.Create("backtest") // prunes
	if len(store.List()) != 2 {
		t.Errorf("expected 2 live jobs, got %d", len(store.List()))
	}
}

func TestStore_ListAndActive(t *testing.T) {
	store := NewStore(100, time.Hour)
	a := store.Create("backtest")
	store.Create("compare")
	store.Complete(a.ID, nil)
	store.Create("backtest")

	jobs := store.List()
	if len(jobs) != 3 {
		t.Errorf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != a.ID {
		t.Error("expected creation order")
	}
	if n := store.Active("backtest"); n != 1 {
		t.Errorf("expected 1 active backtest, got %d", n)
	}
}
