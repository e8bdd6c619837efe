package jobs

import (
	"testing"
	"time"
)

func TestStore_WriteGetRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		ID:        "job-1",
		Name:      "demo",
		Kind:      KindPredict,
		Spec:      InputSpec{InputFile: "/tmp/a.fasta"},
		State:     StateRunning,
		CreatedAt: now,
		StartedAt: &now,
	}

	if err := s.Write(rec); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := s.Get("job-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("job_id mismatch: got=%q want=%q", got.ID, rec.ID)
	}
	if got.Kind != KindPredict {
		t.Fatalf("kind mismatch: got=%q", got.Kind)
	}
	if got.State != StateRunning {
		t.Fatalf("state mismatch: got=%q", got.State)
	}
	if got.Spec.InputFile != "/tmp/a.fasta" {
		t.Fatalf("input spec not persisted: %+v", got.Spec)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(now) {
		t.Fatalf("started_at not persisted: %v", got.StartedAt)
	}
}

func TestStore_ListSortsOldestFirst(t *testing.T) {
	s := NewStore(t.TempDir())

	t1 := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

	if err := s.Write(&Record{ID: "job-2", Kind: KindPredict, State: StateCompleted, CreatedAt: t2}); err != nil {
		t.Fatalf("Write job-2: %v", err)
	}
	if err := s.Write(&Record{ID: "job-1", Kind: KindPredict, State: StateCompleted, CreatedAt: t1}); err != nil {
		t.Fatalf("Write job-1: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected job count: %d", len(got))
	}
	if got[0].ID != "job-1" || got[1].ID != "job-2" {
		t.Fatalf("expected oldest first, got %q then %q", got[0].ID, got[1].ID)
	}
}

func TestStore_ListEmptyRoot(t *testing.T) {
	s := NewStore(t.TempDir())
	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no jobs, got %d", len(got))
	}
}

func TestStore_LoadReconcilesNonTerminalJobs(t *testing.T) {
	s := NewStore(t.TempDir())

	created := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	for _, rec := range []*Record{
		{ID: "job-running", Kind: KindBatch, State: StateRunning, CreatedAt: created},
		{ID: "job-pending", Kind: KindPredict, State: StatePending, CreatedAt: created.Add(time.Minute)},
		{ID: "job-done", Kind: KindPredict, State: StateCompleted, CreatedAt: created.Add(2 * time.Minute)},
	} {
		if err := s.Write(rec); err != nil {
			t.Fatalf("Write %s: %v", rec.ID, err)
		}
	}

	recs, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("unexpected record count: %d", len(recs))
	}

	byID := map[string]Record{}
	for _, r := range recs {
		byID[r.ID] = r
	}

	for _, id := range []string{"job-running", "job-pending"} {
		r := byID[id]
		if r.State != StateFailed {
			t.Fatalf("%s: expected failed, got %q", id, r.State)
		}
		if r.Error == nil || r.Error.Kind != ErrInterrupted {
			t.Fatalf("%s: expected interrupted error, got %+v", id, r.Error)
		}
		if r.FinishedAt == nil {
			t.Fatalf("%s: finished_at not set", id)
		}
	}
	if byID["job-done"].State != StateCompleted {
		t.Fatalf("completed job must not be touched, got %q", byID["job-done"].State)
	}

	// The reconciliation must be persisted, not just in-memory.
	onDisk, err := s.Get("job-running")
	if err != nil {
		t.Fatalf("Get after Load: %v", err)
	}
	if onDisk.State != StateFailed {
		t.Fatalf("reconciled state not written back: %q", onDisk.State)
	}
}

func TestStore_WriteRequiresJobID(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Write(&Record{Kind: KindPredict}); err == nil {
		t.Fatalf("expected error for missing job_id")
	}
}
