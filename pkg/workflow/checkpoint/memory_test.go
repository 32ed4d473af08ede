package checkpoint

import (
	"context"
	"testing"
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	threadID := "proposal:6f1e1f6a-9a34-4b31-8a56-0f2b3f7c9d10:user:c2a7e9b8-1d45-4f6e-92aa-7b8c5d4e3f21"
	now := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)

	got, err := store.Get(ctx, threadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get on empty store = %+v, want nil", got)
	}

	st := state.New("doc-1", []state.SectionID{"problem_statement"}, now)
	if err := store.Put(ctx, threadID, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = store.Get(ctx, threadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ThreadID != threadID {
		t.Fatalf("Get = %+v", got)
	}
	if got.State.Sections["problem_statement"].Status != state.StatusQueued {
		t.Errorf("stored state = %+v", got.State.Sections["problem_statement"])
	}

	// Last write wins.
	st.Status = state.WorkflowInterrupted
	if err := store.Put(ctx, threadID, st); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, _ = store.Get(ctx, threadID)
	if got.State.Status != state.WorkflowInterrupted {
		t.Errorf("status = %s, want INTERRUPTED", got.State.Status)
	}

	if err := store.Delete(ctx, threadID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = store.Get(ctx, threadID)
	if got != nil {
		t.Errorf("Get after Delete = %+v, want nil", got)
	}
}

func TestMemoryStoreIsolatesStoredState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	st := state.New("doc-1", []state.SectionID{"objectives"}, now)
	if err := store.Put(ctx, "t-1", st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Mutating the caller's copy must not leak into the checkpoint.
	rec := st.Sections["objectives"]
	rec.Status = state.StatusError
	st.Sections["objectives"] = rec

	got, err := store.Get(ctx, "t-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State.Sections["objectives"].Status != state.StatusQueued {
		t.Errorf("checkpoint shares memory with caller: %s", got.State.Sections["objectives"].Status)
	}
}

func TestMemoryStoreListNamespaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	st := state.New("doc-1", nil, now)

	userA := "proposal:6f1e1f6a-9a34-4b31-8a56-0f2b3f7c9d10:user:c2a7e9b8-1d45-4f6e-92aa-7b8c5d4e3f21"
	threads := []string{
		userA,
		userA + ":subgraph:budget_detail",
		"proposal:0e9d8c7b-6a5f-4e3d-2c1b-0a9f8e7d6c5b:user:c2a7e9b8-1d45-4f6e-92aa-7b8c5d4e3f21",
	}
	for _, id := range threads {
		if err := store.Put(ctx, id, st); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}

	got, err := store.ListNamespaces(ctx, userA)
	if err != nil {
		t.Fatalf("ListNamespaces: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListNamespaces = %v, want the thread and its subgraph", got)
	}
	if got[0] != userA || got[1] != userA+":subgraph:budget_detail" {
		t.Errorf("ListNamespaces order = %v", got)
	}

	all, err := store.ListNamespaces(ctx, "proposal:")
	if err != nil {
		t.Fatalf("ListNamespaces: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListNamespaces(proposal:) = %v, want 3 threads", all)
	}
}
