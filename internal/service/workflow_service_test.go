package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-proposalgen-be/internal/dto"
	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/pkg/lock"
	"ai-proposalgen-be/pkg/workflow/checkpoint"
	"ai-proposalgen-be/pkg/workflow/engine"
	"ai-proposalgen-be/pkg/workflow/graph"
	"ai-proposalgen-be/pkg/workflow/interrupt"
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/thread"
	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/google/uuid"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type stubSessionService struct{}

func (stubSessionService) Create(_ context.Context, _ uuid.UUID, _ uuid.UUID, threadId string) (*entity.SessionMetadata, error) {
	return &entity.SessionMetadata{SessionId: uuid.New(), ThreadId: threadId}, nil
}
func (stubSessionService) Touch(context.Context, string)    {}
func (stubSessionService) Complete(context.Context, string) {}
func (stubSessionService) List(context.Context, uuid.UUID) (*dto.SessionListResponse, error) {
	return nil, nil
}
func (stubSessionService) Get(context.Context, uuid.UUID, uuid.UUID) (*dto.SessionResponse, error) {
	return nil, nil
}
func (stubSessionService) Close(context.Context, uuid.UUID, uuid.UUID, string) error { return nil }
func (stubSessionService) Recover(context.Context, uuid.UUID, uuid.UUID) (*dto.SessionResponse, error) {
	return nil, nil
}
func (stubSessionService) RunSweeper(context.Context) {}

type stubOpPublisher struct {
	published [][]byte
}

func (p *stubOpPublisher) Publish(_ context.Context, payload []byte) error {
	p.published = append(p.published, payload)
	return nil
}

func newWorkflowServiceForTest(t *testing.T) (*workflowService, checkpoint.Store) {
	t.Helper()

	g, err := graph.New(map[state.SectionID][]state.SectionID{
		"problem_statement": {},
		"objectives":        {"problem_statement"},
	})
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	gen := func(context.Context, state.WorkflowState, state.ContentReference) (string, error) {
		return "generated", nil
	}
	eval := func(context.Context, state.WorkflowState, state.ContentReference, string) (*state.EvaluationResult, error) {
		return &state.EvaluationResult{OverallScore: 1, Passed: true}, nil
	}
	eng := engine.New(g, engine.NewGeneratorTable(gen, gen, gen, gen), eval,
		engine.Config{MaxRetries: 3, ReviewRequired: true}, noopLogger{})

	store := checkpoint.NewMemoryStore()
	svc := NewWorkflowService(
		eng,
		interrupt.NewController(),
		store,
		lock.NewMutexMap(),
		nil,
		stubSessionService{},
		nil,
		&stubOpPublisher{},
		noopLogger{},
	).(*workflowService)
	return svc, store
}

// acceptedThread seeds a checkpoint whose sections are all accepted. The
// returned state is the stored value, not an alias.
func acceptedThread(t *testing.T, store checkpoint.Store, userId uuid.UUID) (string, state.WorkflowState) {
	t.Helper()

	threadId := thread.New(uuid.New(), userId).String()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	st := state.New("doc-1", []state.SectionID{"problem_statement", "objectives"}, now)
	for id, rec := range st.Sections {
		rec.Status = state.StatusApproved
		rec.Content = "content of " + string(id)
		st.Sections[id] = rec
	}

	if err := store.Put(context.Background(), threadId, st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return threadId, st
}

func pauseThread(t *testing.T, store checkpoint.Store, threadId string, st state.WorkflowState) {
	t.Helper()
	now := time.Now().UTC()
	paused := state.Apply(st, interrupt.NewController().Interrupt(
		"review:section:objectives", state.SectionRef("objectives"), now))
	if err := store.Put(context.Background(), threadId, paused); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestEditSectionRejectedWhileInterrupted(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userId := uuid.New()
	threadId, st := acceptedThread(t, store, userId)
	pauseThread(t, store, threadId, st)

	_, err := svc.EditSection(context.Background(), userId, &dto.EditSectionRequest{
		ThreadId:  threadId,
		SectionId: "problem_statement",
		Content:   "rewritten while paused",
	})
	if !errors.Is(err, wferrors.ErrInterruptedState) {
		t.Fatalf("err = %v, want interrupted state error", err)
	}

	// The paused thread must be untouched: no edit, no stale propagation.
	rec, getErr := store.Get(context.Background(), threadId)
	if getErr != nil || rec == nil {
		t.Fatalf("Get: %v", getErr)
	}
	if got := rec.State.Sections["problem_statement"].Content; got != "content of problem_statement" {
		t.Errorf("content = %q, edit was persisted", got)
	}
	if got := rec.State.Sections["objectives"].Status; got != state.StatusApproved {
		t.Errorf("objectives status = %s, staleness leaked through the pause", got)
	}
}

func TestResolveStaleRejectedWhileInterrupted(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userId := uuid.New()
	threadId, st := acceptedThread(t, store, userId)

	rec := st.Sections["objectives"]
	rec.PreviousStatus = rec.Status
	rec.Status = state.StatusStale
	st.Sections["objectives"] = rec
	pauseThread(t, store, threadId, st)

	_, err := svc.ResolveStale(context.Background(), userId, &dto.ResolveStaleRequest{
		ThreadId:  threadId,
		SectionId: "objectives",
		Decision:  "keep",
	})
	if !errors.Is(err, wferrors.ErrInterruptedState) {
		t.Fatalf("err = %v, want interrupted state error", err)
	}
}

func TestEditSectionPropagatesStaleness(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userId := uuid.New()
	threadId, _ := acceptedThread(t, store, userId)

	res, err := svc.EditSection(context.Background(), userId, &dto.EditSectionRequest{
		ThreadId:  threadId,
		SectionId: "problem_statement",
		Content:   "rewritten by hand",
	})
	if err != nil {
		t.Fatalf("EditSection: %v", err)
	}
	if len(res.Invalidated) != 1 || res.Invalidated[0] != "objectives" {
		t.Errorf("invalidated = %v, want [objectives]", res.Invalidated)
	}

	rec, err := store.Get(context.Background(), threadId)
	if err != nil || rec == nil {
		t.Fatalf("Get: %v", err)
	}
	if got := rec.State.Sections["problem_statement"].Status; got != state.StatusEdited {
		t.Errorf("edited section status = %s, want EDITED", got)
	}
	if got := rec.State.Sections["objectives"].Status; got != state.StatusStale {
		t.Errorf("dependent status = %s, want STALE", got)
	}
}
