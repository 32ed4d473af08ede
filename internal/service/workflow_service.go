package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-proposalgen-be/internal/dto"
	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/pkg/lock"
	"ai-proposalgen-be/internal/pkg/logger"
	"ai-proposalgen-be/internal/repository/specification"
	"ai-proposalgen-be/internal/repository/unitofwork"
	"ai-proposalgen-be/pkg/events"
	"ai-proposalgen-be/pkg/workflow/checkpoint"
	"ai-proposalgen-be/pkg/workflow/engine"
	"ai-proposalgen-be/pkg/workflow/graph"
	"ai-proposalgen-be/pkg/workflow/interrupt"
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/thread"
	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/google/uuid"
)

// IEventPublisher decouples the service from the concrete NATS publisher.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IWorkflowService interface {
	Start(ctx context.Context, userId uuid.UUID, req *dto.StartWorkflowRequest) (*dto.StartWorkflowResponse, error)
	SubmitFeedback(ctx context.Context, userId uuid.UUID, req *dto.SubmitFeedbackRequest) (*dto.WorkflowStepResponse, error)
	Resume(ctx context.Context, userId uuid.UUID, req *dto.ResumeWorkflowRequest) (*dto.WorkflowStepResponse, error)
	Advance(ctx context.Context, userId uuid.UUID, threadId string, ref string) error
	InterruptStatus(ctx context.Context, userId uuid.UUID, threadId string) (*dto.InterruptStatusResponse, error)
	GetState(ctx context.Context, userId uuid.UUID, threadId string) (*dto.WorkflowStateResponse, error)
	EditSection(ctx context.Context, userId uuid.UUID, req *dto.EditSectionRequest) (*dto.EditSectionResponse, error)
	ResolveStale(ctx context.Context, userId uuid.UUID, req *dto.ResolveStaleRequest) (*dto.WorkflowStepResponse, error)
}

type workflowService struct {
	engine          *engine.Engine
	interrupts      *interrupt.Controller
	store           checkpoint.Store
	locks           *lock.MutexMap
	uowFactory      unitofwork.RepositoryFactory
	sessionService  ISessionService
	eventPublisher  IEventPublisher
	opPublisher     IPublisherService
	logger          logger.ILogger
	defaultSections []state.SectionID
}

func NewWorkflowService(
	eng *engine.Engine,
	interrupts *interrupt.Controller,
	store checkpoint.Store,
	locks *lock.MutexMap,
	uowFactory unitofwork.RepositoryFactory,
	sessionService ISessionService,
	eventPublisher IEventPublisher,
	opPublisher IPublisherService,
	log logger.ILogger,
) IWorkflowService {
	return &workflowService{
		engine:          eng,
		interrupts:      interrupts,
		store:           store,
		locks:           locks,
		uowFactory:      uowFactory,
		sessionService:  sessionService,
		eventPublisher:  eventPublisher,
		opPublisher:     opPublisher,
		logger:          log,
		defaultSections: eng.Graph().TopoOrder(),
	}
}

func (s *workflowService) Start(ctx context.Context, userId uuid.UUID, req *dto.StartWorkflowRequest) (*dto.StartWorkflowResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	proposal, err := uow.ProposalRepository().FindOne(ctx,
		specification.ByID{ID: req.ProposalId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		// First run for this proposal id creates the record.
		proposal = &entity.Proposal{
			Id:               req.ProposalId,
			UserId:           userId,
			Title:            req.Title,
			SourceDocumentId: req.SourceDocumentId,
			Status:           "DRAFT",
			CreatedAt:        time.Now(),
		}
		if err := uow.ProposalRepository().Create(ctx, proposal); err != nil {
			return nil, err
		}
	}

	tid := thread.New(req.ProposalId, userId)
	if req.Subgraph != "" {
		tid = tid.WithSubgraph(req.Subgraph)
	}
	threadId := tid.String()

	s.locks.Lock(threadId)
	defer s.locks.Unlock(threadId)

	if rec, err := s.store.Get(ctx, threadId); err != nil {
		return nil, err
	} else if rec != nil {
		return nil, wferrors.InvalidState("workflow already exists for thread %s", threadId)
	}

	required := s.defaultSections
	if len(req.RequiredSections) > 0 {
		required = make([]state.SectionID, len(req.RequiredSections))
		for i, id := range req.RequiredSections {
			required[i] = state.SectionID(id)
		}
	}

	now := time.Now().UTC()
	st := state.New(req.SourceDocumentId, required, now)

	session, err := s.sessionService.Create(ctx, userId, req.ProposalId, threadId)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, threadId, st); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.TypeWorkflowStarted, threadId, map[string]interface{}{
		"proposal_id": req.ProposalId.String(),
		"sections":    len(required),
	})

	// Generation runs in the background; the client learns about pauses
	// through the websocket channel or by polling the interrupt endpoint.
	if err := s.submitAdvance(ctx, userId, threadId, state.ContentReference{}); err != nil {
		return nil, err
	}

	return &dto.StartWorkflowResponse{
		ThreadId:  threadId,
		SessionId: session.SessionId,
		Status:    string(st.Status),
	}, nil
}

func (s *workflowService) SubmitFeedback(ctx context.Context, userId uuid.UUID, req *dto.SubmitFeedbackRequest) (*dto.WorkflowStepResponse, error) {
	s.locks.Lock(req.ThreadId)
	defer s.locks.Unlock(req.ThreadId)

	st, err := s.loadOwnedState(ctx, userId, req.ThreadId)
	if err != nil {
		return nil, err
	}

	fb := state.UserFeedback{
		Type:     state.FeedbackType(req.Type),
		Comments: req.Comments,
	}
	if req.Reference != "" {
		ref, err := state.ParseContentReference(req.Reference)
		if err != nil {
			return nil, err
		}
		fb.Reference = ref
	}

	update, err := s.interrupts.SubmitFeedback(*st, fb, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	next := state.Apply(*st, update)
	if err := s.store.Put(ctx, req.ThreadId, next); err != nil {
		return nil, err
	}
	s.sessionService.Touch(ctx, req.ThreadId)

	s.publishEvent(ctx, events.TypeFeedbackSubmitted, req.ThreadId, map[string]interface{}{
		"type":      req.Type,
		"reference": fb.Reference.String(),
	})

	return &dto.WorkflowStepResponse{
		ThreadId:  req.ThreadId,
		Status:    string(next.Status),
		Decision:  string(engine.DecisionInterrupt),
		Interrupt: interruptView(next),
	}, nil
}

func (s *workflowService) Resume(ctx context.Context, userId uuid.UUID, req *dto.ResumeWorkflowRequest) (*dto.WorkflowStepResponse, error) {
	s.locks.Lock(req.ThreadId)
	defer s.locks.Unlock(req.ThreadId)

	st, err := s.loadOwnedState(ctx, userId, req.ThreadId)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	update, ref, err := s.interrupts.Resume(*st, now)
	if err != nil {
		return nil, err
	}

	next := state.Apply(*st, update)
	if err := s.store.Put(ctx, req.ThreadId, next); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.TypeWorkflowResumed, req.ThreadId, map[string]interface{}{
		"reference": ref.String(),
	})

	// Routing resumes from the unit the feedback was about, in the
	// background.
	if err := s.submitAdvance(ctx, userId, req.ThreadId, ref); err != nil {
		return nil, err
	}

	return &dto.WorkflowStepResponse{
		ThreadId: req.ThreadId,
		Status:   string(next.Status),
		Decision: string(engine.DecisionContinue),
	}, nil
}

// Advance executes units of work for a thread until the next pause point.
// It is invoked from the op queue consumer, never from a request handler.
func (s *workflowService) Advance(ctx context.Context, userId uuid.UUID, threadId string, refStr string) error {
	s.locks.Lock(threadId)
	defer s.locks.Unlock(threadId)

	st, err := s.loadOwnedState(ctx, userId, threadId)
	if err != nil {
		return err
	}
	if st.Interrupt.IsInterrupted {
		// A pause raced ahead of this op; the user will resume explicitly.
		return nil
	}

	current := *st
	if refStr != "" {
		ref, err := state.ParseContentReference(refStr)
		if err != nil {
			return err
		}
		res, err := s.engine.StepFrom(ctx, current, ref)
		if err != nil {
			if res.Decision != engine.DecisionStuck {
				return err
			}
			current = state.Apply(current, res.Update)
			if putErr := s.store.Put(ctx, threadId, current); putErr != nil {
				return putErr
			}
			s.afterPause(ctx, userId, threadId, current, res)
			return nil
		}
		current = state.Apply(current, res.Update)
		if res.Decision == engine.DecisionInterrupt {
			current = state.Apply(current, s.interrupts.Interrupt(res.InterruptPoint, res.Ref, time.Now().UTC()))
		}
		if err := s.store.Put(ctx, threadId, current); err != nil {
			return err
		}
		s.sessionService.Touch(ctx, threadId)
		if res.Decision != engine.DecisionContinue {
			s.afterPause(ctx, userId, threadId, current, res)
			return nil
		}
	}

	_, _, err = s.runUntilPause(ctx, userId, threadId, current)
	return err
}

func (s *workflowService) InterruptStatus(ctx context.Context, userId uuid.UUID, threadId string) (*dto.InterruptStatusResponse, error) {
	st, err := s.loadOwnedState(ctx, userId, threadId)
	if err != nil {
		return nil, err
	}
	view := interruptView(*st)
	if view == nil {
		view = &dto.InterruptStatusResponse{IsInterrupted: false}
	}
	return view, nil
}

func (s *workflowService) GetState(ctx context.Context, userId uuid.UUID, threadId string) (*dto.WorkflowStateResponse, error) {
	st, err := s.loadOwnedState(ctx, userId, threadId)
	if err != nil {
		return nil, err
	}
	return stateView(threadId, *st), nil
}

func (s *workflowService) EditSection(ctx context.Context, userId uuid.UUID, req *dto.EditSectionRequest) (*dto.EditSectionResponse, error) {
	s.locks.Lock(req.ThreadId)
	defer s.locks.Unlock(req.ThreadId)

	st, err := s.loadOwnedState(ctx, userId, req.ThreadId)
	if err != nil {
		return nil, err
	}
	// A paused thread accepts feedback and nothing else.
	if err := s.interrupts.EnsureNotInterrupted(*st); err != nil {
		return nil, err
	}

	id := state.SectionID(req.SectionId)
	rec, ok := st.Section(id)
	if !ok {
		return nil, wferrors.NotFound("section", req.SectionId)
	}
	if !rec.Status.Accepted() {
		return nil, wferrors.InvalidState("section %s has no accepted content to edit", req.SectionId)
	}

	now := time.Now().UTC()
	edited := rec
	edited.Content = req.Content
	edited.Status = state.StatusEdited
	edited.LastUpdated = now

	next := state.Apply(*st, state.Update{
		Sections:      map[state.SectionID]state.SectionRecord{id: edited},
		LastUpdatedAt: now,
	})

	// Direct edits invalidate everything downstream.
	staleUpdate := graph.PropagateStale(s.engine.Graph(), next, id, now)
	next = state.Apply(next, staleUpdate)

	if err := s.store.Put(ctx, req.ThreadId, next); err != nil {
		return nil, err
	}
	s.sessionService.Touch(ctx, req.ThreadId)

	invalidated := make([]string, 0, len(staleUpdate.Sections))
	for sid := range staleUpdate.Sections {
		invalidated = append(invalidated, string(sid))
	}
	if len(invalidated) > 0 {
		s.publishEvent(ctx, events.TypeSectionsInvalidated, req.ThreadId, map[string]interface{}{
			"edited":      req.SectionId,
			"invalidated": invalidated,
		})
	}

	return &dto.EditSectionResponse{
		SectionId:   req.SectionId,
		Invalidated: invalidated,
	}, nil
}

func (s *workflowService) ResolveStale(ctx context.Context, userId uuid.UUID, req *dto.ResolveStaleRequest) (*dto.WorkflowStepResponse, error) {
	s.locks.Lock(req.ThreadId)
	defer s.locks.Unlock(req.ThreadId)

	st, err := s.loadOwnedState(ctx, userId, req.ThreadId)
	if err != nil {
		return nil, err
	}
	if err := s.interrupts.EnsureNotInterrupted(*st); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	update, err := graph.ResolveStale(*st, state.SectionID(req.SectionId), graph.StaleDecision(req.Decision), req.Guidance, now)
	if err != nil {
		return nil, err
	}

	next := state.Apply(*st, update)
	if err := s.store.Put(ctx, req.ThreadId, next); err != nil {
		return nil, err
	}
	s.sessionService.Touch(ctx, req.ThreadId)

	// A regenerate decision requeues the section; advance in the background.
	if graph.StaleDecision(req.Decision) == graph.DecisionRegenerate {
		if err := s.submitAdvance(ctx, userId, req.ThreadId, state.ContentReference{}); err != nil {
			return nil, err
		}
	}

	return &dto.WorkflowStepResponse{
		ThreadId:  req.ThreadId,
		Status:    string(next.Status),
		Decision:  string(engine.DecisionContinue),
		Interrupt: interruptView(next),
	}, nil
}

func (s *workflowService) submitAdvance(ctx context.Context, userId uuid.UUID, threadId string, ref state.ContentReference) error {
	op := dto.WorkflowOpMessage{
		ThreadId: threadId,
		UserId:   userId,
	}
	if !ref.IsZero() {
		op.Ref = ref.String()
	}
	payload, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return s.opPublisher.Publish(ctx, payload)
}

// runUntilPause keeps executing units of work until the engine asks to
// pause, finishes, or gets stuck. The checkpoint is saved after every step
// so a crash resumes from the last completed unit.
func (s *workflowService) runUntilPause(ctx context.Context, userId uuid.UUID, threadId string, st state.WorkflowState) (state.WorkflowState, engine.Decision, error) {
	current := st
	for {
		res, err := s.engine.Step(ctx, current)
		if err != nil {
			if res.Decision != engine.DecisionStuck {
				return current, engine.DecisionStuck, err
			}
			// The stuck condition is recorded on the state; retrying the op
			// would loop, so persist and hand over to a human.
			current = state.Apply(current, res.Update)
			if putErr := s.store.Put(ctx, threadId, current); putErr != nil {
				return current, res.Decision, putErr
			}
			s.afterPause(ctx, userId, threadId, current, res)
			return current, res.Decision, nil
		}

		current = state.Apply(current, res.Update)
		if res.Decision == engine.DecisionInterrupt {
			current = state.Apply(current, s.interrupts.Interrupt(res.InterruptPoint, res.Ref, time.Now().UTC()))
		}
		if err := s.store.Put(ctx, threadId, current); err != nil {
			return current, res.Decision, err
		}
		s.sessionService.Touch(ctx, threadId)

		if res.Decision != engine.DecisionContinue {
			s.afterPause(ctx, userId, threadId, current, res)
			return current, res.Decision, nil
		}

		s.publishEvent(ctx, events.TypeStepCompleted, threadId, map[string]interface{}{
			"reference": res.Ref.String(),
		})
	}
}

// afterPause emits lifecycle events for decisions that need the user's
// attention. The notification consumer relays them to the websocket channel.
func (s *workflowService) afterPause(ctx context.Context, userId uuid.UUID, threadId string, st state.WorkflowState, res engine.StepResult) {
	switch res.Decision {
	case engine.DecisionInterrupt:
		s.publishEvent(ctx, events.TypeWorkflowInterrupted, threadId, map[string]interface{}{
			"user_id":   userId.String(),
			"point":     res.InterruptPoint,
			"reference": res.Ref.String(),
		})

	case engine.DecisionDone:
		s.publishEvent(ctx, events.TypeWorkflowCompleted, threadId, map[string]interface{}{
			"user_id": userId.String(),
		})
		s.sessionService.Complete(ctx, threadId)

	case engine.DecisionStuck:
		s.publishEvent(ctx, events.TypeWorkflowStuck, threadId, map[string]interface{}{
			"user_id": userId.String(),
			"errors":  len(st.Errors),
		})
	}
}

// loadOwnedState fetches the checkpoint and enforces that the thread belongs
// to the caller. Foreign threads are reported as not found.
func (s *workflowService) loadOwnedState(ctx context.Context, userId uuid.UUID, threadId string) (*state.WorkflowState, error) {
	tid, err := thread.Parse(threadId)
	if err != nil {
		return nil, err
	}
	if tid.UserID != userId {
		return nil, wferrors.NotFound("workflow", threadId)
	}

	rec, err := s.store.Get(ctx, threadId)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, wferrors.NotFound("workflow", threadId)
	}
	return &rec.State, nil
}

func (s *workflowService) publishEvent(ctx context.Context, eventType, threadId string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewWorkflowEvent(eventType, threadId, data)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("WorkflowService", "Failed to publish event", map[string]interface{}{
			"event_type": eventType,
			"thread_id":  threadId,
			"error":      err.Error(),
		})
	}
}

// --- View Mappers ---

func interruptView(st state.WorkflowState) *dto.InterruptStatusResponse {
	if !st.Interrupt.IsInterrupted {
		return nil
	}
	ref := ""
	if st.Interrupt.Reference != nil {
		ref = st.Interrupt.Reference.String()
	}
	return &dto.InterruptStatusResponse{
		IsInterrupted:     true,
		InterruptionPoint: st.Interrupt.InterruptionPoint,
		Reference:         ref,
		ProcessingStatus:  string(st.Interrupt.ProcessingStatus),
	}
}

func stateView(threadId string, st state.WorkflowState) *dto.WorkflowStateResponse {
	sections := make(map[string]*dto.SectionView, len(st.Sections))
	for id, rec := range st.Sections {
		sections[string(id)] = &dto.SectionView{
			Id:          string(rec.ID),
			Status:      string(rec.Status),
			Content:     rec.Content,
			Evaluation:  rec.Evaluation,
			Guidance:    rec.Guidance,
			Retries:     rec.Retries,
			LastUpdated: rec.LastUpdated,
		}
	}

	required := make([]string, len(st.RequiredSections))
	for i, id := range st.RequiredSections {
		required[i] = string(id)
	}

	return &dto.WorkflowStateResponse{
		ThreadId:      threadId,
		Status:        string(st.Status),
		Research:      phaseView(st.Research),
		Solution:      phaseView(st.Solution),
		Connections:   phaseView(st.Connections),
		Sections:      sections,
		Required:      required,
		Interrupt:     interruptView(st),
		Errors:        st.Errors,
		CreatedAt:     st.CreatedAt,
		LastUpdatedAt: st.LastUpdatedAt,
	}
}

func phaseView(rec state.PhaseRecord) *dto.PhaseView {
	return &dto.PhaseView{
		Status:     string(rec.Status),
		Result:     rec.Result,
		Evaluation: rec.Evaluation,
		Retries:    rec.Retries,
	}
}
