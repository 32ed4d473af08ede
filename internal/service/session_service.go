package service

import (
	"context"
	"time"

	"ai-proposalgen-be/internal/dto"
	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/pkg/lock"
	"ai-proposalgen-be/internal/pkg/logger"
	"ai-proposalgen-be/internal/repository/memory"
	"ai-proposalgen-be/internal/repository/specification"
	"ai-proposalgen-be/internal/repository/unitofwork"
	"ai-proposalgen-be/pkg/events"
	"ai-proposalgen-be/pkg/workflow/checkpoint"
	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/google/uuid"
)

// SessionConfig holds the lifecycle knobs for the sweeper.
type SessionConfig struct {
	// IdleTimeout pauses a session that has seen no activity.
	IdleTimeout time.Duration
	// MaxLifetime force-closes a session regardless of activity.
	MaxLifetime time.Duration
	// SweepInterval is how often the sweeper scans running sessions.
	SweepInterval time.Duration
}

type ISessionService interface {
	Create(ctx context.Context, userId uuid.UUID, proposalId uuid.UUID, threadId string) (*entity.SessionMetadata, error)
	Touch(ctx context.Context, threadId string)
	Complete(ctx context.Context, threadId string)
	List(ctx context.Context, userId uuid.UUID) (*dto.SessionListResponse, error)
	Get(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error)
	Close(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, reason string) error
	Recover(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error)
	RunSweeper(ctx context.Context)
}

type sessionService struct {
	uowFactory     unitofwork.RepositoryFactory
	cache          *memory.SessionCache
	store          checkpoint.Store
	locks          *lock.MutexMap
	eventPublisher IEventPublisher
	cfg            SessionConfig
	logger         logger.ILogger
}

// NewSessionService builds the lifecycle manager. The mutex map must be the
// same instance the workflow service serializes steps with, so a close never
// races an in-flight step on the same thread.
func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.SessionCache,
	store checkpoint.Store,
	locks *lock.MutexMap,
	eventPublisher IEventPublisher,
	cfg SessionConfig,
	log logger.ILogger,
) ISessionService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &sessionService{
		uowFactory:     uowFactory,
		cache:          cache,
		store:          store,
		locks:          locks,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		logger:         log,
	}
}

func (s *sessionService) Create(ctx context.Context, userId uuid.UUID, proposalId uuid.UUID, threadId string) (*entity.SessionMetadata, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.SessionRepository().FindOne(ctx, specification.ByThreadId{ThreadID: threadId})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, wferrors.InvalidState("session already exists for thread %s", threadId)
	}

	now := time.Now().UTC()
	session := &entity.SessionMetadata{
		SessionId:    uuid.New(),
		ThreadId:     threadId,
		ProposalId:   proposalId,
		UserId:       userId,
		CreatedAt:    now,
		LastActivity: now,
		State:        entity.SessionRunning,
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.cache.Save(session)
	return session, nil
}

// Touch records activity. Failures are logged, never propagated: losing one
// activity timestamp must not fail the workflow step that caused it.
func (s *sessionService) Touch(ctx context.Context, threadId string) {
	now := time.Now().UTC()

	session, ok := s.cache.Get(threadId)
	if !ok {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		var err error
		session, err = uow.SessionRepository().FindOne(ctx, specification.ByThreadId{ThreadID: threadId})
		if err != nil || session == nil {
			return
		}
	}

	session.LastActivity = now
	if session.State == entity.SessionPaused {
		session.State = entity.SessionRunning
	}
	s.cache.Save(session)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		s.logger.Warn("SessionService", "Failed to persist activity", map[string]interface{}{
			"thread_id": threadId,
			"error":     err.Error(),
		})
	}
}

// Complete closes the session of a finished workflow. The caller already
// holds the thread lock, so Complete must not take it again.
func (s *sessionService) Complete(ctx context.Context, threadId string) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByThreadId{ThreadID: threadId})
	if err != nil || session == nil {
		return
	}

	session.State = entity.SessionCompleted
	if err := s.closeSession(ctx, uow, session, "workflow completed"); err != nil {
		s.logger.Error("SessionService", "Failed to close completed session", map[string]interface{}{
			"thread_id": threadId,
			"error":     err.Error(),
		})
	}
}

func (s *sessionService) List(ctx context.Context, userId uuid.UUID) (*dto.SessionListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.SessionRepository().FindAll(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	res := &dto.SessionListResponse{
		Sessions: make([]dto.SessionResponse, len(sessions)),
		Total:    len(sessions),
	}
	for i, session := range sessions {
		res.Sessions[i] = *sessionView(session)
	}
	return res, nil
}

func (s *sessionService) Get(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.findOwned(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}
	return sessionView(session), nil
}

func (s *sessionService) Close(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, reason string) error {
	session, err := s.findOwned(ctx, userId, sessionId)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "closed by user"
	}

	s.locks.Lock(session.ThreadId)
	defer s.locks.Unlock(session.ThreadId)

	session.State = entity.SessionCompleted
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return s.closeSession(ctx, uow, session, reason)
}

func (s *sessionService) Recover(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.findOwned(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}
	if session.State != entity.SessionPaused {
		return nil, wferrors.InvalidState("session %s is %s, only paused sessions can be recovered", sessionId, session.State)
	}

	s.locks.Lock(session.ThreadId)
	defer s.locks.Unlock(session.ThreadId)

	// The checkpoint must still exist; paused sessions retain it.
	rec, err := s.store.Get(ctx, session.ThreadId)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, wferrors.NotFound("checkpoint", session.ThreadId)
	}

	session.State = entity.SessionRunning
	session.LastActivity = time.Now().UTC()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	s.cache.Save(session)

	s.publishEvent(ctx, events.TypeSessionRecovered, session)
	return sessionView(session), nil
}

// RunSweeper blocks until the context is cancelled, periodically pausing
// idle sessions and closing those past their maximum lifetime.
func (s *sessionService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sessionService) sweep(ctx context.Context) {
	now := time.Now().UTC()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	running, err := uow.SessionRepository().FindAll(ctx, specification.BySessionState{State: string(entity.SessionRunning)})
	if err != nil {
		s.logger.Error("SessionService", "Sweep scan failed", map[string]interface{}{"error": err.Error()})
		return
	}
	paused, err := uow.SessionRepository().FindAll(ctx, specification.BySessionState{State: string(entity.SessionPaused)})
	if err != nil {
		s.logger.Error("SessionService", "Sweep scan failed", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, session := range append(running, paused...) {
		s.sweepOne(ctx, uow, session.ThreadId, now)
	}
}

// sweepOne applies the lifecycle decision for one session while holding its
// thread lock, so a close never overlaps an in-flight workflow step.
func (s *sessionService) sweepOne(ctx context.Context, uow unitofwork.UnitOfWork, threadId string, now time.Time) {
	s.locks.Lock(threadId)
	defer s.locks.Unlock(threadId)

	// Re-read under the lock; the session may have progressed or closed
	// while the scan was waiting.
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByThreadId{ThreadID: threadId})
	if err != nil || session == nil {
		return
	}
	if session.State != entity.SessionRunning && session.State != entity.SessionPaused {
		return
	}

	if now.Sub(session.CreatedAt) > s.cfg.MaxLifetime {
		session.State = entity.SessionCompleted
		if err := s.closeSession(ctx, uow, session, "exceeded maximum lifetime"); err != nil {
			s.logger.Error("SessionService", "Failed to close expired session", map[string]interface{}{
				"session_id": session.SessionId,
				"error":      err.Error(),
			})
		}
		return
	}

	if session.State == entity.SessionRunning && now.Sub(session.LastActivity) > s.cfg.IdleTimeout {
		session.State = entity.SessionPaused
		if err := uow.SessionRepository().Update(ctx, session); err != nil {
			s.logger.Error("SessionService", "Failed to pause idle session", map[string]interface{}{
				"session_id": session.SessionId,
				"error":      err.Error(),
			})
			return
		}
		s.cache.Save(session)
		s.publishEvent(ctx, events.TypeSessionPaused, session)
		s.logger.Info("SessionService", "Paused idle session", map[string]interface{}{
			"session_id": session.SessionId,
			"thread_id":  session.ThreadId,
		})
	}
}

// closeSession archives the row and cleans up derived storage. Completed
// sessions drop their checkpoint; paused and errored ones keep it so the
// thread stays recoverable.
func (s *sessionService) closeSession(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SessionMetadata, reason string) error {
	if err := uow.SessionRepository().Archive(ctx, session, reason); err != nil {
		return err
	}
	s.cache.Delete(session.ThreadId)

	if session.State == entity.SessionCompleted {
		if err := s.store.Delete(ctx, session.ThreadId); err != nil {
			s.logger.Warn("SessionService", "Failed to delete checkpoint", map[string]interface{}{
				"thread_id": session.ThreadId,
				"error":     err.Error(),
			})
		}
	}

	s.publishEvent(ctx, events.TypeSessionClosed, session)
	return nil
}

func (s *sessionService) findOwned(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*entity.SessionMetadata, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, wferrors.NotFound("session", sessionId.String())
	}
	return session, nil
}

func (s *sessionService) publishEvent(ctx context.Context, eventType string, session *entity.SessionMetadata) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewSessionEvent(eventType, session.SessionId.String(), map[string]interface{}{
		"thread_id": session.ThreadId,
		"state":     string(session.State),
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("SessionService", "Failed to publish event", map[string]interface{}{
			"event_type": eventType,
			"session_id": session.SessionId,
		})
	}
}

func sessionView(session *entity.SessionMetadata) *dto.SessionResponse {
	return &dto.SessionResponse{
		SessionId:    session.SessionId,
		ThreadId:     session.ThreadId,
		ProposalId:   session.ProposalId,
		State:        string(session.State),
		CurrentPhase: session.CurrentPhase,
		CreatedAt:    session.CreatedAt,
		LastActivity: session.LastActivity,
	}
}
