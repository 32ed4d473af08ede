// Package engine drives the per-unit state machine: it picks the next unit
// of work, runs generation and evaluation against the external collaborator,
// and reports where the thread must pause for human input.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-proposalgen-be/internal/pkg/logger"
	"ai-proposalgen-be/pkg/workflow/graph"
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

// GenerationFn produces content for one unit. Implementations wrap the
// external generation collaborator and carry its timeout behavior.
type GenerationFn func(ctx context.Context, st state.WorkflowState, ref state.ContentReference) (string, error)

// EvaluationFn scores generated content for one unit.
type EvaluationFn func(ctx context.Context, st state.WorkflowState, ref state.ContentReference, content string) (*state.EvaluationResult, error)

// Config bounds the engine's loops and timeouts.
type Config struct {
	// MaxRetries caps consecutive failed generation/evaluation attempts per
	// unit before the status is forced to ERROR.
	MaxRetries int
	// ReviewRequired routes failed evaluations to human review instead of
	// automatic regeneration.
	ReviewRequired bool
	// GenerationTimeout bounds one collaborator call.
	GenerationTimeout time.Duration
}

// Decision tells the caller what to do after a step.
type Decision string

const (
	// DecisionContinue means another step can run immediately.
	DecisionContinue Decision = "continue"
	// DecisionInterrupt means the thread must pause at InterruptPoint for
	// human input.
	DecisionInterrupt Decision = "interrupt"
	// DecisionDone means the job completed.
	DecisionDone Decision = "done"
	// DecisionStuck means the job needs operator intervention.
	DecisionStuck Decision = "stuck"
)

// StepResult is the outcome of one unit of work.
type StepResult struct {
	Update         state.Update
	Decision       Decision
	InterruptPoint string
	Ref            state.ContentReference
}

// Engine executes one unit of work at a time. It holds only immutable
// collaborators and is safe for concurrent use across threads; per-thread
// serialization is the caller's responsibility.
type Engine struct {
	graph      *graph.Graph
	generators *GeneratorTable
	evaluate   EvaluationFn
	cfg        Config
	logger     logger.ILogger
}

func New(g *graph.Graph, generators *GeneratorTable, evaluate EvaluationFn, cfg Config, log logger.ILogger) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 2 * time.Minute
	}
	return &Engine{
		graph:      g,
		generators: generators,
		evaluate:   evaluate,
		cfg:        cfg,
		logger:     log,
	}
}

// Graph exposes the dependency graph for stale propagation by callers.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Step routes and executes exactly one unit of work against the given state
// and returns the partial update to apply. It never mutates st.
func (e *Engine) Step(ctx context.Context, st state.WorkflowState) (StepResult, error) {
	target, routeErr := e.Route(st)
	return e.executeTarget(ctx, st, target, routeErr)
}

// StepFrom is Step, but entered at the post-evaluation router for the given
// unit. Used on resume after feedback was applied.
func (e *Engine) StepFrom(ctx context.Context, st state.WorkflowState, ref state.ContentReference) (StepResult, error) {
	target, routeErr := e.RouteAfterEvaluation(st, ref)
	return e.executeTarget(ctx, st, target, routeErr)
}

func (e *Engine) executeTarget(ctx context.Context, st state.WorkflowState, target Target, routeErr error) (StepResult, error) {
	now := time.Now()

	switch target.Kind {
	case TargetAwaitReview:
		return StepResult{
			Decision:       DecisionInterrupt,
			InterruptPoint: "review:" + target.Ref.String(),
			Ref:            target.Ref,
		}, nil

	case TargetErrorHandler:
		update := state.Update{LastUpdatedAt: now}
		if routeErr != nil {
			update.AppendErrors = []state.ErrorRecord{errorRecord(target.Ref, routeErr, "", now)}
		}
		if errors.Is(routeErr, wferrors.ErrValidation) {
			update.Status = state.WorkflowError
		}
		e.logger.Warn("Engine", "Routing reached error handler", map[string]interface{}{
			"ref":   target.Ref.String(),
			"error": fmt.Sprint(routeErr),
		})
		return StepResult{Update: update, Decision: DecisionStuck, Ref: target.Ref}, routeErr

	case TargetFinalize:
		// A late edit can retroactively invalidate an apparently-finished
		// job, so completion is re-checked here.
		if !st.AllSectionsAccepted() {
			return StepResult{Decision: DecisionContinue}, nil
		}
		return StepResult{
			Update:   state.Update{Status: state.WorkflowCompleted, LastUpdatedAt: now},
			Decision: DecisionDone,
		}, nil

	case TargetRunPhase:
		return e.runPhase(ctx, st, target.Ref)

	case TargetGenerateSection:
		return e.generateSection(ctx, st, target.Ref)
	}

	return StepResult{}, wferrors.Validation("unknown routing target %q", target.Kind)
}

// runPhase executes one generate+evaluate cycle for a top-level phase.
func (e *Engine) runPhase(ctx context.Context, st state.WorkflowState, ref state.ContentReference) (StepResult, error) {
	phase := *st.Phase(ref)
	now := time.Now()

	content, genErr := e.generateUnit(ctx, st, ref)
	if genErr != nil {
		phase.Retries++
		update := state.Update{LastUpdatedAt: now}
		if phase.Retries >= e.cfg.MaxRetries {
			phase.Status = state.StatusError
			update.AppendErrors = []state.ErrorRecord{errorRecord(ref, genErr, string(state.StatusRunning)+"->"+string(state.StatusError), now)}
		} else {
			phase.Status = state.StatusQueued
		}
		setPhase(&update, ref, phase)
		return StepResult{Update: update, Decision: DecisionContinue, Ref: ref}, nil
	}

	phase.Result = content
	phase.Status = state.StatusAwaitingEvaluation

	eval, evalErr := e.evaluate(ctx, st, ref, content)
	if evalErr != nil {
		return e.finishFailedAttempt(ref, phaseAttempt{phase: &phase}, evalErr, now)
	}
	phase.Evaluation = eval
	return e.finishEvaluatedAttempt(ref, phaseAttempt{phase: &phase}, eval, now)
}

// generateSection executes one generate+evaluate cycle for a section.
func (e *Engine) generateSection(ctx context.Context, st state.WorkflowState, ref state.ContentReference) (StepResult, error) {
	rec, ok := st.Sections[ref.SectionID]
	if !ok {
		rec = state.SectionRecord{ID: ref.SectionID, Status: state.StatusQueued}
	}
	now := time.Now()

	// A STALE section picked for regeneration leaves the stale cycle here.
	rec.PreviousStatus = ""
	rec.Status = state.StatusRunning
	rec.LastUpdated = now

	content, genErr := e.generateUnit(ctx, st, ref)
	if genErr != nil {
		rec.Retries++
		update := state.Update{LastUpdatedAt: now}
		if rec.Retries >= e.cfg.MaxRetries {
			rec.Status = state.StatusError
			update.AppendErrors = []state.ErrorRecord{errorRecord(ref, genErr, string(state.StatusRunning)+"->"+string(state.StatusError), now)}
		} else {
			rec.Status = state.StatusQueued
		}
		update.Sections = map[state.SectionID]state.SectionRecord{rec.ID: rec}
		return StepResult{Update: update, Decision: DecisionContinue, Ref: ref}, nil
	}

	rec.Content = content
	rec.Guidance = ""
	rec.Status = state.StatusAwaitingEvaluation

	eval, evalErr := e.evaluate(ctx, st, ref, content)
	if evalErr != nil {
		return e.finishFailedAttempt(ref, sectionAttempt{rec: &rec}, evalErr, now)
	}
	rec.Evaluation = eval
	return e.finishEvaluatedAttempt(ref, sectionAttempt{rec: &rec}, eval, now)
}

// generateUnit calls the collaborator with the configured timeout. Timeouts
// and transport failures surface as upstream errors.
func (e *Engine) generateUnit(ctx context.Context, st state.WorkflowState, ref state.ContentReference) (string, error) {
	gen, ok := e.generators.Lookup(ref)
	if !ok {
		return "", wferrors.Validation("no generator registered for %q", ref.String())
	}

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	content, err := gen(genCtx, st, ref)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", wferrors.Upstream(ref.String(), fmt.Errorf("generation timed out after %s", e.cfg.GenerationTimeout))
		}
		if errors.Is(err, wferrors.ErrParse) || errors.Is(err, wferrors.ErrUpstreamService) || errors.Is(err, wferrors.ErrValidation) {
			return "", err
		}
		return "", wferrors.Upstream(ref.String(), err)
	}
	return content, nil
}

// attempt abstracts over phase and section records for the shared
// post-evaluation handling.
type attempt interface {
	status() state.PhaseStatus
	setStatus(state.PhaseStatus)
	retries() int
	bumpRetries()
	apply(update *state.Update, ref state.ContentReference, now time.Time)
}

type phaseAttempt struct{ phase *state.PhaseRecord }

func (a phaseAttempt) status() state.PhaseStatus      { return a.phase.Status }
func (a phaseAttempt) setStatus(s state.PhaseStatus)  { a.phase.Status = s }
func (a phaseAttempt) retries() int                   { return a.phase.Retries }
func (a phaseAttempt) bumpRetries()                   { a.phase.Retries++ }
func (a phaseAttempt) apply(update *state.Update, ref state.ContentReference, _ time.Time) {
	setPhase(update, ref, *a.phase)
}

type sectionAttempt struct{ rec *state.SectionRecord }

func (a sectionAttempt) status() state.PhaseStatus     { return a.rec.Status }
func (a sectionAttempt) setStatus(s state.PhaseStatus) { a.rec.Status = s }
func (a sectionAttempt) retries() int                  { return a.rec.Retries }
func (a sectionAttempt) bumpRetries()                  { a.rec.Retries++ }
func (a sectionAttempt) apply(update *state.Update, _ state.ContentReference, now time.Time) {
	a.rec.LastUpdated = now
	update.Sections = map[state.SectionID]state.SectionRecord{a.rec.ID: *a.rec}
}

// finishFailedAttempt handles an evaluation that could not be produced
// (upstream or parse failure): re-queue within the retry budget, ERROR after.
func (e *Engine) finishFailedAttempt(ref state.ContentReference, a attempt, cause error, now time.Time) (StepResult, error) {
	a.bumpRetries()
	update := state.Update{LastUpdatedAt: now}
	if a.retries() >= e.cfg.MaxRetries {
		a.setStatus(state.StatusError)
		update.AppendErrors = []state.ErrorRecord{errorRecord(ref, cause,
			string(state.StatusAwaitingEvaluation)+"->"+string(state.StatusError), now)}
	} else {
		a.setStatus(state.StatusQueued)
	}
	a.apply(&update, ref, now)
	return StepResult{Update: update, Decision: DecisionContinue, Ref: ref}, nil
}

// finishEvaluatedAttempt applies the two-outcome evaluation rule. Every
// produced evaluation is followed by a pause point so a human can always
// intervene.
func (e *Engine) finishEvaluatedAttempt(ref state.ContentReference, a attempt, eval *state.EvaluationResult, now time.Time) (StepResult, error) {
	update := state.Update{LastUpdatedAt: now}

	if eval.Passed {
		a.setStatus(state.StatusApproved)
		a.apply(&update, ref, now)
		return StepResult{
			Update:         update,
			Decision:       DecisionInterrupt,
			InterruptPoint: "evaluate:" + ref.String(),
			Ref:            ref,
		}, nil
	}

	if e.cfg.ReviewRequired {
		a.setStatus(state.StatusAwaitingReview)
		a.apply(&update, ref, now)
		return StepResult{
			Update:         update,
			Decision:       DecisionInterrupt,
			InterruptPoint: "review:" + ref.String(),
			Ref:            ref,
		}, nil
	}

	a.bumpRetries()
	if a.retries() >= e.cfg.MaxRetries {
		a.setStatus(state.StatusError)
		update.AppendErrors = []state.ErrorRecord{{
			Reference:  &ref,
			Code:       "EVALUATION_EXHAUSTED",
			Message:    fmt.Sprintf("evaluation failed %d consecutive times: %s", a.retries(), eval.Summary),
			Transition: string(state.StatusNeedsRevision) + "->" + string(state.StatusError),
			OccurredAt: now,
		}}
	} else {
		// NEEDS_REVISION immediately re-queues: the regeneration loop is an
		// ordinary transition with a counter, not a graph cycle.
		a.setStatus(state.StatusQueued)
	}
	a.apply(&update, ref, now)
	return StepResult{Update: update, Decision: DecisionContinue, Ref: ref}, nil
}

func setPhase(update *state.Update, ref state.ContentReference, phase state.PhaseRecord) {
	switch ref.Kind {
	case state.KindResearch:
		update.Research = &phase
	case state.KindSolution:
		update.Solution = &phase
	case state.KindConnections:
		update.Connections = &phase
	}
}

func errorRecord(ref state.ContentReference, err error, transition string, now time.Time) state.ErrorRecord {
	code := "INTERNAL"
	switch {
	case errors.Is(err, wferrors.ErrValidation):
		code = "VALIDATION"
	case errors.Is(err, wferrors.ErrDependencyViolation):
		code = "DEPENDENCY_VIOLATION"
	case errors.Is(err, wferrors.ErrParse):
		code = "PARSE"
	case errors.Is(err, wferrors.ErrUpstreamService):
		code = "UPSTREAM_SERVICE"
	}
	rec := state.ErrorRecord{
		Code:       code,
		Message:    err.Error(),
		Transition: transition,
		OccurredAt: now,
	}
	if !ref.IsZero() {
		r := ref
		rec.Reference = &r
	}
	return rec
}
