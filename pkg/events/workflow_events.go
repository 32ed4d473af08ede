package events

import "time"

// Workflow lifecycle event codes published to the event bus.
const (
	TypeWorkflowStarted     = "WORKFLOW_STARTED"
	TypeStepCompleted       = "WORKFLOW_STEP_COMPLETED"
	TypeWorkflowInterrupted = "WORKFLOW_INTERRUPTED"
	TypeFeedbackSubmitted   = "WORKFLOW_FEEDBACK_SUBMITTED"
	TypeWorkflowResumed     = "WORKFLOW_RESUMED"
	TypeWorkflowCompleted   = "WORKFLOW_COMPLETED"
	TypeWorkflowStuck       = "WORKFLOW_STUCK"
	TypeSectionsInvalidated = "WORKFLOW_SECTIONS_INVALIDATED"
	TypeSessionPaused       = "SESSION_PAUSED"
	TypeSessionRecovered    = "SESSION_RECOVERED"
	TypeSessionClosed       = "SESSION_CLOSED"
)

// NewWorkflowEvent builds a thread-scoped event.
func NewWorkflowEvent(eventType, threadID string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["thread_id"] = threadID
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

// NewSessionEvent builds a session-scoped event.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["session_id"] = sessionID
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
