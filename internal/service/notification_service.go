package service

import (
	"context"

	"ai-proposalgen-be/internal/pkg/logger"
	"ai-proposalgen-be/internal/websocket"
	"ai-proposalgen-be/pkg/events"
	pktNats "ai-proposalgen-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification websocket.Notification)
}

// NotificationService relays workflow lifecycle events from the event bus to
// the websocket channel so clients learn about pauses without polling.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.SubscribeAll("proposalgen-notifier", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	userIDStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		// No recipient means nothing to deliver; never retry these.
		return nil
	}
	threadId, _ := payload["thread_id"].(string)

	n := websocket.Notification{
		ThreadId:  threadId,
		Timestamp: event.Timestamp(),
	}
	switch event.EventType() {
	case events.TypeWorkflowInterrupted:
		n.Event = "review_requested"
		n.Point, _ = payload["point"].(string)
		n.Reference, _ = payload["reference"].(string)
	case events.TypeWorkflowCompleted:
		n.Event = "workflow_completed"
	case events.TypeWorkflowStuck:
		n.Event = "workflow_stuck"
		n.Message = "workflow needs operator intervention"
	default:
		return nil
	}

	s.delivery.Send(userID, n)
	return nil
}
