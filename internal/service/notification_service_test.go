package service

import (
	"context"
	"testing"
	"time"

	"ai-proposalgen-be/internal/websocket"
	"ai-proposalgen-be/pkg/events"

	"github.com/google/uuid"
)

type recordingDelivery struct {
	users         []uuid.UUID
	notifications []websocket.Notification
}

func (d *recordingDelivery) Send(userID uuid.UUID, n websocket.Notification) {
	d.users = append(d.users, userID)
	d.notifications = append(d.notifications, n)
}

func TestHandleEventRelaysToRecipient(t *testing.T) {
	userId := uuid.New()

	tests := []struct {
		name      string
		eventType string
		data      map[string]interface{}
		wantEvent string
		check     func(*testing.T, websocket.Notification)
	}{
		{
			name:      "interrupted becomes review request",
			eventType: events.TypeWorkflowInterrupted,
			data: map[string]interface{}{
				"point":     "review:section:budget",
				"reference": "section:budget",
			},
			wantEvent: "review_requested",
			check: func(t *testing.T, n websocket.Notification) {
				if n.Point != "review:section:budget" || n.Reference != "section:budget" {
					t.Errorf("point/reference = %q/%q", n.Point, n.Reference)
				}
			},
		},
		{
			name:      "completed",
			eventType: events.TypeWorkflowCompleted,
			wantEvent: "workflow_completed",
		},
		{
			name:      "stuck carries a message",
			eventType: events.TypeWorkflowStuck,
			wantEvent: "workflow_stuck",
			check: func(t *testing.T, n websocket.Notification) {
				if n.Message == "" {
					t.Error("stuck notification has no message")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &recordingDelivery{}
			svc := NewNotificationService(nil, delivery, noopLogger{})

			data := map[string]interface{}{"user_id": userId.String()}
			for k, v := range tt.data {
				data[k] = v
			}
			event := events.NewWorkflowEvent(tt.eventType, "proposal:x:user:y", data)

			if err := svc.handleEvent(context.Background(), event); err != nil {
				t.Fatalf("handleEvent: %v", err)
			}
			if len(delivery.notifications) != 1 {
				t.Fatalf("delivered %d notifications, want 1", len(delivery.notifications))
			}
			if delivery.users[0] != userId {
				t.Errorf("recipient = %s, want %s", delivery.users[0], userId)
			}
			n := delivery.notifications[0]
			if n.Event != tt.wantEvent {
				t.Errorf("event = %q, want %q", n.Event, tt.wantEvent)
			}
			if n.ThreadId != "proposal:x:user:y" {
				t.Errorf("thread id = %q", n.ThreadId)
			}
			if tt.check != nil {
				tt.check(t, n)
			}
		})
	}
}

func TestHandleEventSkipsUndeliverable(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
	}{
		{
			name: "no recipient",
			event: events.NewWorkflowEvent(events.TypeWorkflowCompleted,
				"proposal:x:user:y", nil),
		},
		{
			name: "unrelated event type",
			event: events.NewWorkflowEvent(events.TypeStepCompleted,
				"proposal:x:user:y", map[string]interface{}{"user_id": uuid.NewString()}),
		},
		{
			name: "malformed recipient",
			event: events.BaseEvent{
				Type:       events.TypeWorkflowCompleted,
				Data:       map[string]interface{}{"user_id": "not-a-uuid"},
				OccurredAt: time.Now(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &recordingDelivery{}
			svc := NewNotificationService(nil, delivery, noopLogger{})

			if err := svc.handleEvent(context.Background(), tt.event); err != nil {
				t.Fatalf("handleEvent: %v", err)
			}
			if len(delivery.notifications) != 0 {
				t.Errorf("delivered %d notifications, want none", len(delivery.notifications))
			}
		})
	}
}
