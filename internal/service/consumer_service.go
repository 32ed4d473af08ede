package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"ai-proposalgen-be/internal/dto"
	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the op queue: one message is one request to advance
// a workflow thread until its next pause point. The per-thread mutex inside
// the workflow service serializes ops that target the same thread.
type consumerService struct {
	pubSub          *gochannel.GoChannel
	topicName       string
	workflowService IWorkflowService
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	workflowService IWorkflowService,
) IConsumerService {
	return &consumerService{
		pubSub:          pubSub,
		topicName:       topicName,
		workflowService: workflowService,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var op dto.WorkflowOpMessage
	if err := json.Unmarshal(msg.Payload, &op); err != nil {
		log.Printf("[ERROR] Failed to unmarshal op message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Advancing workflow thread %s", op.ThreadId)

	err := cs.workflowService.Advance(ctx, op.UserId, op.ThreadId, op.Ref)
	if err != nil {
		if errors.Is(err, wferrors.ErrNotFound) || errors.Is(err, wferrors.ErrValidation) {
			// The thread is gone or the op is malformed; retrying cannot help.
			log.Printf("[WARN] Dropping op for thread %s: %v", op.ThreadId, err)
			msg.Ack()
			return
		}
		log.Printf("[ERROR] Failed to advance thread %s: %v", op.ThreadId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
