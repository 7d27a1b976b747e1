package processor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/queue"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/prom"
)

// ChannelPublisher is satisfied by redis.RedisAdapter.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PushProcessor fans a stored notification out to the user's live channel.
// Nobody listening is not an error: the row is already persisted and the
// client catches up on reconnect.
type PushProcessor struct {
	publisher   ChannelPublisher
	idempotency *IdempotencyService
}

func NewPushProcessor(publisher ChannelPublisher, idempotency *IdempotencyService) *PushProcessor {
	return &PushProcessor{publisher: publisher, idempotency: idempotency}
}

func (p *PushProcessor) GetType() string {
	return "notification_push"
}

func (p *PushProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var event model.NotificationEvent
	if err := msg.Decode(&event); err != nil {
		// Redelivering a malformed event cannot help; ack it.
		logger.Error("dropping undecodable notification event", "stream_id", msg.ID, "error", err)
		prom.IncNotificationPushed("malformed")
		return nil
	}
	key := event.NotificationID.String()

	lock, err := p.idempotency.Acquire(ctx, key)
	switch {
	case errors.Is(err, ErrAlreadyDelivered):
		prom.IncNotificationPushed("duplicate")
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		logger.Error("giving up on notification push", "notification_id", key, "error", err)
		prom.IncNotificationPushed("abandoned")
		return nil
	case err != nil:
		return err
	}
	defer p.idempotency.Release(ctx, lock)

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(ctx, model.UserChannel(event.UserID), payload); err != nil {
		p.idempotency.MarkFailed(ctx, lock, err)
		prom.IncNotificationPushed("failed")
		return err
	}

	if err := p.idempotency.MarkDelivered(ctx, lock); err != nil {
		logger.Error("failed to mark notification delivered", "notification_id", key, "error", err)
	}
	prom.IncNotificationPushed("delivered")
	logger.Debug("notification pushed", "notification_id", key, "user_id", event.UserID, "retry_count", lock.RetryCount)
	return nil
}
