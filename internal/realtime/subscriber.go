package realtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/redis"
	"github.com/sethvargo/go-retry"
)

var errSubscriptionClosed = errors.New("notification subscription closed")

// Subscriber relays events from the per-user redis channels into the hub.
type Subscriber struct {
	adapter     redis.RedisAdapter
	hub         *Hub
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func NewSubscriber(adapter redis.RedisAdapter, hub *Hub) *Subscriber {
	return &Subscriber{
		adapter:     adapter,
		hub:         hub,
		baseBackoff: 500 * time.Millisecond,
		maxBackoff:  30 * time.Second,
	}
}

// Run subscribes and relays until ctx is done. Connection attempts back off
// exponentially; every successful subscription starts a fresh backoff.
func (s *Subscriber) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		var ps *redis.PubSub
		backoff := retry.WithCappedDuration(s.maxBackoff, retry.WithJitterPercent(10, retry.NewExponential(s.baseBackoff)))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			sub := s.adapter.PSubscribe(ctx, model.UserChannelPrefix+"*")
			if _, err := sub.Receive(ctx); err != nil {
				_ = sub.Close()
				logger.Warn("notification subscription failed, backing off", "error", err)
				return retry.RetryableError(err)
			}
			ps = sub
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		logger.Info("subscribed to notification channels")
		err = s.relay(ctx, ps)
		_ = ps.Close()
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("notification subscription lost, reconnecting", "error", err)
	}
	return nil
}

func (s *Subscriber) relay(ctx context.Context, ps *redis.PubSub) error {
	ch := ps.Channel()
	prefix := s.adapter.Prefix() + model.UserChannelPrefix
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, prefix))
			if err != nil {
				logger.Warn("ignoring event on unexpected channel", "channel", msg.Channel)
				continue
			}
			s.hub.Deliver(userID, []byte(msg.Payload))
		}
	}
}
