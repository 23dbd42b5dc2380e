package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/smartcommerce/notification-service/utils"
)

// Envelope is the wire format crossing the backplane: a broadcast addressed
// to one group.
type Envelope struct {
	Group string      `json:"group"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Backplane carries group broadcasts between service instances, so a publish
// on any instance reaches connections held by every instance.
type Backplane interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(handler func(env Envelope))
	Close() error
}

const broadcastChannel = "notifications:broadcast"

// RedisBackplane runs broadcasts through a Redis pub/sub channel.
type RedisBackplane struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func NewRedisBackplane(client *redis.Client) *RedisBackplane {
	return &RedisBackplane{client: client}
}

func (b *RedisBackplane) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, broadcastChannel, payload).Err()
}

func (b *RedisBackplane) Subscribe(handler func(env Envelope)) {
	b.pubsub = b.client.Subscribe(context.Background(), broadcastChannel)
	go func() {
		for msg := range b.pubsub.Channel() {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				utils.ErrorLogger.Printf("backplane: dropping malformed broadcast: %v", err)
				continue
			}
			handler(env)
		}
	}()
}

func (b *RedisBackplane) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}

// LoopbackBackplane delivers broadcasts in-process only. Used for single
// instance deployments without Redis, and in tests.
type LoopbackBackplane struct {
	handler func(env Envelope)
}

func NewLoopbackBackplane() *LoopbackBackplane {
	return &LoopbackBackplane{}
}

func (b *LoopbackBackplane) Publish(ctx context.Context, env Envelope) error {
	if b.handler != nil {
		b.handler(env)
	}
	return nil
}

func (b *LoopbackBackplane) Subscribe(handler func(env Envelope)) {
	b.handler = handler
}

func (b *LoopbackBackplane) Close() error { return nil }
