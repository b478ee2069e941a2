package broadcast

import (
	"context"
	"encoding/json"
	"strings"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher mirrors each publish onto a redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	topic   string
}

func NewRedisPublisher(rdb *redis.Client, channel, topic string) *RedisPublisher {
	if strings.TrimSpace(channel) == "" {
		channel = "ratecast:rates"
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &RedisPublisher{rdb: rdb, channel: channel, topic: topic}
}

func (p *RedisPublisher) Publish(ctx context.Context, snaps *model.Snapshots) error {
	b, err := json.Marshal(Envelope{Topic: p.topic, Data: snaps})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

var _ port.Publisher = (*RedisPublisher)(nil)
