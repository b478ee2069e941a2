package redis

import (
	"context"
	"strings"
	"time"

	"ratecast/internal/application/port"

	"github.com/redis/go-redis/v9"
)

// Repo keeps the latest published payload under <prefix>:latest and appends
// every payload to a capped stream.
type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string
	stream    string
	maxLen    int64
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, stream string, maxLen int64) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "ratecast"
	}
	if strings.TrimSpace(stream) == "" {
		stream = prefix + ":snapshots"
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		stream:    stream,
		maxLen:    maxLen,
	}
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, r.keyLatest, payload, r.ttl)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"ts_ms":   ts,
			"payload": payload,
		},
	})
	_, err := pipe.Exec(ctx)
	return err
}

// Close is a no-op; the client is owned by the container.
func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
