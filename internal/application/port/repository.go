package port

import "context"

// Repository archives published payloads. It is write-only from the
// pipeline's point of view; nothing is read back into pair history.
type Repository interface {
	InsertSnapshot(ctx context.Context, ts int64, payload string) error
	Close() error
}
