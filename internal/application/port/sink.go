package port

import (
	"context"

	"ratecast/internal/domain/model"
)

// Publisher sends one aggregation cycle to downstream subscribers.
// Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, snaps *model.Snapshots) error
}
