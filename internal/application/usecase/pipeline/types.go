package pipeline

import (
	"context"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"
)

type TradeFeed = port.TradeFeed

type Resolver interface {
	Resolve(ctx context.Context, ticks []port.Tick) (float64, error)
}

type Deriver interface {
	Derive(ticks []port.Tick, basePrice float64) []model.Observation
}

type Aggregator interface {
	Ingest(obs []model.Observation) *model.Snapshots
}

type Archiver interface {
	SaveSnapshot(ctx context.Context, ts int64, snaps *model.Snapshots) error
}

// Metrics receives per-batch counters.
type Metrics interface {
	BatchReceived(ticks int)
	BatchProcessed(pairs int)
	BatchSkipped(reason string)
	Published(err error)
}
