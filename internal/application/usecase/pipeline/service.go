// Package pipeline drives trade batches from the feed through pricing,
// aggregation and broadcast.
package pipeline

import (
	"context"
	"errors"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"

	"github.com/rs/zerolog/log"
)

const SkipNoBasePrice = "no_base_price"

type ServiceDeps struct {
	Feed       TradeFeed
	Resolver   Resolver
	Deriver    Deriver
	Aggregator Aggregator
	Publisher  port.Publisher
	Archive    Archiver
	Metrics    Metrics
	Now        func() time.Time
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.Archive == nil {
		deps.Archive = noopArchiver{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// Run starts the feed and processes batches one at a time, in arrival order,
// until ctx is done. A feed that cannot start (e.g. missing credential)
// returns its error immediately.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Feed == nil {
		return errors.New("no feed")
	}

	in, err := s.deps.Feed.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.deps.Feed.Stop(); err != nil {
			log.Warn().Err(err).Str("feed", s.deps.Feed.Name()).Msg("feed stop failed")
		}
	}()
	log.Info().Str("feed", s.deps.Feed.Name()).Msg("feed started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-in:
			if !ok {
				return nil
			}
			_, _ = s.Process(ctx, batch)
		}
	}
}

// Process runs one batch through the pipeline and returns what was published.
// A batch whose base price cannot be resolved is skipped without publishing.
func (s *Service) Process(ctx context.Context, batch []port.Tick) (*model.Snapshots, error) {
	if len(batch) == 0 {
		return model.NewSnapshots(), nil
	}
	s.deps.Metrics.BatchReceived(len(batch))

	basePrice, err := s.deps.Resolver.Resolve(ctx, batch)
	if err != nil {
		s.deps.Metrics.BatchSkipped(SkipNoBasePrice)
		log.Warn().Err(err).Int("ticks", len(batch)).Msg("batch skipped")
		return nil, err
	}

	obs := s.deps.Deriver.Derive(batch, basePrice)
	snaps := s.deps.Aggregator.Ingest(obs)

	perr := s.deps.Publisher.Publish(ctx, snaps)
	s.deps.Metrics.Published(perr)
	if perr != nil {
		log.Error().Err(perr).Msg("publish failed")
	}

	if err := s.deps.Archive.SaveSnapshot(ctx, s.deps.Now().UnixMilli(), snaps); err != nil {
		log.Error().Err(err).Msg("archive snapshot failed")
	}

	s.deps.Metrics.BatchProcessed(snaps.Len())
	log.Debug().
		Float64("base_price", basePrice).
		Int("ticks", len(batch)).
		Int("pairs", snaps.Len()).
		Msg("batch processed")
	return snaps, nil
}
