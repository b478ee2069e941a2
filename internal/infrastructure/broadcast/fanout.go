package broadcast

import (
	"context"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"
)

// Fanout publishes to every wrapped publisher and reports the first error.
type Fanout struct {
	pubs []port.Publisher
}

func NewFanout(pubs ...port.Publisher) *Fanout {
	// nil publishers are skipped
	out := make([]port.Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return &Fanout{pubs: out}
}

func (f *Fanout) Publish(ctx context.Context, snaps *model.Snapshots) error {
	var firstErr error
	for _, p := range f.pubs {
		if err := p.Publish(ctx, snaps); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Fanout) Len() int { return len(f.pubs) }

var _ port.Publisher = (*Fanout)(nil)
