package pipeline

import (
	"context"

	"ratecast/internal/domain/model"
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, snaps *model.Snapshots) error { return nil }

type noopArchiver struct{}

func (noopArchiver) SaveSnapshot(ctx context.Context, ts int64, snaps *model.Snapshots) error {
	return nil
}

type noopMetrics struct{}

func (noopMetrics) BatchReceived(int)   {}
func (noopMetrics) BatchProcessed(int)  {}
func (noopMetrics) BatchSkipped(string) {}
func (noopMetrics) Published(error)     {}
