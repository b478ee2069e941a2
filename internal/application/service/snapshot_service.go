package service

import (
	"context"
	"encoding/json"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"
)

// SnapshotService archives each published snapshot set as a JSON row.
type SnapshotService struct {
	repo port.Repository
}

func NewSnapshotService(repo port.Repository) *SnapshotService {
	return &SnapshotService{repo: repo}
}

func (s *SnapshotService) SaveSnapshot(ctx context.Context, ts int64, snaps *model.Snapshots) error {
	if s.repo == nil || snaps.Len() == 0 {
		return nil
	}
	b, err := json.Marshal(snaps)
	if err != nil {
		return err
	}
	return s.repo.InsertSnapshot(ctx, ts, string(b))
}
