package composite

import (
	"context"
	"errors"
	"testing"
)

type mockRepository struct {
	inserts []string
	err     error
	closed  bool
}

func (m *mockRepository) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	m.inserts = append(m.inserts, payload)
	return m.err
}

func (m *mockRepository) Close() error {
	m.closed = true
	return nil
}

func TestCompositeInsertReachesAllRepos(t *testing.T) {
	a := &mockRepository{err: errors.New("down")}
	b := &mockRepository{}
	r := New(a, nil, b)

	err := r.InsertSnapshot(context.Background(), 1, "{}")
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected first error, got %v", err)
	}
	if len(a.inserts) != 1 || len(b.inserts) != 1 {
		t.Errorf("expected both repos to receive the snapshot")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !a.closed || !b.closed {
		t.Errorf("expected both repos closed")
	}
}
