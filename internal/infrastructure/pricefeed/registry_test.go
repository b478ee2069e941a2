package pricefeed

import (
	"context"
	"testing"

	"ratecast/internal/application/port"
)

type stubFeed struct{ s Settings }

func (f *stubFeed) Name() string { return "STUB" }
func (f *stubFeed) Start(ctx context.Context) (<-chan []port.Tick, error) {
	return make(chan []port.Tick), nil
}
func (f *stubFeed) Stop() error { return nil }

func TestRegisterAndGet(t *testing.T) {
	Register(" Stub ", func(s Settings) Provider { return Provider{Feed: &stubFeed{s: s}} })
	defer delete(registry, "stub")

	factory, ok := Get("STUB")
	if !ok {
		t.Fatalf("expected stub factory to be registered, have %v", Names())
	}
	p := factory(Settings{Token: "abc"})
	if p.Feed.(*stubFeed).s.Token != "abc" {
		t.Errorf("settings not passed to factory")
	}
}

func TestRegisterNilIgnored(t *testing.T) {
	Register("nil-provider", nil)
	if _, ok := Get("nil-provider"); ok {
		t.Errorf("nil factory must not be registered")
	}
}
