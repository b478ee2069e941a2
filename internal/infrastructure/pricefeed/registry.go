package pricefeed

import (
	"sort"
	"strings"
	"time"

	"ratecast/internal/application/port"

	"github.com/rs/zerolog/log"
)

// Settings carries what a provider needs to build its feed and quote client.
type Settings struct {
	WsURL          string
	RestURL        string
	Token          string
	Symbols        []string
	ReconnectDelay time.Duration
}

// Provider is a streaming feed plus the snapshot lookup of the same vendor.
type Provider struct {
	Feed   port.TradeFeed
	Quoter port.Quoter
}

type Factory func(s Settings) Provider

// registry maps provider names to factories; providers register from init().
var registry = make(map[string]Factory)

func Register(name string, factory Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	if factory == nil {
		log.Warn().Str("provider", name).Msg("invalid price feed factory")
		return
	}
	if _, exists := registry[name]; exists {
		log.Warn().Str("provider", name).Msg("price feed factory already registered, overwriting")
	}
	registry[name] = factory
	log.Debug().Str("provider", name).Msg("price feed factory registered")
}

func Get(name string) (Factory, bool) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return factory, ok
}

// Names lists registered providers, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
