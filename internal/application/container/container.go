package container

import (
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/application/service"
	"ratecast/internal/application/usecase/pipeline"
)

// Params carries what the pipeline services need from configuration.
type Params struct {
	BaseCoin      string
	Symbols       port.SymbolConverter
	Quoter        port.Quoter
	Freshness     time.Duration
	AverageWindow time.Duration
}

type Container struct {
	p    Params
	repo port.Repository

	resolver        *service.BasePriceResolver
	deriver         *service.RateDeriver
	aggregator      *service.Aggregator
	snapshotService *service.SnapshotService
}

// New builds the application container. repo may be nil when archiving is off.
func New(p Params, repo port.Repository) *Container {
	return &Container{
		p:    p,
		repo: repo,
	}
}

func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) Resolver() *service.BasePriceResolver {
	if c.resolver == nil {
		c.resolver = service.NewBasePriceResolver(c.p.BaseCoin, c.p.Symbols, c.p.Quoter, service.WithFreshness(c.p.Freshness))
	}
	return c.resolver
}

func (c *Container) Deriver() *service.RateDeriver {
	if c.deriver == nil {
		c.deriver = service.NewRateDeriver(c.p.BaseCoin, c.p.Symbols)
	}
	return c.deriver
}

func (c *Container) Aggregator() *service.Aggregator {
	if c.aggregator == nil {
		c.aggregator = service.NewAggregator(service.WithAverageWindow(c.p.AverageWindow))
	}
	return c.aggregator
}

func (c *Container) SnapshotService() *service.SnapshotService {
	if c.snapshotService == nil {
		c.snapshotService = service.NewSnapshotService(c.repo)
	}
	return c.snapshotService
}

// PipelineDeps assembles the pipeline around the given feed and outputs.
func (c *Container) PipelineDeps(feed port.TradeFeed, pub port.Publisher, m pipeline.Metrics) pipeline.ServiceDeps {
	deps := pipeline.ServiceDeps{
		Feed:       feed,
		Resolver:   c.Resolver(),
		Deriver:    c.Deriver(),
		Aggregator: c.Aggregator(),
		Publisher:  pub,
		Metrics:    m,
	}
	if c.repo != nil {
		deps.Archive = c.SnapshotService()
	}
	return deps
}

func (c *Container) Close() error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}
