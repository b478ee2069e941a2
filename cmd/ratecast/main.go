package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcontainer "ratecast/internal/application/container"
	"ratecast/internal/application/port"
	"ratecast/internal/application/usecase/pipeline"
	"ratecast/internal/infrastructure/broadcast"
	"ratecast/internal/infrastructure/config"
	infracontainer "ratecast/internal/infrastructure/container"
	"ratecast/internal/infrastructure/exchange"
	_ "ratecast/internal/infrastructure/exchange/binance"
	_ "ratecast/internal/infrastructure/exchange/finnhub"
	"ratecast/internal/infrastructure/logger"
	"ratecast/internal/infrastructure/metrics"
	"ratecast/internal/infrastructure/pricefeed"
	"ratecast/internal/infrastructure/svc"
	"ratecast/internal/interfaces/console"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	logger.Setup("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := infracontainer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("container initialization failed")
	}
	defer infra.Close()

	factory, ok := pricefeed.Get(cfg.Feed.Provider)
	if !ok {
		log.Fatal().Err(svc.ErrUnknownProvider).
			Str("provider", cfg.Feed.Provider).
			Strs("available", pricefeed.Names()).
			Msg("feed provider not registered")
	}
	provider := factory(pricefeed.Settings{
		WsURL:          cfg.Feed.WsURL,
		RestURL:        cfg.Feed.RestURL,
		Token:          cfg.Feed.Token,
		Symbols:        cfg.Feed.Symbols,
		ReconnectDelay: cfg.ReconnectDelay(),
	})

	app := appcontainer.New(appcontainer.Params{
		BaseCoin:      cfg.Pipeline.Base,
		Symbols:       exchange.NewPrefixedSymbolConverter(cfg.Pipeline.Exchange, cfg.Pipeline.Quote),
		Quoter:        provider.Quoter,
		Freshness:     cfg.Freshness(),
		AverageWindow: cfg.AverageWindow(),
	}, infra.Repository())

	// outputs
	hub := broadcast.NewHub(cfg.Server.Topic, cfg.Server.SendBuffer)
	defer hub.Close()

	pubs := []port.Publisher{hub}
	if cfg.Broadcast.Redis.Enabled {
		pubs = append(pubs, broadcast.NewRedisPublisher(infra.RedisClient(), cfg.Broadcast.Redis.Channel, cfg.Server.Topic))
	}
	var sink *console.Sink
	if cfg.Console.Enabled {
		sink = console.NewSink()
		pubs = append(pubs, sink)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           broadcast.NewRouter(hub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", cfg.Server.Addr).Msg("http server failed")
			stop()
		}
	}()

	svcPipeline := pipeline.NewService(app.PipelineDeps(provider.Feed, broadcast.NewFanout(pubs...), metrics.NewRecorder()))

	log.Info().
		Str("config", *configPath).
		Str("provider", cfg.Feed.Provider).
		Str("base", cfg.Pipeline.Base).
		Strs("symbols", cfg.Feed.Symbols).
		Str("addr", cfg.Server.Addr).
		Int("publishers", len(pubs)).
		Msg("ratecast started")

	err = svcPipeline.Run(ctx)
	switch {
	case errors.Is(err, port.ErrMissingToken):
		log.Error().Err(err).Str("env", config.TokenEnv).Msg("feed not started; serving health and metrics only")
		<-ctx.Done()
	case err != nil && !errors.Is(err, context.Canceled):
		log.Error().Err(err).Msg("pipeline exited")
	}

	if sink != nil {
		_ = sink.NewLine()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("ratecast stopped")
}
