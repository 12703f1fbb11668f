package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"order-matching-engine/internal/config"
	"order-matching-engine/internal/engine"
	"order-matching-engine/internal/ledger"
	"order-matching-engine/internal/store"
	"order-matching-engine/internal/wire"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	log.Info().Msg("starting order matching engine server")

	cfg := config.Load(log)

	book := engine.NewOrderBook()
	tradeWriter := ledger.NewTradeWriter(cfg.LedgerPath, cfg.QueueCapacity, log)
	orderStore := store.NewOrderStore(cfg.SnapshotPath, log)

	eng := engine.NewEngine(book, tradeWriter, orderStore, log)
	eng.Start()
	defer eng.Stop()
	log.Info().Msg("matching engine started")

	srv := wire.NewServer(cfg.Addr(), eng, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received, initiating graceful shutdown")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	if err := srv.Close(); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server gracefully stopped")
}
