package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hpmalinova/Money-Ledger/config"
	"github.com/hpmalinova/Money-Ledger/ledger"
	"github.com/hpmalinova/Money-Ledger/logger"
	"github.com/hpmalinova/Money-Ledger/repository"
	"github.com/hpmalinova/Money-Ledger/rest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info().Msg("Starting personal finance ledger service ...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			l.Fatal().Err(err).Msg("migrating database")
		}
		l.Info().Msg("database schema is up to date")
	}

	db, err := repository.Open(ctx, cfg)
	if err != nil {
		l.Fatal().Err(err).Msg("opening database")
	}

	gw := repository.NewGateway(db)
	defer gw.Close()

	a := rest.App{}
	if err := a.Init(ledger.NewEngine(gw), cfg, l); err != nil {
		l.Fatal().Err(err).Msg("initializing API")
	}
	if err := a.Run(ctx, cfg.Addr()); err != nil {
		l.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
