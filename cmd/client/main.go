package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/thyroscope/internal/buildinfo"
	"github.com/dmitrijs2005/thyroscope/internal/client/chat"
	"github.com/dmitrijs2005/thyroscope/internal/client/cli"
	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/client/config"
	"github.com/dmitrijs2005/thyroscope/internal/client/preferences"
	"github.com/dmitrijs2005/thyroscope/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/thyroscope/internal/client/session"
	"github.com/dmitrijs2005/thyroscope/internal/client/storage"
	"github.com/dmitrijs2005/thyroscope/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := session.NewStore(db, logger)
	api := client.NewHTTPClient(cfg.ServerURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger),
	)

	app := cli.NewApp(api, cli.Deps{
		Store:       store,
		Preferences: preferences.NewService(metadata.NewSQLiteRepository(db)),
		Chat:        chat.NewClient(api, logger),
		Log:         logger,
		AssetBase:   cfg.ServerURL,
		DBPath:      cfg.DBPath,
	}, os.Stdin, os.Stdout)

	return app.Run(ctx)
}
