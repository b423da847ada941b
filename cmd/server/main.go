package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/herdsync/internal/buildinfo"
	"github.com/dmitrijs2005/herdsync/internal/logging"
	"github.com/dmitrijs2005/herdsync/internal/server"
	"github.com/dmitrijs2005/herdsync/internal/server/config"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(context.Background(), "maxprocs", "msg", format, "args", args)
	})); err != nil {
		log.Printf("maxprocs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
