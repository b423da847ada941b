package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/herdsync/internal/buildinfo"
	"github.com/dmitrijs2005/herdsync/internal/client/cli"
	"github.com/dmitrijs2005/herdsync/internal/client/config"
	"github.com/dmitrijs2005/herdsync/internal/filex"
	"github.com/dmitrijs2005/herdsync/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logPath, err := filex.EnsureParentDir(cfg.LogFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger, closer := logging.NewFileLogger(logPath, slog.LevelInfo)
	defer closer.Close()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
