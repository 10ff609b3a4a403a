package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/config"
	"github.com/garyjia/ai-procurement/internal/container"
	httpapi "github.com/garyjia/ai-procurement/internal/interfaces/http"
	"github.com/garyjia/ai-procurement/pkg/utils"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	flag.Parse()

	if _, err := os.Stat(*envFile); err == nil {
		if err := gotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting procurement pipeline",
		zap.String("version", version),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	kv := utils.NewKVLogger(logger)
	handlers := httpapi.NewHandlers(c.Orchestrator(), c.Repo(), c.Locks(), kv.Named("http"), version)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handlers, kv.Named("http"))

	serveErr := server.Start(ctx)
	logger.Info("Shutting down")

	return errors.Join(serveErr, c.Close())
}
