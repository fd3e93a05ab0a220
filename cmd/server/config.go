package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
)

// loadAppConfig loads the configuration named by --config and sets up the
// logger it describes.
func loadAppConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.Int("worker_count", cfg.Generation.WorkerCount))

	return cfg, log, nil
}
