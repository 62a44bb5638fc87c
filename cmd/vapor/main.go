package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steamops/vapor/internal/etl"
	"github.com/steamops/vapor/internal/serve"
	"github.com/steamops/vapor/pkg/config"
	"github.com/steamops/vapor/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "vapor",
		Short: "Vapor - storefront dataset ETL and lookup service",
		Long: `Vapor cleans the raw storefront dumps (games catalog, user reviews,
user items) into columnar projections and serves precomputed lookups over
the finished aggregate tables.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Vapor v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var (
		configPath string
		datasets   []string
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batch pipelines and write projection artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := etl.RunAll(ctx, cfg, datasets...); err != nil {
				logger.Error("pipeline run failed", zap.Error(err))
				return err
			}
			logger.Info("pipeline run complete")
			return nil
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	runCmd.Flags().StringSliceVar(&datasets, "dataset", nil, "Datasets to run (games, reviews, items); default all configured")
	root.AddCommand(runCmd)

	var serveConfigPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve keyed lookups over the precomputed aggregate tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(serveConfigPath)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			srv, err := serve.New(cfg)
			if err != nil {
				logger.Error("failed to start lookup service", zap.Error(err))
				return err
			}
			return srv.Run(ctx)
		},
	}
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to YAML configuration file")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := logger.Init(logger.Config{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
