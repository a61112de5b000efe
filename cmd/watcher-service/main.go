package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "ecrwatch/cmd/watcher-service/docs"
	"ecrwatch/internal/config"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/bootstrap"
	"ecrwatch/pkg/logging"
)

const serviceName = "watcher-service"

var (
	configFile string
)

// @title           ecrwatch Watcher Service API
// @version         1.0
// @description     Admin API of the ECR push watcher: loaded matchers, decision preview and the action audit trail

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "ECR push watcher for App Runner services",
		Long:  "Watcher Service consumes ECR push events and updates or redeploys App Runner services whose version range matches the pushed tag",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (or CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(earlyLog *logging.EarlyLog) (*config.Config, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_PATH")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_PATH environment variable")
			return nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start consuming push events",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Watcher Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			log.InfowCtx(ctx, "Service running")
			runErr := app.Run(ctx)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer shutdownCancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.ErrorwCtx(shutdownCtx, "Shutdown failed", "error", err)
			}

			if runErr != nil && runErr != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

// checkConfigCmd validates the service config and the matcher document
// without starting any consumer.
func checkConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and print the loaded matchers",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			sess, err := bootstrap.NewAWSSession(cfg.AWS)
			if err != nil {
				earlyLog.Error("Failed to create AWS session: %v", err)
				return err
			}

			registry, err := bootstrap.LoadRegistry(cmd.Context(), cfg.Matchers, sess, logger.NopLogger())
			if err != nil {
				earlyLog.Error("Invalid matcher configuration: %v", err)
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d matcher(s)\n", registry.Len())
			for _, m := range registry.All() {
				fmt.Fprintf(out, "%s\t%s\t%s", m.Repository, m.SemVersion, m.ServiceARN)
				if m.Condition != "" {
					fmt.Fprintf(out, "\tif %s", m.Condition)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
