package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dirpush/internal/app"
	"dirpush/internal/config"
	"dirpush/internal/ledger"
	"dirpush/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "dirpush",
	Short: "Push a local directory tree to S3-compatible storage",
	Long:  `A concurrent, resumable directory uploader that skips content already transferred, tracks per-file failures, and survives restarts via an on-disk upload ledger.`,
	RunE:  runTransfer,
}

var purgeCmd = &cobra.Command{
	Use:   "purge <fingerprint>",
	Short: "Remove a content fingerprint from every upload ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runPurge,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.Flags().String("endpoint", "", "remote endpoint")
	rootCmd.Flags().String("access-key", "", "remote access key")
	rootCmd.Flags().String("secret-key", "", "remote secret key")
	rootCmd.Flags().String("bucket", "", "bucket name (required)")
	rootCmd.Flags().String("prefix", "", "remote key prefix")
	rootCmd.Flags().Bool("secure", true, "use HTTPS")

	rootCmd.Flags().String("root", "", "local directory to transfer (required)")
	rootCmd.Flags().Int("concurrency", 8, "number of concurrent workers")
	rootCmd.Flags().Int("max-entry-age-days", 30, "maximum age of a resumable upload record")
	rootCmd.Flags().String("state-dir", "", "upload ledger directory (default is per-user)")
	rootCmd.Flags().Bool("no-persistence", false, "do not record or consult the upload ledger")
	rootCmd.Flags().Int64("max-file-size", 0, "reject files larger than this many bytes (0 = unlimited)")
	rootCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.Flags().Bool("dry-run", false, "discover and classify without uploading")
	rootCmd.Flags().String("log-level", "info", "log level (debug/info/warn/error)")

	purgeCmd.Flags().String("state-dir", "", "upload ledger directory (default is per-user)")
	purgeCmd.Flags().String("log-level", "info", "log level (debug/info/warn/error)")

	rootCmd.AddCommand(purgeCmd)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	engine, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal, finishing in-flight transfers")
		cancel()
	}()

	return engine.Run(ctx)
}

func runPurge(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	log, err := logger.New(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	stateDir, _ := cmd.Flags().GetString("state-dir")
	if stateDir == "" {
		stateDir, err = ledger.DefaultStateDir()
		if err != nil {
			return fmt.Errorf("failed to locate state dir: %w", err)
		}
	}

	return ledger.PurgeFingerprint(stateDir, args[0], log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
