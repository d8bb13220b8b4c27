// Command xpl_ls is the xpl language server spawned by editor extensions.
// It speaks JSON-RPC on stdin/stdout and logs to stderr or --log-file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xpl/internal/config"
	"xpl/internal/logging"
	"xpl/internal/lsp"
	"xpl/internal/metrics"
	"xpl/internal/version"
)

type serveOptions struct {
	configPath  string
	logLevel    string
	logFile     string
	metricsAddr string
}

func main() {
	var opts serveOptions
	rootCmd := &cobra.Command{
		Use:           "xpl_ls",
		Short:         "xpl language server (stdio)",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "path to xpl.toml (default: search upward from the workspace root)")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config file")
	rootCmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, lsp.ErrExitWithoutShutdown) {
			fmt.Fprintf(os.Stderr, "xpl_ls: %v\n", err)
		}
		os.Exit(1)
	}
}

func serve(ctx context.Context, opts serveOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var rec *metrics.Recorder
	if cfg.Metrics.Addr != "" {
		rec = metrics.New()
		go func() {
			if err := rec.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("metrics endpoint stopped", zap.String("addr", cfg.Metrics.Addr), zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Config:     cfg,
		ConfigPath: opts.configPath,
		Logger:     logger.Logger,
		Metrics:    rec,
	})
	err = server.Run(ctx)
	if errors.Is(err, lsp.ErrExit) {
		return nil
	}
	return err
}
