package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xpl/internal/lsp"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the xpl language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func runLSP(cmd *cobra.Command, _ []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(cmd, wd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer syncLogger(logger.Logger)

	explicit, _ := cmd.Root().PersistentFlags().GetString("config")
	opts := lsp.ServerOptions{Config: cfg, Logger: logger.Logger}
	// a discovered file is looked up again from the client's workspace root
	if explicit != "" {
		opts.ConfigPath = path
	}
	server := lsp.NewServer(os.Stdin, os.Stdout, opts)
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
