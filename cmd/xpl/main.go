package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"xpl/internal/config"
	"xpl/internal/logging"
	"xpl/internal/prof"
	"xpl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "xpl",
	Short: "xpl language toolchain",
	Long:  `xpl checks, formats and serves xpl sources to editors`,
}

// main registers subcommands and persistent flags and runs the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to xpl.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error), overrides the config file")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to this file")

	var profiling *prof.Session
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		profiling, err = setupProfiling(cmd)
		return err
	}

	err := rootCmd.Execute()
	if stopErr := profiling.Stop(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "xpl: %v\n", stopErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(colorFlag) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		return isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
}

// loadConfig resolves the configuration from --config or xpl.toml above
// startDir. The returned path is empty when built-in defaults are used.
func loadConfig(cmd *cobra.Command, startDir string) (config.Config, string, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	return config.Resolve(explicit, startDir)
}

// newLogger builds the process logger. --log-level wins over the file.
func newLogger(cmd *cobra.Command, cfg config.Config) (*logging.Logger, error) {
	level, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if level == "" {
		level = cfg.Log.Level
	}
	return logging.New(logging.Options{Level: level, File: cfg.Log.File})
}

// startDirFor picks the directory config lookup starts from for a path
// argument.
func startDirFor(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func syncLogger(l *zap.Logger) {
	// stderr cannot be synced on some platforms
	_ = l.Sync()
}
