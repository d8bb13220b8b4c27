package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xpl/internal/cache"
	"xpl/internal/check"
	"xpl/internal/diagfmt"
)

var errCheckFailed = errors.New("check found errors")

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.xpl|directory>...",
	Short: "Report diagnostics for xpl files",
	Long:  `Check runs the language server's diagnostics over files or every *.xpl file below a directory`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().Int("jobs", 0, "max files checked in parallel (0=auto)")
	checkCmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	checkCmd.Flags().Bool("cache", false, "reuse results of unchanged files from the disk cache")
	checkCmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	mode, err := uiModeFor(cmd)
	if err != nil {
		return err
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}

	cfg, _, err := loadConfig(cmd, startDirFor(args[0]))
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer syncLogger(logger.Logger)

	req := check.Request{
		Paths:          args,
		Root:           startDirFor(args[0]),
		Jobs:           jobs,
		ReportUnused:   cfg.Diagnostics.Unused,
		MaxDiagnostics: cfg.Server.MaxDiagnostics,
		Logger:         logger.Logger,
	}
	if useCache || cfg.Cache.Enabled {
		dc, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			// checking still works without a cache
			logger.Warn("disk cache unavailable", zap.Error(err))
		} else {
			req.Cache = dc
		}
	}

	var files []string
	useTUI := false
	if format == "pretty" && mode != uiModeOff {
		files, err = check.Expand(args)
		if err != nil {
			return err
		}
		useTUI = currentUITarget(len(files)).wantsTUI(mode)
	}

	var results []check.Result
	if useTUI {
		results, err = runCheckWithUI(cmd.Context(), fmt.Sprintf("checking %d files", len(files)), files, req)
		if err != nil {
			return err
		}
	} else {
		results, err = check.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
	}

	units := make([]diagfmt.Unit, 0, len(results))
	failed := false
	for _, res := range results {
		units = append(units, diagfmt.Unit{Path: res.Path, File: res.File, Diagnostics: res.Diagnostics})
		failed = failed || res.HasErrors()
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	baseDir, _ := os.Getwd()
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}

	switch format {
	case "json":
		if err := diagfmt.JSON(cmd.OutOrStdout(), units, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			BaseDir:          baseDir,
			IncludeNotes:     withNotes,
		}); err != nil {
			return err
		}
	default:
		colorize, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		diagfmt.Pretty(cmd.OutOrStdout(), units, diagfmt.PrettyOpts{
			Color:     colorize,
			Context:   1,
			PathMode:  pathMode,
			BaseDir:   baseDir,
			ShowNotes: withNotes,
		})
		diagfmt.Summary(cmd.OutOrStdout(), diagfmt.Count(units), colorize)
	}

	if failed {
		cmd.SilenceErrors = true
		return errCheckFailed
	}
	return nil
}
