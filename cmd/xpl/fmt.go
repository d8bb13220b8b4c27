package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xpl/internal/check"
	"xpl/internal/format"
	"xpl/internal/source"
)

var errFormatChanges = errors.New("fmt: formatting changes required")

var fmtCmd = &cobra.Command{
	Use:   "fmt [flags] <path> [path...]",
	Short: "Format xpl source files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "rewrite files in place instead of printing them")
	fmtCmd.Flags().Bool("check", false, "list files whose formatting differs and fail if any")
	fmtCmd.Flags().Int("indent", 4, "spaces per indentation level")
	fmtCmd.Flags().Bool("tabs", false, "indent with tabs")
}

type fmtResult struct {
	Path      string
	Formatted string
	Changed   bool
	Err       error
}

func runFmt(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return err
	}
	checkOnly, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	if write && checkOnly {
		return fmt.Errorf("fmt: -w cannot be used with --check")
	}
	indent, err := cmd.Flags().GetInt("indent")
	if err != nil {
		return err
	}
	tabs, err := cmd.Flags().GetBool("tabs")
	if err != nil {
		return err
	}
	opt := format.Options{IndentWidth: indent, UseTabs: tabs}

	files, err := check.Expand(args)
	if err != nil {
		return err
	}

	var hasErrors, hasChanges bool
	out := cmd.OutOrStdout()
	for _, path := range files {
		res := formatFile(path, opt)
		if res.Err != nil {
			hasErrors = true
			fmt.Fprintf(os.Stderr, "fmt: %s: %v\n", res.Path, res.Err)
			continue
		}
		switch {
		case checkOnly:
			if res.Changed {
				hasChanges = true
				fmt.Fprintln(out, res.Path)
			}
		case write:
			if !res.Changed {
				continue
			}
			if err := os.WriteFile(res.Path, []byte(res.Formatted), 0o644); err != nil {
				hasErrors = true
				fmt.Fprintf(os.Stderr, "fmt: %s: %v\n", res.Path, err)
				continue
			}
			fmt.Fprintf(out, "reformatted %s\n", res.Path)
		default:
			fmt.Fprint(out, res.Formatted)
		}
	}

	if hasErrors {
		return fmt.Errorf("fmt: failed to format some files")
	}
	if checkOnly && hasChanges {
		cmd.SilenceErrors = true
		return errFormatChanges
	}
	return nil
}

func formatFile(path string, opt format.Options) fmtResult {
	res := fmtResult{Path: path}
	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	text := string(source.StripBOM(data))
	formatted, err := format.Source(source.PathToURI(path), text, opt)
	if err != nil {
		res.Err = err
		return res
	}
	res.Formatted = formatted
	res.Changed = formatted != text
	return res
}
