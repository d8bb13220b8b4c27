package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// uiEnv is consulted when --ui is not given on the command line.
const uiEnv = "XPL_UI"

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid ui mode %q (expected auto|on|off)", value)
	}
}

// uiModeFor reads --ui, falling back to $XPL_UI when the flag is unset.
func uiModeFor(cmd *cobra.Command) (uiMode, error) {
	value, err := cmd.Flags().GetString("ui")
	if err != nil {
		return "", fmt.Errorf("failed to get ui flag: %w", err)
	}
	source := "--ui"
	if env, ok := os.LookupEnv(uiEnv); ok && !cmd.Flags().Changed("ui") {
		value, source = env, uiEnv
	}
	mode, err := readUIMode(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", source, err)
	}
	return mode, nil
}

// uiTarget is what the progress display would run against.
type uiTarget struct {
	terminal bool // stderr, where the display renders
	ci       bool
	files    int
}

func currentUITarget(files int) uiTarget {
	return uiTarget{
		terminal: isTerminal(os.Stderr),
		ci:       os.Getenv("CI") != "",
		files:    files,
	}
}

func (t uiTarget) wantsTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return t.files > 0
	case uiModeOff:
		return false
	default:
		// a single file is done before the first frame
		return t.terminal && !t.ci && t.files > 1
	}
}
