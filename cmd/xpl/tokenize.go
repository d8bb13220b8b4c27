package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xpl/internal/diagfmt"
	"xpl/internal/lexer"
	"xpl/internal/source"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.xpl",
	Short: "Tokenize an xpl source file",
	Long:  `Tokenize breaks an xpl source file into its tokens and their leading trivia`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	file := source.NewFile(source.PathToURI(filePath), string(source.StripBOM(data)))
	tokens := lexer.Tokenize(file, lexer.Options{})

	switch format {
	case "pretty":
		return diagfmt.FormatTokensPretty(cmd.OutOrStdout(), tokens, file)
	case "json":
		return diagfmt.FormatTokensJSON(cmd.OutOrStdout(), tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
