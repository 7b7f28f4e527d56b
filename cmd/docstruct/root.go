package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obaidtambo/doc-struct/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "docstruct",
	Short: "Turn PDFs into hierarchical, editable document states",
	Long: `docstruct runs OCR on a PDF, rebuilds its section tree, asks an LLM to fix
misplaced sections and flattens the result into the document state the editor
loads. Each stage is also available on its own.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	cfg    config.Config
	logger *slog.Logger
)

func init() {
	config.Flags(rootCmd.PersistentFlags())
}

// loadConfig resolves settings for every subcommand. Logs go to stderr so
// stdout stays free for command output.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	cfg = c
	logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// output opens path for writing, or returns the command's stdout when path
// is empty or "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func writeJSON(cmd *cobra.Command, path string, v any) error {
	w, closeFn, err := output(cmd, path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}
