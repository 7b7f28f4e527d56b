package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/pipeline"
)

var correctCmd = &cobra.Command{
	Use:   "correct [tree.json]",
	Short: "Run hierarchy correction on a saved section tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorrect,
}

var (
	correctOutput string
	correctReport bool
)

func init() {
	correctCmd.Flags().StringVarP(&correctOutput, "output", "o", "", "Write the corrected tree here instead of stdout")
	correctCmd.Flags().BoolVar(&correctReport, "report", false, "Print the correction report instead of the tree")
	rootCmd.AddCommand(correctCmd)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	var tree doctree.DocumentTree
	if err := readJSONFile(args[0], &tree); err != nil {
		return err
	}

	c := cfg
	c.CorrectionEnabled = true
	corrector, oracle, err := pipeline.NewCorrector(c, logger)
	if err != nil {
		return err
	}
	if oracle == nil {
		return errors.New("no oracle configured")
	}
	defer oracle.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := corrector.Correct(ctx, &tree)
	if err != nil {
		return err
	}
	logger.Info("correction finished", "checks", report.Checks, "corrections", len(report.Corrections), "inconclusive", report.Inconclusive)

	if correctReport {
		return writeJSON(cmd, correctOutput, report)
	}
	return writeJSON(cmd, correctOutput, &tree)
}
