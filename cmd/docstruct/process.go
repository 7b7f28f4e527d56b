package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obaidtambo/doc-struct/internal/files"
	"github.com/obaidtambo/doc-struct/internal/pdfcheck"
	"github.com/obaidtambo/doc-struct/internal/pipeline"
	"github.com/obaidtambo/doc-struct/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process [file.pdf]",
	Short: "Run the whole pipeline on a PDF",
	Long: `Runs OCR, tree building, hierarchy correction and flattening on a PDF and
records every stage in the configured database, exactly as an upload to the
server would. Stage artifacts are written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireOCR(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if _, err := pdfcheck.Inspect(data); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	st, err := store.Open(ctx, cfg.DBPath, logger.With("component", "store"))
	if err != nil {
		return err
	}
	defer st.Close()

	fm, err := files.NewManager(cfg.InputDir, cfg.CacheDir, cfg.OutputDir, logger.With("component", "files"))
	if err != nil {
		return err
	}

	corrector, oracle, err := pipeline.NewCorrector(cfg, logger)
	if err != nil {
		return err
	}
	if oracle != nil {
		defer oracle.Close()
	}

	filename := filepath.Base(args[0])
	docID := fm.NewDocumentID(filename)
	path, err := fm.SavePDF(docID, data)
	if err != nil {
		return err
	}
	if _, err := st.Create(ctx, docID, filename, path); err != nil {
		fm.CleanupPDF(docID)
		return err
	}

	worker := pipeline.NewWorker(pipeline.NewProvider(cfg, fm, logger), corrector, st, fm, logger.With("component", "worker"))
	job := pipeline.NewJob(docID, filename, data)
	procErr := worker.Process(ctx, job)

	snap := job.Snapshot()
	cmd.Printf("Document: %s\n", docID)
	cmd.Printf("  Status:      %s\n", snap.Status)
	cmd.Printf("  Pages:       %d\n", snap.Progress.Pages)
	cmd.Printf("  Sections:    %d\n", snap.Progress.Sections)
	cmd.Printf("  Corrections: %d (%d checks, %d inconclusive)\n", snap.Progress.Corrections, snap.Progress.Checks, snap.Progress.Inconclusive)
	cmd.Printf("  Paragraphs:  %d\n", snap.Progress.Paragraphs)
	if procErr != nil {
		return procErr
	}
	cmd.Printf("  State:       %s\n", fm.OutputPath(docID, "flattened_initial"))
	return nil
}
