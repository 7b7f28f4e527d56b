package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obaidtambo/doc-struct/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show a document's processing status",
	Long:  `Shows one stored document, or every document when no id is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DBPath, logger.With("component", "store"))
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		docs, err := st.List(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			cmd.Println("No documents found")
			return nil
		}
		for i := range docs {
			cmd.Printf("  %-40s %-24s %s\n", docs[i].ID, docs[i].Status, docs[i].UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		cmd.Printf("\nTotal: %d documents\n", len(docs))
		return nil
	}

	doc, err := st.Get(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("document %s not found", args[0])
	}
	if err != nil {
		return err
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename: %s\n", doc.Filename)
	cmd.Printf("  Status:   %s\n", doc.Status)
	if !doc.Status.Terminal() {
		cmd.Println("  Pipeline: still running")
	}
	cmd.Printf("  Edited:   %t\n", doc.IsEdited)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	if doc.ErrorMessage != "" {
		cmd.Printf("  Error:    %s\n", doc.ErrorMessage)
	}
	return nil
}
