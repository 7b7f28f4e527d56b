package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [state.json]",
	Short: "Export a document state",
	Long:  `Writes a document state as json, csv, xlsx, md, html or docx.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file; stdout when empty")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	state, err := docstate.Decode(data)
	if err != nil {
		return err
	}

	w, closeFn, err := output(cmd, exportOutput)
	if err != nil {
		return err
	}
	if err := export.Write(w, format, state); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}
