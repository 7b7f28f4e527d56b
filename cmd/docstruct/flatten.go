package main

import (
	"github.com/spf13/cobra"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/flatten"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [tree.json]",
	Short: "Flatten a section tree into a document state",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlatten,
}

var (
	flattenOutput string
	flattenPages  string
)

func init() {
	flattenCmd.Flags().StringVarP(&flattenOutput, "output", "o", "", "Write the document state here instead of stdout")
	flattenCmd.Flags().StringVar(&flattenPages, "pages", "", "JSON file with the page dimensions")
	rootCmd.AddCommand(flattenCmd)
}

func runFlatten(cmd *cobra.Command, args []string) error {
	var tree doctree.DocumentTree
	if err := readJSONFile(args[0], &tree); err != nil {
		return err
	}
	var pages []docstate.PageDimensions
	if flattenPages != "" {
		if err := readJSONFile(flattenPages, &pages); err != nil {
			return err
		}
	}

	state, err := flatten.Document(&tree, pages)
	if err != nil {
		return err
	}
	return writeJSON(cmd, flattenOutput, state)
}
