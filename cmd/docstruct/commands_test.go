package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/flatten"
	"github.com/obaidtambo/doc-struct/internal/geometry"
	"github.com/obaidtambo/doc-struct/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleTree() *doctree.DocumentTree {
	box := &geometry.BoundingBox{X: 1, Y: 1, Width: 4, Height: 0.4}
	return &doctree.DocumentTree{
		DocumentID: "report_1",
		Structure: []*doctree.SectionNode{{
			ID: "section-0",
			Content: []doctree.ContentElement{
				{Ref: "/paragraphs/0", Kind: doctree.KindParagraph, Role: "title", Content: "Annual Report",
					Placements: []doctree.Placement{{PageNumber: 1, BoundingBox: box}}},
				{Ref: "/paragraphs/1", Kind: doctree.KindParagraph, Content: "Revenue grew.",
					Placements: []doctree.Placement{{PageNumber: 1, BoundingBox: &geometry.BoundingBox{X: 1, Y: 2, Width: 4, Height: 0.4}}}},
			},
		}},
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"process", "correct", "flatten", "export", "status"} {
		assert.True(t, names[want], want)
	}
}

func TestFlatten(t *testing.T) {
	dir := t.TempDir()
	treePath := writeFile(t, dir, "tree.json", sampleTree())
	pagesPath := writeFile(t, dir, "pages.json", []docstate.PageDimensions{{PageNumber: 1, Width: 8.5, Height: 11}})
	out := filepath.Join(dir, "state.json")

	_, err := execute(t, "flatten", treePath, "--pages", pagesPath, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	state, err := docstate.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "report_1", state.DocumentID)
	require.Len(t, state.PageDimensions, 1)
	require.Len(t, state.Paragraphs, 3)
	assert.Equal(t, docstate.RootID, state.Paragraphs[0].ID)
	assert.Equal(t, "Annual Report", state.Paragraphs[1].Content)
	assert.Equal(t, "Revenue grew.", state.Paragraphs[2].Content)
}

func TestFlattenToStdout(t *testing.T) {
	dir := t.TempDir()
	treePath := writeFile(t, dir, "tree.json", sampleTree())

	out, err := execute(t, "flatten", treePath, "--pages", "", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"documentId": "report_1"`)
}

func TestFlattenEmptyTree(t *testing.T) {
	dir := t.TempDir()
	treePath := writeFile(t, dir, "tree.json", &doctree.DocumentTree{DocumentID: "empty"})

	_, err := execute(t, "flatten", treePath, "--pages", "", "-o", "-")
	assert.ErrorIs(t, err, flatten.ErrNoStructure)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	state, err := flatten.Document(sampleTree(), nil)
	require.NoError(t, err)
	statePath := writeFile(t, dir, "state.json", state)
	out := filepath.Join(dir, "report.md")

	_, err = execute(t, "export", statePath, "--format", "markdown", "-o", out)
	require.NoError(t, err)

	md, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Annual Report\n\nRevenue grew.\n")
}

func TestExportBadFormat(t *testing.T) {
	dir := t.TempDir()
	state, err := flatten.Document(sampleTree(), nil)
	require.NoError(t, err)
	statePath := writeFile(t, dir, "state.json", state)

	_, err = execute(t, "export", statePath, "--format", "pdf", "-o", "-")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docs.db")

	st, err := store.Open(context.Background(), dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	_, err = st.Create(context.Background(), "report_1", "report.pdf", "")
	require.NoError(t, err)
	msg := "ocr: provider unavailable"
	require.NoError(t, st.UpdateStatus(context.Background(), "report_1", store.StatusFailed, store.StageUpdate{ErrorMessage: &msg}))
	require.NoError(t, st.Close())

	out, err := execute(t, "status", "report_1", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Document: report_1")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, msg)
	assert.NotContains(t, out, "still running")

	out, err = execute(t, "status", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1 documents")

	_, err = execute(t, "status", "missing", "--db-path", dbPath)
	assert.Error(t, err)
}

func TestStatusRunning(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "docs.db")
	st, err := store.Open(context.Background(), dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	_, err = st.Create(context.Background(), "report_2", "report.pdf", "")
	require.NoError(t, err)
	require.NoError(t, st.UpdateStatus(context.Background(), "report_2", store.StatusOCRInProgress, store.StageUpdate{}))
	require.NoError(t, st.Close())

	out, err := execute(t, "status", "report_2", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "OCR_IN_PROGRESS")
	assert.Contains(t, out, "Pipeline: still running")
}

func TestCorrectNeedsOracle(t *testing.T) {
	dir := t.TempDir()
	treePath := writeFile(t, dir, "tree.json", sampleTree())

	_, err := execute(t, "correct", treePath, "--oracle-provider", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown oracle-provider")
}

func TestProcessNeedsOCR(t *testing.T) {
	_, err := execute(t, "process", "missing.pdf", "--azure-endpoint", "", "--azure-key", "")
	assert.Error(t, err)
}
