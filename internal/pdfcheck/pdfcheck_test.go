package pdfcheck

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a valid PDF whose pages have the given media boxes in
// points, with a correct cross-reference table.
func minimalPDF(boxes ...[2]int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := range boxes {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(boxes)))
	for _, b := range boxes {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << >> /MediaBox [0 0 %d %d] >>", b[0], b[1]))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(minimalPDF([2]int{612, 792}, [2]int{595, 842}))
	require.NoError(t, err)
	assert.Equal(t, 2, info.Pages)
}

func TestInspectRejects(t *testing.T) {
	tests := map[string][]byte{
		"empty":       nil,
		"plain text":  []byte("hello, this is not a pdf"),
		"header only": []byte("%PDF-1.4\n"),
		"truncated":   minimalPDF([2]int{612, 792})[:40],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Inspect(data)
			assert.ErrorIs(t, err, ErrNotPDF)
		})
	}
}

func TestPageDimensions(t *testing.T) {
	dims, err := PageDimensions(minimalPDF([2]int{612, 792}, [2]int{792, 612}))
	require.NoError(t, err)
	require.Len(t, dims, 2)

	assert.Equal(t, 1, dims[0].PageNumber)
	assert.InDelta(t, 8.5, dims[0].Width, 1e-9)
	assert.InDelta(t, 11.0, dims[0].Height, 1e-9)
	assert.Equal(t, 2, dims[1].PageNumber)
	assert.InDelta(t, 11.0, dims[1].Width, 1e-9)
}

func TestPageDimensionsRejectsGarbage(t *testing.T) {
	_, err := PageDimensions([]byte("not a pdf at all"))
	assert.ErrorIs(t, err, ErrNotPDF)
}
