// Package pdfcheck validates uploads and reads page geometry straight from
// the PDF when the OCR provider does not report it.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/obaidtambo/doc-struct/internal/docstate"
)

// ErrNotPDF is returned for bytes that cannot be opened as a PDF.
var ErrNotPDF = errors.New("not a readable PDF")

// PointsPerInch converts PDF user-space units to inches.
const PointsPerInch = 72.0

var pdfMagic = []byte("%PDF-")

// Info is what Inspect learns about an upload.
type Info struct {
	Pages int
}

// Inspect checks that data opens as a PDF with at least one page.
func Inspect(data []byte) (info Info, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return Info{}, fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	n := r.NumPage()
	if n < 1 {
		return Info{}, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return Info{Pages: n}, nil
}

// PageDimensions returns the media box size of every page in inches, the
// unit the OCR provider uses for PDFs.
func PageDimensions(data []byte) ([]docstate.PageDimensions, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("read page sizes: %w", err)
	}

	out := make([]docstate.PageDimensions, len(dims))
	for i, d := range dims {
		out[i] = docstate.PageDimensions{
			PageNumber: i + 1,
			Width:      d.Width / PointsPerInch,
			Height:     d.Height / PointsPerInch,
		}
	}
	return out, nil
}
