// Package pdfmeta inspects PDF documents fetched from the court archive
// before they are archived. Court filings are frequently scanned and
// carry malformed cross-reference tables, so parsing runs in relaxed
// validation mode.
package pdfmeta

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfSignature is the magic prefix every PDF file starts with.
var pdfSignature = []byte("%PDF-")

// IsPDF reports whether data carries the PDF file signature. Court
// mirrors sometimes answer document requests with an HTML error page
// and a 200 status; this catches those before they reach storage.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfSignature)
}

// PageCount parses the document held in data and returns its page count.
func PageCount(data []byte) (int, error) {
	if !IsPDF(data) {
		return 0, fmt.Errorf("data does not look like a PDF")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return count, nil
}
