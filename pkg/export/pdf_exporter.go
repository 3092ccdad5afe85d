package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// landscapeColumns is the column count above which pages are printed landscape.
const landscapeColumns = 10

// PDFExporter renders datasets into a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the dataset title, meta lines and table.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation, usable := "P", 190.0
	if len(data.Headers) > landscapeColumns {
		orientation, usable = "L", 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(data.Title), "", 1, "C", false, 0, "")
	}
	if len(data.Meta) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, line := range data.Meta {
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	widths := columnWidths(data, usable)
	pdf.SetFont("Arial", "B", 8)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			align := "C"
			if widths[i] > usable/float64(len(widths)) {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, row[header], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(data Dataset, usable float64) []float64 {
	widths := make([]float64, len(data.Headers))
	if len(data.Weights) != len(data.Headers) {
		for i := range widths {
			widths[i] = usable / float64(len(widths))
		}
		return widths
	}
	var total float64
	for _, w := range data.Weights {
		if w > 0 {
			total += w
		}
	}
	for i, w := range data.Weights {
		if w <= 0 || total == 0 {
			widths[i] = 0
			continue
		}
		widths[i] = usable * w / total
	}
	return widths
}
