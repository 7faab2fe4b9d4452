package statement

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders statements as PDF documents.
type PDFGenerator struct {
	pageWidth    float64
	pageHeight   float64
	margin       float64
	contentWidth float64
}

// NewPDFGenerator creates a PDF statement generator.
func NewPDFGenerator() *PDFGenerator {
	g := &PDFGenerator{
		pageWidth:  210, // A4 width in mm
		pageHeight: 297, // A4 height in mm
		margin:     15,
	}
	g.contentWidth = g.pageWidth - 2*g.margin
	return g
}

// Generate renders the statement as a PDF and writes it to w.
func (g *PDFGenerator) Generate(ctx context.Context, data *Data, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Acquisition Statement - %s", data.PeriodLabel()), false)
	pdf.SetAuthor("DocketWatch", false)
	pdf.SetCreator("DocketWatch", false)
	pdf.SetMargins(g.margin, g.margin, g.margin)
	pdf.SetAutoPageBreak(true, 20)

	g.setupFooter(pdf, data)

	pdf.AddPage()
	g.addHeader(pdf, data)
	g.addAccountBlock(pdf, data)
	g.addSummary(pdf, data)

	if data.TotalDocuments() == 0 {
		g.addEmptyNotice(pdf)
	} else {
		if len(data.Purchases) > 0 {
			g.addLineTable(pdf, "Paid Fetches", data.Purchases)
		}
		if len(data.Downloads) > 0 {
			g.addLineTable(pdf, "Free Copies", data.Downloads)
		}
	}

	if pdf.Error() != nil {
		return 0, fmt.Errorf("pdf generation: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Sections
// =============================================================================

func (g *PDFGenerator) addHeader(pdf *fpdf.Fpdf, data *Data) {
	r, gr, b := HexToRGB(BrandColors.Ink)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 32, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(g.margin, 8)
	pdf.CellFormat(g.contentWidth, 8, "DocketWatch", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(g.margin)
	label := fmt.Sprintf("Acquisition Statement  |  %s", data.PeriodLabel())
	pdf.CellFormat(g.contentWidth, 6, label, "", 1, "L", false, 0, "")

	pdf.SetY(38)
}

func (g *PDFGenerator) addAccountBlock(pdf *fpdf.Fpdf, data *Data) {
	r, gr, b := HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(g.contentWidth, 6, data.AccountName, "", 1, "L", false, 0, "")

	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(g.contentWidth, 5, data.AccountEmail, "", 1, "L", false, 0, "")

	period := fmt.Sprintf("Period: %s through %s",
		FormatDate(data.PeriodStart),
		FormatDate(data.PeriodEnd.AddDate(0, 0, -1)))
	pdf.CellFormat(g.contentWidth, 5, period, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (g *PDFGenerator) addSummary(pdf *fpdf.Fpdf, data *Data) {
	type row struct {
		label string
		value string
	}
	rows := []row{
		{"Documents acquired", fmt.Sprintf("%d", data.TotalDocuments())},
		{"Free copies", fmt.Sprintf("%d", len(data.Downloads))},
		{"Paid fetches", fmt.Sprintf("%d", len(data.Purchases))},
		{"Total charged", FormatCents(data.TotalChargedCents())},
	}
	if data.HasBalance {
		rows = append(rows, row{"Credit balance", FormatCents(data.BalanceCents)})
	}

	labelWidth := g.contentWidth * 0.6
	valueWidth := g.contentWidth - labelWidth

	pdf.SetFont("Helvetica", "B", 10)
	r, gr, b := HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.CellFormat(g.contentWidth, 7, "Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetFillColor(245, 245, 245)
	for i, row := range rows {
		fill := i%2 == 0
		bold := row.label == "Total charged"
		if bold {
			pdf.SetFont("Helvetica", "B", 9)
		}
		pdf.CellFormat(labelWidth, 6, row.label, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(valueWidth, 6, row.value, "1", 1, "R", fill, 0, "")
		if bold {
			pdf.SetFont("Helvetica", "", 9)
		}
	}
	pdf.Ln(6)
}

func (g *PDFGenerator) addLineTable(pdf *fpdf.Fpdf, title string, lines []Line) {
	g.checkPageBreak(pdf, 30)

	pdf.SetFont("Helvetica", "B", 10)
	r, gr, b := HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.CellFormat(g.contentWidth, 7, title, "", 1, "L", false, 0, "")

	dateW := 22.0
	docW := 26.0
	pagesW := 14.0
	amountW := 28.0
	descW := g.contentWidth - dateW - docW - pagesW - amountW

	// Header row
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(dateW, 6, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(docW, 6, "Document", "1", 0, "L", true, 0, "")
	pdf.CellFormat(descW, 6, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(pagesW, 6, "Pages", "1", 0, "R", true, 0, "")
	pdf.CellFormat(amountW, 6, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	var total int64
	for _, line := range lines {
		g.checkPageBreak(pdf, 8)

		desc := line.Description
		if desc == "" {
			desc = "(no description)"
		}
		if line.Note != "" {
			desc = fmt.Sprintf("%s [%s]", desc, line.Note)
		}
		pages := ""
		if line.Pages > 0 {
			pages = fmt.Sprintf("%d", line.Pages)
		}

		pdf.CellFormat(dateW, 6, FormatDate(line.Date), "1", 0, "L", false, 0, "")
		pdf.CellFormat(docW, 6, line.DocumentID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(descW, 6, TruncateText(desc, 58), "1", 0, "L", false, 0, "")
		pdf.CellFormat(pagesW, 6, pages, "1", 0, "R", false, 0, "")
		pdf.CellFormat(amountW, 6, FormatCents(line.AmountCents), "1", 1, "R", false, 0, "")
		total += line.AmountCents
	}

	// Total row
	pdf.SetFont("Helvetica", "B", 8)
	r, gr, b = HexToRGB(BrandColors.Brass)
	pdf.SetTextColor(r, gr, b)
	pdf.CellFormat(dateW+docW+descW+pagesW, 6, "Subtotal", "1", 0, "R", false, 0, "")
	pdf.CellFormat(amountW, 6, FormatCents(total), "1", 1, "R", false, 0, "")

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.Ln(6)
}

func (g *PDFGenerator) addEmptyNotice(pdf *fpdf.Fpdf) {
	r, gr, b := HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(g.contentWidth, 6, "No documents were acquired in this period.", "", "L", false)
}

func (g *PDFGenerator) setupFooter(pdf *fpdf.Fpdf, data *Data) {
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		r, gr, b := HexToRGB(BrandColors.TextMuted)
		pdf.SetTextColor(r, gr, b)
		pdf.SetFont("Helvetica", "", 7)

		generated := fmt.Sprintf("Generated %s", FormatDateTime(data.GeneratedAt))
		pdf.CellFormat(g.contentWidth/2, 5, generated, "", 0, "L", false, 0, "")

		page := fmt.Sprintf("Page %d of {nb}", pdf.PageNo())
		pdf.CellFormat(g.contentWidth/2, 5, page, "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
}

// checkPageBreak adds a page break if fewer than needed mm remain.
func (g *PDFGenerator) checkPageBreak(pdf *fpdf.Fpdf, needed float64) {
	if pdf.GetY()+needed > g.pageHeight-25 {
		pdf.AddPage()
	}
}
