// Package statement provides PDF generation for monthly acquisition
// statements: every document fetched in a month with the credits it
// cost, suitable for expensing court-record spend to a client matter.
package statement

import (
	"context"
	"fmt"
	"io"
	"time"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator renders an assembled statement to an output stream.
type Generator interface {
	// Generate writes the statement and returns the number of bytes written.
	Generate(ctx context.Context, data *Data, w io.Writer) (int64, error)
}

// =============================================================================
// Statement Data
// =============================================================================

// Line is one acquisition on the statement.
type Line struct {
	Date        time.Time // When the copy was stored or the charge settled
	DocketID    string    // Docket the document belongs to
	DocumentID  string    // Archive document identifier
	Description string    // Entry description, may be empty
	Pages       int       // Page count, 0 when unknown
	Note        string    // Extra context, e.g. a failure reason
	AmountCents int64     // Charge in cents; 0 for free copies and failed fetches
}

// Data is a fully assembled statement ready for rendering.
type Data struct {
	AccountName  string // Display name of the account holder
	AccountEmail string // Login email, printed under the name
	PeriodStart  time.Time
	PeriodEnd    time.Time // Exclusive
	GeneratedAt  time.Time

	// BalanceCents is the ledger snapshot at generation time. It is
	// only printed when HasBalance is set; accounts without an archive
	// token have no ledger to read.
	BalanceCents int64
	HasBalance   bool

	Downloads []Line // Free archive copies fetched this period
	Purchases []Line // Paid fetches settled this period
}

// PeriodLabel returns the statement month for display, e.g. "August 2026".
func (d *Data) PeriodLabel() string {
	return d.PeriodStart.Format("January 2006")
}

// TotalChargedCents sums the settled charges on the statement.
func (d *Data) TotalChargedCents() int64 {
	var total int64
	for _, line := range d.Purchases {
		total += line.AmountCents
	}
	return total
}

// TotalDocuments counts every acquisition on the statement.
func (d *Data) TotalDocuments() int {
	return len(d.Downloads) + len(d.Purchases)
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors defines the palette statements are rendered in.
var BrandColors = struct {
	Ink       string // Primary brand color
	Brass     string // Accent for amounts
	TextDark  string // Primary text
	TextMuted string // Secondary text
	Border    string // Borders and dividers
}{
	Ink:       "#1E2A45",
	Brass:     "#8A6D2F",
	TextDark:  "#1F2937",
	TextMuted: "#6B7280",
	Border:    "#E5E7EB",
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// FormatCents renders a cent amount as dollars, e.g. 230 -> "$2.30".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// FormatDate formats a date for display on statements.
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatDateTime formats a timestamp for the statement footer.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// TruncateText shortens text to fit a table cell, adding an ellipsis.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:maxLen]
	}
	return text[:maxLen-3] + "..."
}

// =============================================================================
// Color Conversion
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}
