package statement

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"zero", 0, "$0.00"},
		{"under a dollar", 30, "$0.30"},
		{"single cent", 5, "$0.05"},
		{"typical charge", 230, "$2.30"},
		{"large balance", 1000050, "$10000.50"},
		{"negative", -75, "-$0.75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCents(tt.cents)
			if got != tt.want {
				t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
			}
		})
	}
}

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		r, g, b int
	}{
		{"white with hash", "#FFFFFF", 255, 255, 255},
		{"black without hash", "000000", 0, 0, 0},
		{"brand ink", "#1E2A45", 30, 42, 69},
		{"lowercase", "#ff00aa", 255, 0, 170},
		{"invalid length", "#FFF", 0, 0, 0},
		{"empty", "", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := HexToRGB(tt.hex)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("HexToRGB(%q) = (%d, %d, %d), want (%d, %d, %d)",
					tt.hex, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{"fits", "short", 10, "short"},
		{"exact", "exactly10!", 10, "exactly10!"},
		{"truncated", "a very long description here", 10, "a very ..."},
		{"tiny limit", "abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateText(tt.text, tt.maxLen)
			if got != tt.want {
				t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.text, tt.maxLen, got, tt.want)
			}
			if len(got) > tt.maxLen {
				t.Errorf("result length %d exceeds max %d", len(got), tt.maxLen)
			}
		})
	}
}

func TestDataTotals(t *testing.T) {
	data := &Data{
		Downloads: []Line{
			{DocumentID: "90012345", AmountCents: 0},
		},
		Purchases: []Line{
			{DocumentID: "90012399", AmountCents: 120},
			{DocumentID: "90012401", AmountCents: 300},
			{DocumentID: "90012500", AmountCents: 0, Note: "failed"},
		},
	}

	if got := data.TotalChargedCents(); got != 420 {
		t.Errorf("TotalChargedCents() = %d, want 420", got)
	}
	if got := data.TotalDocuments(); got != 4 {
		t.Errorf("TotalDocuments() = %d, want 4", got)
	}
}

func TestPeriodLabel(t *testing.T) {
	data := &Data{
		PeriodStart: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	}

	if got := data.PeriodLabel(); got != "August 2026" {
		t.Errorf("PeriodLabel() = %q, want %q", got, "August 2026")
	}
}

func testData() *Data {
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	return &Data{
		AccountName:  "Jordan Ellis",
		AccountEmail: "jordan@example.com",
		PeriodStart:  start,
		PeriodEnd:    start.AddDate(0, 1, 0),
		GeneratedAt:  time.Date(2026, time.September, 2, 9, 30, 0, 0, time.UTC),
		BalanceCents: 48_500,
		HasBalance:   true,
		Downloads: []Line{
			{
				Date:        start.AddDate(0, 0, 3),
				DocketID:    "65748",
				DocumentID:  "90012345",
				Description: "Complaint against Acme Corp",
				Pages:       23,
			},
		},
		Purchases: []Line{
			{
				Date:        start.AddDate(0, 0, 10),
				DocketID:    "65748",
				DocumentID:  "90012399",
				Description: "Motion to Dismiss",
				Pages:       12,
				AmountCents: 120,
			},
			{
				Date:       start.AddDate(0, 0, 12),
				DocketID:   "88102",
				DocumentID: "90012500",
				Note:       "purchase failed",
			},
		},
	}
}

func TestPDFGenerator_Generate(t *testing.T) {
	gen := NewPDFGenerator()
	var buf bytes.Buffer

	n, err := gen.Generate(context.Background(), testData(), &buf)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n == 0 {
		t.Fatal("Generate() wrote zero bytes")
	}
	if int64(buf.Len()) != n {
		t.Errorf("reported %d bytes, buffer has %d", n, buf.Len())
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Error("output does not start with PDF magic bytes")
	}
}

func TestPDFGenerator_GenerateEmptyPeriod(t *testing.T) {
	gen := NewPDFGenerator()
	data := testData()
	data.Downloads = nil
	data.Purchases = nil

	var buf bytes.Buffer
	n, err := gen.Generate(context.Background(), data, &buf)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n == 0 {
		t.Fatal("Generate() wrote zero bytes for empty period")
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Error("output does not start with PDF magic bytes")
	}
}

func TestPDFGenerator_GenerateManyLines(t *testing.T) {
	gen := NewPDFGenerator()
	data := testData()
	start := data.PeriodStart
	// Enough rows to force a page break.
	for i := 0; i < 80; i++ {
		data.Purchases = append(data.Purchases, Line{
			Date:        start.AddDate(0, 0, i%28),
			DocketID:    "65748",
			DocumentID:  "90020000",
			Description: "Exhibit filed under seal with a very long description that will be truncated",
			Pages:       4,
			AmountCents: 40,
		})
	}

	var buf bytes.Buffer
	if _, err := gen.Generate(context.Background(), data, &buf); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestPDFGenerator_CancelledContext(t *testing.T) {
	gen := NewPDFGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if _, err := gen.Generate(ctx, testData(), &buf); err == nil {
		t.Fatal("Generate() with cancelled context should fail")
	}
}
