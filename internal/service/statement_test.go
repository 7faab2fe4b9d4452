package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/thorsby/docketwatch/internal/courtdata/mock"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/repository"
	"github.com/thorsby/docketwatch/internal/statement"
)

// captureGenerator records the assembled statement data instead of
// rendering it, so tests can assert on line items directly.
type captureGenerator struct {
	data *statement.Data
}

func (g *captureGenerator) Generate(ctx context.Context, data *statement.Data, w io.Writer) (int64, error) {
	g.data = data
	n, err := w.Write([]byte("%PDF-fake"))
	return int64(n), err
}

type statementFixture struct {
	store *fakeStore
	gen   *captureGenerator
	svc   StatementService
}

func newStatementFixture(t *testing.T) *statementFixture {
	t.Helper()
	store := newFakeStore()
	archive := mock.New(testLogger())
	ledger := NewLedgerService(archive, testLogger())
	gen := &captureGenerator{}
	svc := NewStatementService(store, ledger, gen, testLogger())
	return &statementFixture{store: store, gen: gen, svc: svc}
}

// seedAugustActivity loads one free copy, one completed purchase with
// its stored copy, one failed purchase, one still-pending purchase,
// and one download from the month before.
func seedAugustActivity(fx *statementFixture, user *domain.User) {
	aug := func(day int) time.Time {
		return time.Date(2026, time.August, day, 12, 0, 0, 0, time.UTC)
	}

	fx.store.seedDownload(repository.DownloadedDocument{
		UserID:      user.ID,
		DocumentID:  freeDocumentID,
		DocketID:    testDocketID,
		EntryNumber: 1,
		Description: "Complaint",
		PageCount:   23,
		Method:      string(domain.AcquisitionMethodFree),
		CreatedAt:   aug(5),
	})
	fx.store.seedDownload(repository.DownloadedDocument{
		UserID:      user.ID,
		DocumentID:  payDocumentID,
		DocketID:    testDocketID,
		EntryNumber: 45,
		Description: "Motion to Dismiss",
		PageCount:   12,
		Method:      string(domain.AcquisitionMethodPurchased),
		CreatedAt:   aug(12),
	})
	fx.store.seedPurchase(repository.PurchaseJob{
		UserID:          user.ID,
		RemoteID:        "rp-1",
		DocumentID:      payDocumentID,
		DocketID:        testDocketID,
		Status:          string(domain.PurchaseStatusCompleted),
		ActualCostCents: 120,
		CompletedAt:     sql.NullTime{Time: aug(12), Valid: true},
		CreatedAt:       aug(12),
	})
	fx.store.seedPurchase(repository.PurchaseJob{
		UserID:       user.ID,
		RemoteID:     "rp-2",
		DocumentID:   "90012500",
		DocketID:     "88102",
		Status:       string(domain.PurchaseStatusFailed),
		ErrorMessage: domain.ToNullString("document sealed"),
		CompletedAt:  sql.NullTime{Time: aug(20), Valid: true},
		CreatedAt:    aug(20),
	})
	fx.store.seedPurchase(repository.PurchaseJob{
		UserID:     user.ID,
		RemoteID:   "rp-3",
		DocumentID: "90012600",
		DocketID:   "88102",
		Status:     string(domain.PurchaseStatusPending),
		CreatedAt:  aug(25),
	})

	// July activity must not bleed into the August statement.
	fx.store.seedDownload(repository.DownloadedDocument{
		UserID:     user.ID,
		DocumentID: "90011111",
		DocketID:   testDocketID,
		Method:     string(domain.AcquisitionMethodFree),
		CreatedAt:  time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC),
	})
}

func TestMonthlyStatement_AssemblesPeriod(t *testing.T) {
	fx := newStatementFixture(t)
	user := testUser(domain.SubscriptionTierStarter)
	seedAugustActivity(fx, user)

	var buf bytes.Buffer
	n, err := fx.svc.MonthlyStatement(context.Background(), user, 2026, time.August, &buf)
	if err != nil {
		t.Fatalf("MonthlyStatement() error = %v", err)
	}
	if n == 0 || buf.Len() == 0 {
		t.Fatal("MonthlyStatement() wrote nothing")
	}

	data := fx.gen.data
	if data == nil {
		t.Fatal("generator never invoked")
	}

	if len(data.Downloads) != 1 {
		t.Fatalf("Downloads = %d lines, want 1 (free copy only)", len(data.Downloads))
	}
	free := data.Downloads[0]
	if free.DocumentID != freeDocumentID || free.AmountCents != 0 {
		t.Errorf("free line = %+v, want document %s at $0.00", free, freeDocumentID)
	}
	if free.Description != "Complaint" || free.Pages != 23 {
		t.Errorf("free line description/pages = %q/%d", free.Description, free.Pages)
	}

	if len(data.Purchases) != 2 {
		t.Fatalf("Purchases = %d lines, want 2 (completed + failed)", len(data.Purchases))
	}
	completed := data.Purchases[0]
	if completed.DocumentID != payDocumentID || completed.AmountCents != 120 {
		t.Errorf("completed line = %+v, want document %s at 120 cents", completed, payDocumentID)
	}
	if completed.Description != "Motion to Dismiss" || completed.Pages != 12 {
		t.Errorf("completed line not enriched from stored copy: %+v", completed)
	}
	failed := data.Purchases[1]
	if failed.DocumentID != "90012500" || failed.AmountCents != 0 || failed.Note == "" {
		t.Errorf("failed line = %+v, want $0.00 with a note", failed)
	}

	if got := data.TotalChargedCents(); got != 120 {
		t.Errorf("TotalChargedCents() = %d, want 120", got)
	}
	if !data.HasBalance || data.BalanceCents != 50_000 {
		t.Errorf("balance = (%v, %d), want snapshot from the archive", data.HasBalance, data.BalanceCents)
	}
	if data.PeriodLabel() != "August 2026" {
		t.Errorf("PeriodLabel() = %q", data.PeriodLabel())
	}
}

func TestMonthlyStatement_EmptyMonth(t *testing.T) {
	fx := newStatementFixture(t)
	user := testUser(domain.SubscriptionTierStarter)
	seedAugustActivity(fx, user)

	var buf bytes.Buffer
	if _, err := fx.svc.MonthlyStatement(context.Background(), user, 2026, time.June, &buf); err != nil {
		t.Fatalf("MonthlyStatement() error = %v", err)
	}

	data := fx.gen.data
	if len(data.Downloads) != 0 || len(data.Purchases) != 0 {
		t.Errorf("empty month has %d downloads and %d purchases", len(data.Downloads), len(data.Purchases))
	}
}

func TestMonthlyStatement_RejectsFutureMonth(t *testing.T) {
	fx := newStatementFixture(t)
	user := testUser(domain.SubscriptionTierStarter)

	future := time.Now().UTC().AddDate(0, 2, 0)
	var buf bytes.Buffer
	_, err := fx.svc.MonthlyStatement(context.Background(), user, future.Year(), future.Month(), &buf)
	if err == nil {
		t.Fatal("future month should be rejected")
	}
	if code := domain.ErrorCode(err); code != domain.EINVALID {
		t.Errorf("error code = %q, want %q", code, domain.EINVALID)
	}
}

func TestMonthlyStatement_RejectsBadMonth(t *testing.T) {
	fx := newStatementFixture(t)
	user := testUser(domain.SubscriptionTierStarter)

	var buf bytes.Buffer
	_, err := fx.svc.MonthlyStatement(context.Background(), user, 2026, time.Month(13), &buf)
	if err == nil {
		t.Fatal("month 13 should be rejected")
	}
	if code := domain.ErrorCode(err); code != domain.EINVALID {
		t.Errorf("error code = %q, want %q", code, domain.EINVALID)
	}
}

func TestMonthlyStatement_NoArchiveTokenOmitsBalance(t *testing.T) {
	fx := newStatementFixture(t)
	user := testUser(domain.SubscriptionTierStarter)
	user.CourtToken = ""
	seedAugustActivity(fx, user)

	var buf bytes.Buffer
	if _, err := fx.svc.MonthlyStatement(context.Background(), user, 2026, time.August, &buf); err != nil {
		t.Fatalf("MonthlyStatement() error = %v", err)
	}
	if fx.gen.data.HasBalance {
		t.Error("statement claims a balance for an account with no archive token")
	}
}

// End-to-end through the real renderer: the period assembles into an
// actual PDF document.
func TestMonthlyStatement_RendersPDF(t *testing.T) {
	store := newFakeStore()
	archive := mock.New(testLogger())
	ledger := NewLedgerService(archive, testLogger())
	svc := NewStatementService(store, ledger, statement.NewPDFGenerator(), testLogger())

	user := testUser(domain.SubscriptionTierStarter)
	fx := &statementFixture{store: store}
	seedAugustActivity(fx, user)

	var buf bytes.Buffer
	n, err := svc.MonthlyStatement(context.Background(), user, 2026, time.August, &buf)
	if err != nil {
		t.Fatalf("MonthlyStatement() error = %v", err)
	}
	if n == 0 {
		t.Fatal("MonthlyStatement() wrote zero bytes")
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Error("output does not start with PDF magic bytes")
	}
}
