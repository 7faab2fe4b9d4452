// Package service contains the business logic layer.
//
// This file implements monthly acquisition statements: a PDF listing
// every document a user fetched in a calendar month with the credits
// it cost. Settled purchases appear in the month their charge settled;
// free copies in the month they were stored.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/repository"
	"github.com/thorsby/docketwatch/internal/statement"
)

// =============================================================================
// Store Interface
// =============================================================================

// StatementStore is the subset of repository queries the statement
// service uses. *repository.Queries satisfies it.
type StatementStore interface {
	ListDownloadedDocumentsInPeriod(ctx context.Context, arg repository.ListDownloadedDocumentsInPeriodParams) ([]repository.DownloadedDocument, error)
	ListSettledPurchaseJobsInPeriod(ctx context.Context, arg repository.ListSettledPurchaseJobsInPeriodParams) ([]repository.PurchaseJob, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// StatementService renders acquisition statements.
type StatementService interface {
	// MonthlyStatement writes a PDF statement of the user's document
	// acquisitions for the given month and returns the bytes written.
	// The month must not be in the future.
	MonthlyStatement(ctx context.Context, user *domain.User, year int, month time.Month, w io.Writer) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type statementService struct {
	store  StatementStore
	ledger LedgerService
	gen    statement.Generator
	logger *slog.Logger
}

// NewStatementService creates a new StatementService.
func NewStatementService(store StatementStore, ledger LedgerService, gen statement.Generator, logger *slog.Logger) StatementService {
	return &statementService{
		store:  store,
		ledger: ledger,
		gen:    gen,
		logger: logger,
	}
}

// MonthlyStatement writes a PDF statement for the given month.
func (s *statementService) MonthlyStatement(ctx context.Context, user *domain.User, year int, month time.Month, w io.Writer) (int64, error) {
	const op = "statement.monthly"

	if month < time.January || month > time.December {
		return 0, domain.Invalid(op, "month must be between 1 and 12")
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	if year < 2000 || start.After(now) {
		return 0, domain.Invalid(op, "statement month must not be in the future")
	}
	end := start.AddDate(0, 1, 0)

	downloads, err := s.store.ListDownloadedDocumentsInPeriod(ctx, repository.ListDownloadedDocumentsInPeriodParams{
		UserID:      user.ID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		return 0, domain.Internal(err, op, "failed to list downloads")
	}

	settled, err := s.store.ListSettledPurchaseJobsInPeriod(ctx, repository.ListSettledPurchaseJobsInPeriodParams{
		UserID:      user.ID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		return 0, domain.Internal(err, op, "failed to list purchases")
	}

	data := &statement.Data{
		AccountName:  user.DisplayName(),
		AccountEmail: user.Email,
		PeriodStart:  start,
		PeriodEnd:    end,
		GeneratedAt:  now,
	}

	// Stored copies of purchased documents carry the description and
	// page count the purchase job does not.
	stored := make(map[string]repository.DownloadedDocument, len(downloads))
	for _, row := range downloads {
		stored[row.DocumentID] = row

		// Purchased copies already appear as settled jobs; listing
		// them again under free copies would double-count.
		if row.Method != string(domain.AcquisitionMethodFree) {
			continue
		}
		data.Downloads = append(data.Downloads, statement.Line{
			Date:        row.CreatedAt,
			DocketID:    row.DocketID,
			DocumentID:  row.DocumentID,
			Description: row.Description,
			Pages:       int(row.PageCount),
		})
	}

	for _, row := range settled {
		line := statement.Line{
			Date:        row.CompletedAt.Time,
			DocketID:    row.DocketID,
			DocumentID:  row.DocumentID,
			AmountCents: row.ActualCostCents,
		}
		if doc, ok := stored[row.DocumentID]; ok {
			line.Description = doc.Description
			line.Pages = int(doc.PageCount)
		}
		if row.Status == string(domain.PurchaseStatusFailed) {
			line.AmountCents = 0
			line.Note = "purchase failed"
		}
		data.Purchases = append(data.Purchases, line)
	}

	// Best effort: accounts without an archive token have no ledger,
	// and a statement is still useful without the balance box.
	if bal, err := s.ledger.Balance(ctx, user); err == nil {
		data.BalanceCents = bal.BalanceCents
		data.HasBalance = true
	}

	n, err := s.gen.Generate(ctx, data, w)
	if err != nil {
		return n, domain.Internal(err, op, "failed to render statement")
	}

	s.logger.Info("Statement generated",
		"user_id", user.ID,
		"period", data.PeriodLabel(),
		"documents", data.TotalDocuments(),
		"charged_cents", data.TotalChargedCents(),
		"bytes", n,
	)

	return n, nil
}
