package service

import (
	"context"
	"testing"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/courtdata/mock"
	"github.com/thorsby/docketwatch/internal/domain"
)

func newSearchFixture(t *testing.T) (*mock.Service, SearchService) {
	t.Helper()
	archive := mock.New(testLogger())
	return archive, NewSearchService(archive, testLogger())
}

func TestSearchDockets_ReturnsResults(t *testing.T) {
	_, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	dockets, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "Smith"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(dockets) != 2 {
		t.Fatalf("got %d dockets, want 2", len(dockets))
	}
	if dockets[0].CaseName != "Smith v. Acme Corp" {
		t.Errorf("CaseName = %q", dockets[0].CaseName)
	}
}

func TestSearchDockets_RepeatQueryServedFromCache(t *testing.T) {
	archive, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	for i := 0; i < 3; i++ {
		if _, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "Smith"}); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	if archive.SearchDocketsCalls != 1 {
		t.Errorf("archive searches = %d, want 1", archive.SearchDocketsCalls)
	}
}

func TestSearchDockets_CacheKeyIgnoresCase(t *testing.T) {
	archive, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	if _, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "Smith"}); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "  smith "}); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if archive.SearchDocketsCalls != 1 {
		t.Errorf("archive searches = %d, want 1", archive.SearchDocketsCalls)
	}
}

func TestSearchDockets_DistinctQueriesMissCache(t *testing.T) {
	archive, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	if _, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "Smith"}); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "Smith", Court: "nysd"}); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if archive.SearchDocketsCalls != 2 {
		t.Errorf("archive searches = %d, want 2", archive.SearchDocketsCalls)
	}
}

func TestSearchDockets_EmptyQueryRejected(t *testing.T) {
	archive, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	_, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "   "})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("error = %v, want EINVALID", err)
	}
	if archive.SearchDocketsCalls != 0 {
		t.Errorf("archive searches = %d, want 0", archive.SearchDocketsCalls)
	}
}

func TestSearchDockets_ArchiveOutageMapped(t *testing.T) {
	archive, svc := newSearchFixture(t)
	archive.SearchDocketsError = courtdata.EArchiveUnavailable
	user := testUser(domain.SubscriptionTierFree)

	_, err := svc.SearchDockets(context.Background(), user, domain.SearchDocketsParams{Query: "Smith"})
	if domain.ErrorCode(err) != domain.EUNAVAILABLE {
		t.Fatalf("error = %v, want EUNAVAILABLE", err)
	}
}

func TestGetDocketDocuments_ClassifiesEachEntry(t *testing.T) {
	_, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	docs, err := svc.GetDocketDocuments(context.Background(), user, testDocketID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	byID := map[string]domain.AcquirableDocument{}
	for _, d := range docs {
		byID[d.DocumentID] = d
	}
	if free := byID[freeDocumentID]; !free.IsAvailable || free.FilePath == "" {
		t.Errorf("document %s should be served from the archive store: %+v", freeDocumentID, free)
	}
	if pay := byID[payDocumentID]; pay.IsAvailable {
		t.Errorf("document %s should require purchase: %+v", payDocumentID, pay)
	}
}

func TestGetDocketDocuments_NeverCached(t *testing.T) {
	archive, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	for i := 0; i < 2; i++ {
		if _, err := svc.GetDocketDocuments(context.Background(), user, testDocketID); err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
	}
	if archive.GetDocketDocumentsCalls != 2 {
		t.Errorf("archive listings = %d, want 2", archive.GetDocketDocumentsCalls)
	}
}

func TestGetDocketDocuments_EmptyDocketIDRejected(t *testing.T) {
	_, svc := newSearchFixture(t)
	user := testUser(domain.SubscriptionTierFree)

	_, err := svc.GetDocketDocuments(context.Background(), user, "")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("error = %v, want EINVALID", err)
	}
}

func TestGetDocketDocuments_UnknownDocketMapped(t *testing.T) {
	archive, svc := newSearchFixture(t)
	archive.GetDocketDocumentsError = courtdata.EArchiveNotFound
	user := testUser(domain.SubscriptionTierFree)

	_, err := svc.GetDocketDocuments(context.Background(), user, "999999")
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Fatalf("error = %v, want ENOTFOUND", err)
	}
}
