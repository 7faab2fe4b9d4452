package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/courtdata/mock"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/repository"
	"github.com/thorsby/docketwatch/internal/storage"
)

// purchaseFixture wires a purchase service against the mock archive
// with fast polling. Close is registered as cleanup so background
// pollers never outlive a test.
type purchaseFixture struct {
	store   *fakeStore
	archive *mock.Service
	blobs   storage.Storage
	ledger  LedgerService
	svc     PurchaseService
}

func newPurchaseFixture(t *testing.T, config PurchaseConfig) *purchaseFixture {
	t.Helper()
	store := newFakeStore()
	archive := mock.New(testLogger())
	blobs, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, testLogger())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	ledger := NewLedgerService(archive, testLogger())
	svc := NewPurchaseService(store, archive, blobs, ledger, config, testLogger())
	t.Cleanup(svc.Close)
	return &purchaseFixture{store: store, archive: archive, blobs: blobs, ledger: ledger, svc: svc}
}

func fastPolling() PurchaseConfig {
	return PurchaseConfig{PollInterval: time.Millisecond, MaxPolls: 10}
}

// slowPolling keeps jobs pending for the whole test.
func slowPolling() PurchaseConfig {
	return PurchaseConfig{PollInterval: time.Hour, MaxPolls: 1}
}

func processingState() *courtdata.PurchaseState {
	return &courtdata.PurchaseState{Status: courtdata.RemoteStatusProcessing}
}

func successState() *courtdata.PurchaseState {
	return &courtdata.PurchaseState{
		Status:    courtdata.RemoteStatusSuccess,
		CostCents: 120,
		FilePath:  "recap/gov.uscourts.nysd.500123.45.0.pdf",
		Raw:       []byte(`{"status":"successful"}`),
	}
}

func submitParams(user *domain.User) domain.SubmitPurchaseParams {
	return domain.SubmitPurchaseParams{
		UserID:     user.ID,
		DocketID:   testDocketID,
		DocumentID: payDocumentID,
	}
}

// waitForStatus blocks until the job reaches the given status, then
// closes the service so all background work has finished before the
// test asserts anything.
func (fx *purchaseFixture) waitForStatus(t *testing.T, jobID uuid.UUID, want domain.PurchaseStatus) repository.PurchaseJob {
	t.Helper()
	waitFor(t, 2*time.Second, "purchase to settle "+string(want), func() bool {
		row, ok := fx.store.purchaseJob(jobID)
		return ok && row.Status == string(want)
	})
	fx.svc.Close()
	row, _ := fx.store.purchaseJob(jobID)
	return row
}

// =============================================================================
// Submit
// =============================================================================

func TestSubmit_CreatesPendingJob(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.SurpriseFree() {
		t.Fatal("submission should have queued a paid fetch")
	}

	job := sub.Job
	if job.Status != domain.PurchaseStatusPending {
		t.Errorf("status = %q, want pending", job.Status)
	}
	// The archive lists the document at 12 pages; 12 x 10c = 120c.
	if job.EstimatedCostCents != 120 {
		t.Errorf("estimate = %d cents, want 120", job.EstimatedCostCents)
	}
	if job.RemoteID == "" {
		t.Error("remote ID not recorded")
	}
	if fx.archive.SubmitPurchaseCalls != 1 {
		t.Errorf("archive submissions = %d, want 1", fx.archive.SubmitPurchaseCalls)
	}
}

func TestSubmit_SecondPurchaseForSameDocumentRejected(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	if _, err := fx.svc.Submit(context.Background(), user, submitParams(user)); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if domain.ErrorCode(err) != domain.EINPROGRESS {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.EINPROGRESS)
	}
	if fx.archive.SubmitPurchaseCalls != 1 {
		t.Errorf("archive submissions = %d, want 1 (second submit must not buy again)", fx.archive.SubmitPurchaseCalls)
	}
}

func TestSubmit_AlreadyDownloadedRejected(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	err := fx.store.CreateDownloadedDocument(context.Background(), repository.CreateDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: payDocumentID,
		DocketID:   testDocketID,
		StorageKey: storage.DocumentKey(testDocketID, payDocumentID),
		Method:     string(domain.AcquisitionMethodFree),
	})
	if err != nil {
		t.Fatalf("seed download: %v", err)
	}

	_, err = fx.svc.Submit(context.Background(), user, submitParams(user))
	if domain.ErrorCode(err) != domain.ECONFLICT {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.ECONFLICT)
	}
	if fx.archive.SubmitPurchaseCalls != 0 {
		t.Errorf("archive submissions = %d, want 0", fx.archive.SubmitPurchaseCalls)
	}
}

func TestSubmit_FreeDocumentRejected(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	params := submitParams(user)
	params.DocumentID = freeDocumentID

	_, err := fx.svc.Submit(context.Background(), user, params)
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}
	if fx.archive.SubmitPurchaseCalls != 0 {
		t.Errorf("archive submissions = %d, want 0 for a free document", fx.archive.SubmitPurchaseCalls)
	}
}

func TestSubmit_InsufficientCreditsRejected(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)
	fx.archive.BalanceCents = 50 // estimate is 120

	_, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if domain.ErrorCode(err) != domain.EINSUFFICIENT {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.EINSUFFICIENT)
	}
	if fx.archive.SubmitPurchaseCalls != 0 {
		t.Errorf("archive submissions = %d, want 0 when the balance cannot cover the estimate", fx.archive.SubmitPurchaseCalls)
	}
}

func TestSubmit_RequiresArchiveToken(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)
	user.CourtToken = ""

	_, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}
}

func TestSubmit_SurpriseFreeConvertsToZeroCostDownload(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)
	fx.archive.SubmitPurchaseResponse = &courtdata.PurchaseReceipt{
		FreePath:   "recap/gov.uscourts.nysd.500123.45.0.pdf",
		AcceptedAt: time.Now(),
	}

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sub.SurpriseFree() {
		t.Fatal("submission should have converted to a free download")
	}
	if sub.Job != nil {
		t.Error("a surprise-free result must not create a purchase job")
	}

	doc := sub.Document
	if doc.Method != domain.AcquisitionMethodFree {
		t.Errorf("method = %q, want free", doc.Method)
	}
	if doc.EntryNumber != 45 || doc.PageCount != 12 {
		t.Errorf("entry=%d pages=%d, want 45 and 12 from the listing", doc.EntryNumber, doc.PageCount)
	}

	// Zero credits debited: the pre-flight read is the only ledger call,
	// and no settlement refresh happens because nothing settled.
	if fx.archive.BalanceCalls != 1 {
		t.Errorf("balance reads = %d, want 1 (pre-flight only)", fx.archive.BalanceCalls)
	}
	if fx.archive.PurchaseStatusCalls != 0 {
		t.Errorf("status polls = %d, want 0", fx.archive.PurchaseStatusCalls)
	}
	if fx.archive.DownloadCalls != 1 {
		t.Errorf("free downloads = %d, want 1", fx.archive.DownloadCalls)
	}

	res, err := fx.svc.List(context.Background(), user, domain.ListPurchasesParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("purchase rows = %d, want 0", res.Total)
	}

	exists, err := fx.blobs.Exists(context.Background(), storage.DocumentKey(testDocketID, payDocumentID))
	if err != nil || !exists {
		t.Errorf("document missing from storage: exists=%v err=%v", exists, err)
	}
}

// =============================================================================
// Settlement
// =============================================================================

func TestPurchase_SettlesCompletedAndStoresDocument(t *testing.T) {
	fx := newPurchaseFixture(t, fastPolling())
	user := testUser(domain.SubscriptionTierStarter)
	fx.archive.PurchaseStatusQueue = []*courtdata.PurchaseState{
		processingState(),
		successState(),
	}

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	row := fx.waitForStatus(t, sub.Job.ID, domain.PurchaseStatusCompleted)

	if row.ActualCostCents != 120 {
		t.Errorf("actual cost = %d cents, want 120", row.ActualCostCents)
	}
	if !row.CompletedAt.Valid {
		t.Error("completed_at not set on a completed purchase")
	}
	if !row.StorageKey.Valid {
		t.Fatal("storage key not set on a completed purchase")
	}

	exists, err := fx.blobs.Exists(context.Background(), row.StorageKey.String)
	if err != nil || !exists {
		t.Errorf("purchased document missing from storage: exists=%v err=%v", exists, err)
	}

	doc, err := fx.store.GetDownloadedDocument(context.Background(), repository.GetDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: payDocumentID,
	})
	if err != nil {
		t.Fatalf("downloaded document not recorded: %v", err)
	}
	if doc.Method != string(domain.AcquisitionMethodPurchased) {
		t.Errorf("method = %q, want purchased", doc.Method)
	}
	if doc.EntryNumber != 45 || doc.Filename != "gov.uscourts.nysd.500123.45.0.pdf" {
		t.Errorf("metadata entry=%d filename=%q not resolved from the listing", doc.EntryNumber, doc.Filename)
	}

	// One balance read for pre-flight, one refresh on settlement.
	if fx.archive.BalanceCalls != 2 {
		t.Errorf("balance reads = %d, want 2 (exactly one refresh per settle)", fx.archive.BalanceCalls)
	}
}

func TestPurchase_SettlesFailed(t *testing.T) {
	fx := newPurchaseFixture(t, fastPolling())
	user := testUser(domain.SubscriptionTierStarter)
	fx.archive.PurchaseStatusQueue = []*courtdata.PurchaseState{
		{
			Status:       courtdata.RemoteStatusFailed,
			ErrorMessage: "Document is sealed",
			Raw:          []byte(`{"status":"failed"}`),
		},
	}

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	row := fx.waitForStatus(t, sub.Job.ID, domain.PurchaseStatusFailed)

	if row.ErrorMessage.String != "Document is sealed" {
		t.Errorf("error message = %q", row.ErrorMessage.String)
	}
	if !row.CompletedAt.Valid {
		t.Error("completed_at not set on a failed purchase")
	}
	if _, err := fx.store.GetDownloadedDocument(context.Background(), repository.GetDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: payDocumentID,
	}); err == nil {
		t.Error("failed purchase must not record a downloaded document")
	}
	if fx.archive.BalanceCalls != 2 {
		t.Errorf("balance reads = %d, want 2 (exactly one refresh per settle)", fx.archive.BalanceCalls)
	}
}

func TestPurchase_TimesOutAfterMaxPolls(t *testing.T) {
	fx := newPurchaseFixture(t, PurchaseConfig{PollInterval: time.Millisecond, MaxPolls: 3})
	user := testUser(domain.SubscriptionTierStarter)
	fx.archive.PurchaseStatusQueue = []*courtdata.PurchaseState{processingState()}

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	row := fx.waitForStatus(t, sub.Job.ID, domain.PurchaseStatusTimedOut)

	if fx.archive.PurchaseStatusCalls != 3 {
		t.Errorf("status polls = %d, want exactly 3", fx.archive.PurchaseStatusCalls)
	}
	if !strings.Contains(row.ErrorMessage.String, "still processing after 3 status checks") {
		t.Errorf("error message = %q", row.ErrorMessage.String)
	}
	// The outcome is unknown, so completed_at stays unset until a later
	// check resolves it.
	if row.CompletedAt.Valid {
		t.Error("completed_at must stay unset on a timed-out purchase")
	}
	if fx.archive.BalanceCalls != 2 {
		t.Errorf("balance reads = %d, want 2 (exactly one refresh per settle)", fx.archive.BalanceCalls)
	}
}

func TestPurchase_HardPollErrorSettlesTimedOut(t *testing.T) {
	fx := newPurchaseFixture(t, fastPolling())
	user := testUser(domain.SubscriptionTierStarter)
	fx.archive.PurchaseStatusError = courtdata.EArchiveUnauthorized

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	row := fx.waitForStatus(t, sub.Job.ID, domain.PurchaseStatusTimedOut)

	if !strings.Contains(row.ErrorMessage.String, "status polling stopped") {
		t.Errorf("error message = %q", row.ErrorMessage.String)
	}
	// The single poll failed hard; no retries.
	if fx.archive.PurchaseStatusCalls != 1 {
		t.Errorf("status polls = %d, want 1", fx.archive.PurchaseStatusCalls)
	}
}

// =============================================================================
// Check
// =============================================================================

func TestCheck_UnknownPurchase(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	_, err := fx.svc.Check(context.Background(), user, uuid.New())
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.ENOTFOUND)
	}
}

func TestCheck_PendingReturnedWithoutRemoteCall(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := fx.svc.Check(context.Background(), user, sub.Job.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got.Status != domain.PurchaseStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	// The live poller owns pending jobs; Check must not poll remotely.
	if fx.archive.PurchaseStatusCalls != 0 {
		t.Errorf("status polls = %d, want 0", fx.archive.PurchaseStatusCalls)
	}
}

// seedTimedOutJob plants a purchase that a previous poller gave up on.
func seedTimedOutJob(t *testing.T, store *fakeStore, user *domain.User) repository.PurchaseJob {
	t.Helper()
	row, err := store.CreatePurchaseJob(context.Background(), repository.CreatePurchaseJobParams{
		UserID:             user.ID,
		RemoteID:           "fq-881",
		DocumentID:         payDocumentID,
		DocketID:           testDocketID,
		Status:             string(domain.PurchaseStatusPending),
		EstimatedCostCents: 120,
	})
	if err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	row, err = store.UpdatePurchaseJobStatus(context.Background(), repository.UpdatePurchaseJobStatusParams{
		ID:           row.ID,
		Status:       string(domain.PurchaseStatusTimedOut),
		ErrorMessage: sql.NullString{String: "still processing after 30 status checks", Valid: true},
	})
	if err != nil {
		t.Fatalf("seed timeout: %v", err)
	}
	return row
}

func TestCheck_ResolvesTimedOutPurchase(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)
	seeded := seedTimedOutJob(t, fx.store, user)

	// The archive finished the fetch after local polling gave up.
	fx.archive.PurchaseStatusQueue = []*courtdata.PurchaseState{successState()}

	got, err := fx.svc.Check(context.Background(), user, seeded.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if got.Status != domain.PurchaseStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.ActualCostCents != 120 {
		t.Errorf("actual cost = %d, want 120", got.ActualCostCents)
	}
	if _, err := fx.store.GetDownloadedDocument(context.Background(), repository.GetDownloadedDocumentParams{
		UserID:     user.ID,
		DocumentID: payDocumentID,
	}); err != nil {
		t.Errorf("late-resolved purchase did not record the document: %v", err)
	}
	// Reconciliation is a settle, so the single refresh applies here too.
	if fx.archive.BalanceCalls != 1 {
		t.Errorf("balance reads = %d, want 1", fx.archive.BalanceCalls)
	}
}

func TestCheck_TimedOutStillProcessingRemotely(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)
	seeded := seedTimedOutJob(t, fx.store, user)

	fx.archive.PurchaseStatusQueue = []*courtdata.PurchaseState{processingState()}

	got, err := fx.svc.Check(context.Background(), user, seeded.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got.Status != domain.PurchaseStatusTimedOut {
		t.Errorf("status = %q, want timed_out to stand while the remote job runs", got.Status)
	}
}

// =============================================================================
// Resume / Shutdown
// =============================================================================

func TestResumePending_ReattachesPolling(t *testing.T) {
	fx := newPurchaseFixture(t, fastPolling())
	user := testUser(domain.SubscriptionTierStarter)
	fx.store.addUser(user)

	row, err := fx.store.CreatePurchaseJob(context.Background(), repository.CreatePurchaseJobParams{
		UserID:             user.ID,
		RemoteID:           "fq-456",
		DocumentID:         payDocumentID,
		DocketID:           testDocketID,
		Status:             string(domain.PurchaseStatusPending),
		EstimatedCostCents: 120,
	})
	if err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	fx.archive.PurchaseStatusQueue = []*courtdata.PurchaseState{successState()}

	if err := fx.svc.ResumePending(context.Background()); err != nil {
		t.Fatalf("resume pending: %v", err)
	}

	got := fx.waitForStatus(t, row.ID, domain.PurchaseStatusCompleted)
	if got.ActualCostCents != 120 {
		t.Errorf("actual cost = %d, want 120", got.ActualCostCents)
	}
}

func TestResumePending_SkipsUsersWithoutToken(t *testing.T) {
	fx := newPurchaseFixture(t, fastPolling())
	user := testUser(domain.SubscriptionTierStarter)
	user.CourtToken = ""
	fx.store.addUser(user)

	row, err := fx.store.CreatePurchaseJob(context.Background(), repository.CreatePurchaseJobParams{
		UserID:             user.ID,
		RemoteID:           "fq-457",
		DocumentID:         payDocumentID,
		DocketID:           testDocketID,
		Status:             string(domain.PurchaseStatusPending),
		EstimatedCostCents: 120,
	})
	if err != nil {
		t.Fatalf("seed purchase: %v", err)
	}

	if err := fx.svc.ResumePending(context.Background()); err != nil {
		t.Fatalf("resume pending: %v", err)
	}
	fx.svc.Close()

	got, _ := fx.store.purchaseJob(row.ID)
	if got.Status != string(domain.PurchaseStatusPending) {
		t.Errorf("status = %q, want pending (no token, no polling)", got.Status)
	}
	if fx.archive.PurchaseStatusCalls != 0 {
		t.Errorf("status polls = %d, want 0", fx.archive.PurchaseStatusCalls)
	}
}

func TestClose_LeavesPendingJobsForNextBoot(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	sub, err := fx.svc.Submit(context.Background(), user, submitParams(user))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	fx.svc.Close()

	row, _ := fx.store.purchaseJob(sub.Job.ID)
	if row.Status != string(domain.PurchaseStatusPending) {
		t.Errorf("status after shutdown = %q, want pending", row.Status)
	}
}

// =============================================================================
// List
// =============================================================================

func TestListPurchases(t *testing.T) {
	fx := newPurchaseFixture(t, slowPolling())
	user := testUser(domain.SubscriptionTierStarter)

	if _, err := fx.svc.Submit(context.Background(), user, submitParams(user)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := fx.svc.List(context.Background(), user, domain.ListPurchasesParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || len(res.Purchases) != 1 {
		t.Errorf("total=%d purchases=%d, want 1 each", res.Total, len(res.Purchases))
	}
	if res.Purchases[0].Status != domain.PurchaseStatusPending {
		t.Errorf("status = %q, want pending", res.Purchases[0].Status)
	}
}
