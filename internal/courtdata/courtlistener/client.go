// Package courtlistener implements the courtdata.Service interface
// against the archive's REST API.
package courtlistener

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
)

const (
	// APIBaseURL is the base URL for the archive's REST API
	APIBaseURL = "https://www.courtlistener.com/api/rest/v4"

	// StorageBaseURL is where archive-held document copies are served from
	StorageBaseURL = "https://storage.courtlistener.com"

	// MaxDocumentSize is the largest PDF we will pull into memory (50MB)
	MaxDocumentSize = 50 * 1024 * 1024

	// dateLayout is the archive's date format for filings
	dateLayout = "2006-01-02"
)

// Config contains configuration for the archive client
type Config struct {
	BaseURL        string // Defaults to APIBaseURL
	StorageBaseURL string // Defaults to StorageBaseURL
	ClientConfig   courtdata.Config
}

// Client implements courtdata.Service over the archive's REST API.
// Credentials are per call, not per client: one Client serves every
// user, each request authenticated with that user's account token.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new archive client
func New(config Config, logger *slog.Logger) (*Client, error) {
	// Set defaults
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	if config.StorageBaseURL == "" {
		config.StorageBaseURL = StorageBaseURL
	}
	if config.ClientConfig.MaxRetries == 0 {
		config.ClientConfig.MaxRetries = 3
	}
	if config.ClientConfig.RetryBaseDelay == 0 {
		config.ClientConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ClientConfig.RequestTimeout == 0 {
		config.ClientConfig.RequestTimeout = 30 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.ClientConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// SearchDockets runs a free-text docket search
func (c *Client) SearchDockets(ctx context.Context, acct courtdata.Account, params courtdata.SearchParams) ([]domain.Docket, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, courtdata.WrapError("search", fmt.Errorf("query is required"))
	}

	q := url.Values{}
	q.Set("type", "r")
	q.Set("q", params.Query)
	if params.Court != "" {
		q.Set("court", params.Court)
	}
	if params.Limit > 0 {
		q.Set("page_size", strconv.Itoa(params.Limit))
	}

	body, _, err := c.executeWithRetry(ctx, acct, http.MethodGet, c.config.BaseURL+"/search/?"+q.Encode(), nil)
	if err != nil {
		return nil, courtdata.WrapError("search", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, courtdata.WrapError("search", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}

	dockets := make([]domain.Docket, 0, len(resp.Results))
	for _, r := range resp.Results {
		if err := r.validate(); err != nil {
			return nil, courtdata.WrapError("search", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
		}
		dockets = append(dockets, r.toDomain())
	}

	return dockets, nil
}

// GetDocketDocuments lists the acquirable documents filed on a docket
func (c *Client) GetDocketDocuments(ctx context.Context, acct courtdata.Account, docketID string) ([]domain.AcquirableDocument, error) {
	if docketID == "" {
		return nil, courtdata.WrapError("list documents", fmt.Errorf("docket id is required"))
	}

	endpoint := fmt.Sprintf("%s/dockets/%s/documents/", c.config.BaseURL, url.PathEscape(docketID))
	body, _, err := c.executeWithRetry(ctx, acct, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, courtdata.WrapError("list documents", err)
	}

	var resp documentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, courtdata.WrapError("list documents", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}

	docs := make([]domain.AcquirableDocument, 0, len(resp.Results))
	for _, r := range resp.Results {
		if err := r.validate(); err != nil {
			return nil, courtdata.WrapError("list documents", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
		}
		docs = append(docs, r.toDomain(docketID))
	}

	return docs, nil
}

// DownloadFreeDocument fetches an archive-held copy by its file path
func (c *Client) DownloadFreeDocument(ctx context.Context, acct courtdata.Account, filePath string) (*courtdata.Download, error) {
	if filePath == "" {
		return nil, courtdata.WrapError("download", fmt.Errorf("file path is required"))
	}

	endpoint := c.config.StorageBaseURL + "/" + strings.TrimPrefix(filePath, "/")
	data, contentType, err := c.executeWithRetry(ctx, acct, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, courtdata.WrapError("download", err)
	}
	if len(data) == 0 {
		return nil, courtdata.WrapError("download", fmt.Errorf("%w: empty document body", courtdata.EArchiveMalformed))
	}
	if len(data) > MaxDocumentSize {
		return nil, courtdata.WrapError("download", fmt.Errorf("document exceeds %d bytes", MaxDocumentSize))
	}

	return &courtdata.Download{
		Data:        data,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}, nil
}

// GetCreditBalance reads the account's current ledger balance
func (c *Client) GetCreditBalance(ctx context.Context, acct courtdata.Account) (int64, error) {
	body, _, err := c.executeWithRetry(ctx, acct, http.MethodGet, c.config.BaseURL+"/account/balance/", nil)
	if err != nil {
		return 0, courtdata.WrapError("balance", err)
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, courtdata.WrapError("balance", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}
	if resp.BalanceCents == nil {
		return 0, courtdata.WrapError("balance", fmt.Errorf("%w: missing balance_cents", courtdata.EArchiveMalformed))
	}

	return *resp.BalanceCents, nil
}

// SubmitPurchase asks the archive to fetch a paid document
func (c *Client) SubmitPurchase(ctx context.Context, acct courtdata.Account, params courtdata.PurchaseParams) (*courtdata.PurchaseReceipt, error) {
	if params.DocumentID == "" {
		return nil, courtdata.WrapError("submit purchase", fmt.Errorf("document id is required"))
	}

	reqBody, err := json.Marshal(fetchRequest{
		DocumentID:         params.DocumentID,
		DocketID:           params.DocketID,
		EstimatedCostCents: params.EstimatedCostCents,
	})
	if err != nil {
		return nil, courtdata.WrapError("submit purchase", fmt.Errorf("marshal request: %w", err))
	}

	body, _, err := c.executeWithRetry(ctx, acct, http.MethodPost, c.config.BaseURL+"/fetch/", reqBody)
	if err != nil {
		return nil, courtdata.WrapError("submit purchase", err)
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, courtdata.WrapError("submit purchase", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}

	// A submission for a document the archive already holds a free copy
	// of answers with the file path instead of a job. Nothing is queued
	// and nothing is charged.
	if resp.AvailableFree {
		if resp.FilePath == "" {
			return nil, courtdata.WrapError("submit purchase", fmt.Errorf("%w: free result missing filepath", courtdata.EArchiveMalformed))
		}
		return &courtdata.PurchaseReceipt{
			FreePath:   resp.FilePath,
			AcceptedAt: time.Now(),
		}, nil
	}

	if err := resp.validate(); err != nil {
		return nil, courtdata.WrapError("submit purchase", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}

	return &courtdata.PurchaseReceipt{
		RemoteID:   resp.ID,
		AcceptedAt: time.Now(),
	}, nil
}

// GetPurchaseStatus reads the current state of a fetch job
func (c *Client) GetPurchaseStatus(ctx context.Context, acct courtdata.Account, remoteID string) (*courtdata.PurchaseState, error) {
	if remoteID == "" {
		return nil, courtdata.WrapError("purchase status", fmt.Errorf("remote id is required"))
	}

	endpoint := fmt.Sprintf("%s/fetch/%s/", c.config.BaseURL, url.PathEscape(remoteID))
	body, _, err := c.executeWithRetry(ctx, acct, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, courtdata.WrapError("purchase status", err)
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, courtdata.WrapError("purchase status", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}
	if err := resp.validate(); err != nil {
		return nil, courtdata.WrapError("purchase status", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}

	return &courtdata.PurchaseState{
		RemoteID:     resp.ID,
		Status:       courtdata.RemoteStatus(resp.Status),
		CostCents:    resp.CostCents,
		FilePath:     resp.FilePath,
		ErrorMessage: resp.ErrorMessage,
		Raw:          body,
	}, nil
}

// MonitorStart subscribes the account to new-filing alerts for a docket.
// The archive answers 409 when the subscription already exists; that is
// a confirmation, not a failure.
func (c *Client) MonitorStart(ctx context.Context, acct courtdata.Account, docketID string) error {
	if docketID == "" {
		return courtdata.WrapError("monitor start", fmt.Errorf("docket id is required"))
	}

	reqBody, err := json.Marshal(alertRequest{DocketID: docketID})
	if err != nil {
		return courtdata.WrapError("monitor start", fmt.Errorf("marshal request: %w", err))
	}

	_, _, err = c.executeWithRetry(ctx, acct, http.MethodPost, c.config.BaseURL+"/alerts/dockets/", reqBody)
	if err != nil && !isConflict(err) {
		return courtdata.WrapError("monitor start", err)
	}

	return nil
}

// MonitorStop removes the subscription. The archive answers 404 when no
// subscription exists; stopping an absent watch is already stopped.
func (c *Client) MonitorStop(ctx context.Context, acct courtdata.Account, docketID string) error {
	if docketID == "" {
		return courtdata.WrapError("monitor stop", fmt.Errorf("docket id is required"))
	}

	endpoint := fmt.Sprintf("%s/alerts/dockets/%s/", c.config.BaseURL, url.PathEscape(docketID))
	_, _, err := c.executeWithRetry(ctx, acct, http.MethodDelete, endpoint, nil)
	if err != nil && !isNotFound(err) {
		return courtdata.WrapError("monitor stop", err)
	}

	return nil
}

// MonitorList returns the dockets the archive has the account subscribed to
func (c *Client) MonitorList(ctx context.Context, acct courtdata.Account) ([]domain.Docket, error) {
	body, _, err := c.executeWithRetry(ctx, acct, http.MethodGet, c.config.BaseURL+"/alerts/dockets/", nil)
	if err != nil {
		return nil, courtdata.WrapError("monitor list", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, courtdata.WrapError("monitor list", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}

	dockets := make([]domain.Docket, 0, len(resp.Results))
	for _, r := range resp.Results {
		if err := r.validate(); err != nil {
			return nil, courtdata.WrapError("monitor list", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
		}
		dockets = append(dockets, r.toDomain())
	}

	return dockets, nil
}

// CheckUpdates asks whether a docket has new filings
func (c *Client) CheckUpdates(ctx context.Context, acct courtdata.Account, docketID string) (*domain.UpdateSignal, error) {
	if docketID == "" {
		return nil, courtdata.WrapError("check updates", fmt.Errorf("docket id is required"))
	}

	endpoint := fmt.Sprintf("%s/dockets/%s/updates/", c.config.BaseURL, url.PathEscape(docketID))
	body, _, err := c.executeWithRetry(ctx, acct, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, courtdata.WrapError("check updates", err)
	}

	var resp updatesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, courtdata.WrapError("check updates", fmt.Errorf("%w: %v", courtdata.EArchiveMalformed, err))
	}
	if resp.HasUpdates == nil {
		return nil, courtdata.WrapError("check updates", fmt.Errorf("%w: missing has_updates", courtdata.EArchiveMalformed))
	}

	return &domain.UpdateSignal{
		DocketID:    docketID,
		HasUpdates:  *resp.HasUpdates,
		UpdateCount: resp.NewEntryCount,
		CheckedAt:   time.Now(),
	}, nil
}

// SubmitAnalysis hands a stored document to the analysis pipeline.
// The pipeline answers 409 for a key it has seen before; the document
// is already in, so that counts as success.
func (c *Client) SubmitAnalysis(ctx context.Context, acct courtdata.Account, params courtdata.AnalysisParams) error {
	if params.Key == "" || len(params.PDFData) == 0 {
		return courtdata.WrapError("submit analysis", fmt.Errorf("key and document body are required"))
	}

	reqBody, err := json.Marshal(analysisRequest{
		Key:        params.Key,
		DocumentID: params.DocumentID,
		Data:       base64.StdEncoding.EncodeToString(params.PDFData),
	})
	if err != nil {
		return courtdata.WrapError("submit analysis", fmt.Errorf("marshal request: %w", err))
	}

	_, _, err = c.executeWithRetry(ctx, acct, http.MethodPost, c.config.BaseURL+"/analysis/submissions/", reqBody)
	if err != nil && !isConflict(err) {
		return courtdata.WrapError("submit analysis", err)
	}

	return nil
}

// executeWithRetry executes a request with exponential backoff retry.
// The request is rebuilt from the body bytes on every attempt so a
// consumed body can never poison a retry.
func (c *Client) executeWithRetry(ctx context.Context, acct courtdata.Account, method, endpoint string, body []byte) ([]byte, string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.ClientConfig.MaxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, "", fmt.Errorf("create request: %w", err)
		}
		// Anonymous requests are valid for public endpoints; the archive
		// rejects an empty token outright, so only send one when present.
		if acct.Token != "" {
			req.Header.Set("Authorization", "Token "+acct.Token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		respBody, contentType, err := c.executeRequest(req)
		if err == nil {
			return respBody, contentType, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !courtdata.IsRetryable(err) {
			return nil, "", err
		}

		// Don't retry if we've exhausted attempts
		if attempt >= c.config.ClientConfig.MaxRetries {
			break
		}

		// Calculate backoff delay (exponential: base * 2^(attempt-1))
		delay := c.config.ClientConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		c.logger.Info("Retrying archive request", "method", method, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}

	return nil, "", lastErr
}

// executeRequest executes a single HTTP request
func (c *Client) executeRequest(req *http.Request) ([]byte, string, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, "", fmt.Errorf("%w: %v", courtdata.EArchiveUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", courtdata.EArchiveUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", c.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	return bodyBytes, resp.Header.Get("Content-Type"), nil
}

// mapHTTPError maps HTTP status codes to sentinel errors
func (c *Client) mapHTTPError(statusCode int, body []byte) error {
	// The archive reports failures as {"detail": "..."}
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return courtdata.EArchiveUnauthorized
	case http.StatusPaymentRequired:
		return courtdata.EArchivePayment
	case http.StatusForbidden:
		return courtdata.EArchiveRestricted
	case http.StatusNotFound:
		return courtdata.EArchiveNotFound
	case http.StatusConflict:
		return errConflict
	case http.StatusTooManyRequests:
		return courtdata.EArchiveRateLimit
	case http.StatusRequestTimeout:
		return courtdata.EArchiveTimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return fmt.Errorf("%w (status %d)", courtdata.EArchiveUnavailable, statusCode)
	default:
		return fmt.Errorf("archive error (status %d): %s", statusCode, errResp.Detail)
	}
}

// errConflict marks a 409 so idempotent operations can swallow it.
// It never leaves this package.
var errConflict = fmt.Errorf("archive reported a conflict")

func isConflict(err error) bool {
	return err == errConflict
}

func isNotFound(err error) bool {
	return err == courtdata.EArchiveNotFound
}

// API request/response types

type searchResponse struct {
	Count   int         `json:"count"`
	Results []docketDTO `json:"results"`
}

type docketDTO struct {
	ID             string `json:"id"`
	CaseName       string `json:"case_name"`
	DocketNumber   string `json:"docket_number"`
	Court          string `json:"court"`
	CourtName      string `json:"court_name"`
	PacerCaseID    string `json:"pacer_case_id"`
	DateFiled      string `json:"date_filed"`
	DateLastFiling string `json:"date_last_filing"`
	EntryCount     int    `json:"entry_count"`
}

func (d *docketDTO) validate() error {
	if d.ID == "" {
		return fmt.Errorf("docket missing id")
	}
	return nil
}

func (d *docketDTO) toDomain() domain.Docket {
	docket := domain.Docket{
		ID:           d.ID,
		CaseName:     d.CaseName,
		DocketNumber: d.DocketNumber,
		Court:        d.Court,
		CourtName:    d.CourtName,
		PacerCaseID:  d.PacerCaseID,
		EntryCount:   d.EntryCount,
	}
	if t, err := time.Parse(dateLayout, d.DateFiled); err == nil {
		docket.DateFiled = t
	}
	if t, err := time.Parse(dateLayout, d.DateLastFiling); err == nil {
		docket.DateLastFiling = &t
	}
	return docket
}

type documentsResponse struct {
	Count   int           `json:"count"`
	Results []documentDTO `json:"results"`
}

type documentDTO struct {
	ID               string `json:"id"`
	Court            string `json:"court"`
	PacerCaseID      string `json:"pacer_case_id"`
	EntryNumber      int    `json:"entry_number"`
	AttachmentNumber int    `json:"attachment_number"`
	Description      string `json:"description"`
	DateFiled        string `json:"date_filed"`
	PageCount        int    `json:"page_count"`
	IsAvailable      bool   `json:"is_available"`
	FilePath         string `json:"filepath"`
}

func (d *documentDTO) validate() error {
	if d.ID == "" {
		return fmt.Errorf("document missing id")
	}
	if d.PageCount < 0 {
		return fmt.Errorf("document %s has negative page count", d.ID)
	}
	return nil
}

func (d *documentDTO) toDomain(docketID string) domain.AcquirableDocument {
	doc := domain.AcquirableDocument{
		DocumentID:       d.ID,
		DocketID:         docketID,
		Court:            d.Court,
		PacerCaseID:      d.PacerCaseID,
		EntryNumber:      d.EntryNumber,
		AttachmentNumber: d.AttachmentNumber,
		Description:      d.Description,
		PageCount:        d.PageCount,
		IsAvailable:      d.IsAvailable,
		FilePath:         d.FilePath,
	}
	if t, err := time.Parse(dateLayout, d.DateFiled); err == nil {
		doc.DateFiled = t
	}
	return doc
}

type balanceResponse struct {
	BalanceCents *int64 `json:"balance_cents"`
}

type fetchRequest struct {
	DocumentID         string `json:"document_id"`
	DocketID           string `json:"docket_id,omitempty"`
	EstimatedCostCents int64  `json:"estimated_cost_cents,omitempty"`
}

type fetchResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	CostCents     int64  `json:"cost_cents"`
	FilePath      string `json:"filepath"`
	ErrorMessage  string `json:"error_message"`
	AvailableFree bool   `json:"available_free"`
}

func (f *fetchResponse) validate() error {
	if f.ID == "" {
		return fmt.Errorf("fetch job missing id")
	}
	if !courtdata.RemoteStatus(f.Status).Valid() {
		return fmt.Errorf("fetch job %s has unknown status %q", f.ID, f.Status)
	}
	if f.CostCents < 0 {
		return fmt.Errorf("fetch job %s has negative cost", f.ID)
	}
	return nil
}

type alertRequest struct {
	DocketID string `json:"docket_id"`
}

type updatesResponse struct {
	HasUpdates    *bool `json:"has_updates"`
	NewEntryCount int   `json:"new_entry_count"`
}

type analysisRequest struct {
	Key        string `json:"key"`
	DocumentID string `json:"document_id"`
	Data       string `json:"data"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
