package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thorsby/docketwatch/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeAutoDownload = "auto_download"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// AutoDownloadPayload is the payload for auto-download jobs: fetch the
// free filings on a monitored docket that signalled new activity.
type AutoDownloadPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	DocketID string    `json:"docket_id"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// WithUser attributes the job to a user. Monthly auto-download budgets
// are counted against completed jobs per user, so attribution matters.
func WithUser(userID uuid.UUID) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.UserID = uuid.NullUUID{UUID: userID, Valid: true}
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	// Marshal the payload to JSON
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	// Default parameters
	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	// Apply options
	for _, opt := range opts {
		opt(&params)
	}

	// Enqueue the job
	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueAutoDownload enqueues a job that fetches the free filings on a
// docket for a user. Called by the monitor service when an update check
// signals new activity on a watched docket.
func EnqueueAutoDownload(
	ctx context.Context,
	queries *repository.Queries,
	userID uuid.UUID,
	docketID string,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := AutoDownloadPayload{
		UserID:   userID,
		DocketID: docketID,
	}

	opts = append([]EnqueueOption{WithUser(userID)}, opts...)
	return EnqueueJob(ctx, queries, JobTypeAutoDownload, payload, opts...)
}

// Enqueuer adapts the queue for services that only submit work. It
// satisfies the monitor service's enqueue dependency.
type Enqueuer struct {
	queries *repository.Queries
}

// NewEnqueuer creates an Enqueuer over the jobs table.
func NewEnqueuer(queries *repository.Queries) *Enqueuer {
	return &Enqueuer{queries: queries}
}

// EnqueueAutoDownload queues an auto-download for a user and docket.
func (e *Enqueuer) EnqueueAutoDownload(ctx context.Context, userID uuid.UUID, docketID string) error {
	_, err := EnqueueAutoDownload(ctx, e.queries, userID, docketID)
	return err
}
