package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication required or credentials rejected
	EFORBIDDEN    = "forbidden"    // Permission denied
	ENOTFOUND     = "not_found"    // Resource not found
	ECONFLICT     = "conflict"     // Resource conflict (e.g., duplicate)
	ETOOLARGE     = "too_large"    // Request or document too large
	ERATELIMIT    = "rate_limit"   // Rate limit exceeded
	EINTERNAL     = "internal"     // Internal server error
	EPAYMENT      = "payment"      // Subscription upgrade required
	EUNAVAILABLE  = "unavailable"  // Remote service unreachable; transient
	EINSUFFICIENT = "insufficient" // Cached credit balance below the estimated cost
	EINPROGRESS   = "in_progress"  // Same acquisition already in flight
	ERESTRICTED   = "restricted"   // Source blocks programmatic access; permanent
	ETIMEOUT      = "timed_out"    // Patience window exceeded; job may still finish remotely
	EMALFORMED    = "malformed"    // Remote response failed schema validation
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "purchase.submit")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		// For internal errors, return generic message
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// IsTransient reports whether the error is worth retrying later.
// Network-class and rate-limit failures qualify; auth rejections,
// restricted sources, and malformed responses do not.
func IsTransient(err error) bool {
	switch ErrorCode(err) {
	case EUNAVAILABLE, ERATELIMIT:
		return true
	}
	return false
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// PaymentRequired creates an upgrade-required error. The message should
// tell the caller which plan unlocks the blocked operation.
func PaymentRequired(op, message string) *Error {
	return &Error{
		Code:    EPAYMENT,
		Op:      op,
		Message: message,
	}
}

// Unavailable creates a transient remote-failure error, wrapping the
// underlying network or service error.
func Unavailable(err error, op, message string) *Error {
	return &Error{
		Code:    EUNAVAILABLE,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// InsufficientCredits creates the local pre-flight rejection used before
// submitting a billable purchase. The check is advisory: the remote
// ledger still decides at submission time.
func InsufficientCredits(op string, balanceCents, estimateCents int64) *Error {
	return &Error{
		Code: EINSUFFICIENT,
		Op:   op,
		Message: fmt.Sprintf("estimated cost $%.2f exceeds available balance $%.2f",
			float64(estimateCents)/100, float64(balanceCents)/100),
	}
}

// InProgress creates the rejection returned when the same document is
// already being acquired for the same user.
func InProgress(op, documentID string) *Error {
	return &Error{
		Code:    EINPROGRESS,
		Op:      op,
		Message: fmt.Sprintf("an acquisition for document %q is already in progress", documentID),
	}
}

// Restricted creates a permanent access-restriction error. manualURL
// points the caller at the manual-access alternative when known.
func Restricted(op, manualURL string) *Error {
	msg := "the source blocks programmatic access to this document"
	if manualURL != "" {
		msg = fmt.Sprintf("%s; retrieve it manually at %s", msg, manualURL)
	}
	return &Error{
		Code:    ERESTRICTED,
		Op:      op,
		Message: msg,
	}
}

// TimedOut creates the client-side patience error for a purchase that
// did not reach a terminal status within the polling window. The remote
// job may still complete; callers can check again later.
func TimedOut(op, purchaseID string) *Error {
	return &Error{
		Code:    ETIMEOUT,
		Op:      op,
		Message: fmt.Sprintf("purchase %s is still processing; check again later", purchaseID),
	}
}

// Malformed creates a boundary-validation error for remote responses
// that failed schema checks.
func Malformed(err error, op, message string) *Error {
	return &Error{
		Code:    EMALFORMED,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}

// QuotaExceeded creates an upgrade-required error for a tier quota.
func QuotaExceeded(op string, quota QuotaType, used, limit int) *Error {
	return &Error{
		Code:    EPAYMENT,
		Op:      op,
		Message: fmt.Sprintf("%s quota exceeded (%d of %d used); upgrade to raise the limit", quota, used, limit),
	}
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}
