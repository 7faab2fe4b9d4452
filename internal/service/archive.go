// Package service contains the business logic layer.
//
// This file holds helpers shared by every service that talks to the
// court data archive: account construction from a user's stored token
// and translation of archive errors into domain errors.
package service

import (
	"errors"
	"time"

	"github.com/thorsby/docketwatch/internal/courtdata"
	"github.com/thorsby/docketwatch/internal/domain"
	"github.com/thorsby/docketwatch/internal/metrics"
)

// archiveAccount builds the archive credentials for a user. The token
// may be empty; public endpoints accept anonymous requests.
func archiveAccount(user *domain.User) courtdata.Account {
	return courtdata.Account{Token: user.CourtToken}
}

// requireArchiveToken builds archive credentials for operations that
// bill or mutate remote state. Returns EINVALID when the user has not
// configured a token.
func requireArchiveToken(op string, user *domain.User) (courtdata.Account, error) {
	if user.CourtToken == "" {
		return courtdata.Account{}, domain.Invalid(op, "No court archive token configured. Add one in account settings.")
	}
	return courtdata.Account{Token: user.CourtToken}, nil
}

// observeArchive records one archive round trip. Call with the start
// time captured immediately before the request.
func observeArchive(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ArchiveRequestsTotal.WithLabelValues(operation, status).Inc()
	metrics.ArchiveRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// mapArchiveError translates a courtdata sentinel into the domain
// error taxonomy. The resource and id describe what the operation was
// about so not-found errors stay specific.
func mapArchiveError(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, courtdata.EArchiveNotFound):
		return domain.NotFound(op, resource, id)
	case errors.Is(err, courtdata.EArchiveUnauthorized):
		return domain.Unauthorized(op, "The court archive rejected your account token.")
	case errors.Is(err, courtdata.EArchivePayment):
		return domain.PaymentRequired(op, "The court archive reported insufficient credits for this charge.")
	case errors.Is(err, courtdata.EArchiveRestricted):
		return domain.Restricted(op, "")
	case errors.Is(err, courtdata.EArchiveRateLimit):
		return domain.RateLimit(op)
	case errors.Is(err, courtdata.EArchiveTimeout):
		return domain.Unavailable(err, op, "The court archive timed out. Try again shortly.")
	case errors.Is(err, courtdata.EArchiveUnavailable):
		return domain.Unavailable(err, op, "The court archive is temporarily unavailable.")
	case errors.Is(err, courtdata.EArchiveMalformed):
		return domain.Malformed(err, op, "The court archive returned an unexpected response.")
	default:
		return domain.Internal(err, op, "court archive request failed")
	}
}
