package marketplace

import (
	"errors"
	"net/http"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrDuplicateOffer    = errors.New("a pending offer already exists for this worker")
	ErrReviewExists      = errors.New("review already exists for this job")
	ErrJobNotCompleted   = errors.New("job is not completed")
	ErrWorkerNotVerified = errors.New("worker is not verified")
	ErrWorkerBusy        = errors.New("worker is not available")
	ErrWorkerSuspended   = errors.New("worker account is suspended")
	ErrOwnJob            = errors.New("cannot make an offer on your own job")
	ErrAlreadyConfirmed  = errors.New("completion already confirmed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrOfferNotPending   = errors.New("offer is no longer pending")
)

// StatusCode maps marketplace errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrWorkerNotVerified), errors.Is(err, ErrWorkerSuspended):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrDuplicateOffer),
		errors.Is(err, ErrReviewExists), errors.Is(err, ErrJobNotCompleted),
		errors.Is(err, ErrWorkerBusy), errors.Is(err, ErrAlreadyConfirmed),
		errors.Is(err, ErrOfferNotPending):
		return http.StatusConflict
	case errors.Is(err, ErrOwnJob), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
