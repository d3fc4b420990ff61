package worker

import (
	"errors"
	"net/http"
)

var (
	ErrProfileNotFound     = errors.New("worker profile not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrMissingDocuments    = errors.New("verification requires at least one id document and one certificate")
	ErrInvalidCategory     = errors.New("category must be one of [id certificate license other]")
	ErrInvalidAvailability = errors.New("availability must be one of [available busy]")
	ErrInvalidTrade        = errors.New("unknown trade")
	ErrNotPending          = errors.New("worker is not pending review")
	ErrAlreadyVerified     = errors.New("worker is already verified")
	ErrProjectNotFound     = errors.New("project not found")
	ErrIncompleteProject   = errors.New("project needs a title, description and location")
	ErrProjectImages       = errors.New("project needs at least one before and one after image")
)

// StatusCode maps service errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingDocuments):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidAvailability), errors.Is(err, ErrInvalidTrade),
		errors.Is(err, ErrIncompleteProject), errors.Is(err, ErrProjectImages):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrAlreadyVerified):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
