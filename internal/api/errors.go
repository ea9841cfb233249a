package api

import (
	"errors"
	"net/http"

	"github.com/signalsfoundry/comms-inspector/core"
	"github.com/signalsfoundry/comms-inspector/internal/charts"
	"github.com/signalsfoundry/comms-inspector/internal/filter"
	"github.com/signalsfoundry/comms-inspector/internal/session"
	"github.com/signalsfoundry/comms-inspector/timectrl"
)

var (
	// ErrNotFound is returned for timestamps and sessions that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned for malformed query parameters and bodies.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoDataset is returned while no event table is loaded.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrRateLimited is returned once a client exceeds the request rate.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// StatusCode maps inspector errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound),
		errors.Is(err, timectrl.ErrNoTimestamps):
		return http.StatusNotFound

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, filter.ErrUnknownField),
		errors.Is(err, charts.ErrUnknownField),
		errors.Is(err, charts.ErrUnknownLayout),
		errors.Is(err, timectrl.ErrInvalidDirection),
		errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, session.ErrTooManySessions),
		errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, ErrNoDataset):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}
