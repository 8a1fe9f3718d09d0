package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/hub"
	"github.com/samcharles93/intervene/internal/metrics"
	"github.com/samcharles93/intervene/internal/modelpath"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string { return e.msg }

func (e invalidRequestError) Unwrap() error { return ErrInvalidRequest }

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// ErrorBody is the payload of every non-2xx JSON response.
type ErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(c *echo.Context, route string, status int, v any) error {
	metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	return c.JSON(status, v)
}

func writeError(c *echo.Context, route string, status int, errType, msg string) error {
	return writeJSON(c, route, status, map[string]ErrorBody{
		"error": {
			Message:   msg,
			Type:      errType,
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		},
	})
}

// writeFailure maps package errors to HTTP statuses.
func writeFailure(c *echo.Context, route string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, modelpath.ErrSyntax), errors.Is(err, hub.ErrInvalidName), errors.Is(err, hub.ErrInvalidFile):
		return writeError(c, route, http.StatusBadRequest, "invalid_request_error", err.Error())
	case errors.Is(err, anchor.ErrKeyNotFound), errors.Is(err, hub.ErrNotFound):
		return writeError(c, route, http.StatusNotFound, "not_found_error", err.Error())
	case errors.Is(err, hub.ErrUnauthorized):
		return writeError(c, route, http.StatusForbidden, "permission_error", err.Error())
	case errors.Is(err, anchor.ErrUnresolvedDimension):
		return writeError(c, route, http.StatusUnprocessableEntity, "unresolved_dimension_error", err.Error())
	default:
		return writeError(c, route, http.StatusInternalServerError, "server_error", err.Error())
	}
}
