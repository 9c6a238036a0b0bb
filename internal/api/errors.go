package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/gnacore/internal/request"
)

// ResponseError is the body of every error reply, wrapped as {"error": ...}.
type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

func writeError(c *echo.Context, status int, errType, msg, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
		},
	})
}

// writeRequestError maps a request-layer failure to its status code.
func writeRequestError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, request.ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, request.ErrUnsupported):
		return writeError(c, http.StatusUnprocessableEntity, "unsupported_error", err.Error(), "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return writeError(c, http.StatusServiceUnavailable, "server_error", err.Error(), "canceled")
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
}
