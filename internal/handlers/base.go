package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// ServiceUnavailable returns a 503 Service Unavailable error
func ServiceUnavailable(message string) error {
	return httperror.NewHTTPError(http.StatusServiceUnavailable, message)
}

// Internal returns a 500 Internal Server Error
func Internal(message string) error {
	return httperror.NewHTTPError(http.StatusInternalServerError, message)
}
