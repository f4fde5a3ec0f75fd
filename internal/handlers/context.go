package handlers

import (
	"errors"
	"net/http"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the authenticated user's ID, or 0 when the
// request carries no valid claims.
func getUserIDFromContext(c echo.Context) int64 {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

// httpError translates the error taxonomy into transport responses.
func httpError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, appErr.Message)
		case errors.Is(err, apperror.ErrDuplicateEmail):
			return echo.NewHTTPError(http.StatusBadRequest, "Email address already exists")
		case errors.Is(err, apperror.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, appErr.Message)
		case errors.Is(err, apperror.ErrUnauthorized):
			return echo.NewHTTPError(http.StatusUnauthorized, appErr.Message)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
}
