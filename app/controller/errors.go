package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/dto"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
	"github.com/vibast-solutions/ms-go-auctions/app/service"
)

// statusFor maps domain errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dto.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidBidWindow),
		errors.Is(err, service.ErrInvalidBidAmount):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUsernameRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, repository.ErrSearchIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConcurrencyConflict),
		errors.Is(err, repository.ErrSearchIndexExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx echo.Context, logger logrus.FieldLogger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", ctx.Path()).Error("request failed")
		return ctx.JSON(status, map[string]string{"error": "internal error"})
	}
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}
