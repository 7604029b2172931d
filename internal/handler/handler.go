package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"harbor-chat/internal/transport/httpdto"
	harbor_errors "harbor-chat/pkg/errors"
)

// respondError maps service sentinels onto HTTP statuses. Anything not
// recognized is a 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, harbor_errors.ErrInvalidInput), errors.Is(err, harbor_errors.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, harbor_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, harbor_errors.ErrForbidden), errors.Is(err, harbor_errors.ErrBlocked):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, harbor_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, harbor_errors.ErrConflict), errors.Is(err, harbor_errors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
