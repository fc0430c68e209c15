package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kaanyildiz/hwboard/internal/app/models/dto"
	"github.com/kaanyildiz/hwboard/internal/pkg/apperrors"
	"github.com/kaanyildiz/hwboard/internal/pkg/logger"
)

// HandleAPIError maps service errors to HTTP responses. Anything unmapped
// becomes a generic internal error so no internal detail leaks to clients.
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		c.JSON(400, dto.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, apperrors.ErrHomeworkNotFound):
		c.JSON(404, dto.ErrorResponse{Error: "homework not found"})
		return
	case errors.Is(err, apperrors.ErrAttachmentNotFound):
		c.JSON(404, dto.ErrorResponse{Error: "file not found"})
		return
	case errors.Is(err, apperrors.ErrResourceNotFound):
		c.JSON(404, dto.ErrorResponse{Error: "resource not found"})
		return
	case errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(400, dto.ErrorResponse{Error: err.Error()})
		return
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled API error")
		c.JSON(500, dto.ErrorResponse{Error: "internal server error"})
		return
	}
}
