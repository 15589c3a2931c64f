package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/logger"
)

// errorMapping binds a sentinel to its HTTP status and code. Order matters:
// the first match wins, so specific errors come before generic ones.
type errorMapping struct {
	err     error
	status  int
	code    dto.ErrorCode
	message string
}

var errorMappings = []errorMapping{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token format"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrInvalidStatus, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid status"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Bad request"},
	{apperrors.ErrNoCandidates, http.StatusUnprocessableEntity, dto.ErrorCodeNoCandidates, "No candidate courses"},
	{apperrors.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, dto.ErrorCodeEmbeddingUnavailable, "Embedding service unavailable"},
}

// HandleAPIError handles common API errors and returns appropriate responses.
// The message of a CustomError is passed through; anything unmapped is a 500
// whose cause is logged but never returned to the client.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}

		detail := dto.NewErrorDetail(m.code, m.message)
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			detail.Message = custom.Message
			if len(custom.Details) > 0 {
				detail = detail.WithDetails(custom.Details)
			}
		}
		if m.status >= http.StatusInternalServerError {
			detail = detail.WithSeverity(dto.ErrorSeverityCritical)
		}

		c.JSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical),
	))
}

// HandleBindError reports a request binding or validation failure
func HandleBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}
