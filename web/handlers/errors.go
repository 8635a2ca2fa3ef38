package handlers

import (
	"fmt"
	"net/http"

	apperrors "kydx-console/errors"
	"kydx-console/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a user-friendly message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError))
		logger.Error("Request failed", fields...)
	}

	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError returns a client error (no logging needed for validation errors)
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithSessionError maps controller errors onto HTTP statuses.
func respondWithSessionError(c *gin.Context, err error, logger *zap.Logger, fields ...zap.Field) {
	switch {
	case apperrors.Is(err, utils.ErrInputTooLong):
		respondWithClientError(c, http.StatusBadRequest, fmt.Sprintf("Message is too long (max %d characters).", utils.MaxInputRunes))
	case apperrors.IsInvalidInput(err):
		respondWithClientError(c, http.StatusBadRequest, "Message cannot be empty.")
	case apperrors.IsBusy(err):
		respondWithClientError(c, http.StatusConflict, "Still working on the previous request.")
	case apperrors.Is(err, apperrors.ErrWizardActive):
		respondWithClientError(c, http.StatusConflict, "Please answer the current question first.")
	case apperrors.IsUnavailable(err):
		respondWithClientError(c, http.StatusConflict, "That action is not available right now.")
	default:
		respondWithError(c, http.StatusInternalServerError, err, "Something went wrong.", logger, fields...)
	}
}
