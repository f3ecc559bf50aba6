package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/sticker-studio/sticker-studio-api/utils"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondServiceError maps service errors onto the error envelope. Anything
// unexpected is logged and answered with a generic 500.
func respondServiceError(c *gin.Context, log *logger.Logger, err error, action string) {
	var fileErr *utils.FileUploadError
	switch {
	case errors.As(err, &fileErr):
		respondError(c, http.StatusBadRequest, fileErr.Code, fileErr.Message)
	case errors.Is(err, services.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", clientMessage(err, services.ErrInvalidInput))
	case errors.Is(err, services.ErrInvalidDiscount):
		respondError(c, http.StatusBadRequest, "INVALID_DISCOUNT_CODE", clientMessage(err, services.ErrInvalidDiscount))
	case errors.Is(err, services.ErrZeroAmount):
		respondError(c, http.StatusBadRequest, "ZERO_AMOUNT", "Order total is zero, use the zero-amount payment route")
	case errors.Is(err, services.ErrNonZeroAmount):
		respondError(c, http.StatusBadRequest, "NON_ZERO_AMOUNT", "Order total is not zero, a card payment is required")
	case errors.Is(err, services.ErrAINotEnabled):
		respondError(c, http.StatusBadRequest, "AI_NOT_ENABLED", "This question does not support AI inspiration")
	case errors.Is(err, services.ErrInvalidSignature):
		respondError(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed")
	case errors.Is(err, services.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.Is(err, services.ErrRequestNotFound):
		respondError(c, http.StatusNotFound, "REQUEST_NOT_FOUND", "Design request not found")
	case errors.Is(err, services.ErrQuestionNotFound):
		respondError(c, http.StatusNotFound, "QUESTION_NOT_FOUND", "Question not found")
	case errors.Is(err, services.ErrTemplateNotFound):
		respondError(c, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Custom question template not found")
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, services.ErrConflict):
		respondError(c, http.StatusConflict, "INVALID_STATE", clientMessage(err, services.ErrConflict))
	case errors.Is(err, services.ErrNotConfigured):
		log.Warn("Integration not configured", "action", action, "error", err)
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "This feature is not available right now")
	default:
		log.Error("Request failed", "action", action, "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}

// clientMessage drops the sentinel prefix from a wrapped validation error
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if rest := strings.TrimPrefix(msg, sentinel.Error()+": "); rest != msg {
		return upperFirst(rest)
	}
	return upperFirst(msg)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// parseUUIDParam reads a required uuid, writing a 400 when it is malformed
func parseUUIDParam(c *gin.Context, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", field+" must be a valid id")
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID treats an empty string as absent
func parseOptionalUUID(c *gin.Context, raw, field string) (*uuid.UUID, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	id, ok := parseUUIDParam(c, raw, field)
	if !ok {
		return nil, false
	}
	return &id, true
}
