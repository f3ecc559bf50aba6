package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
)

// InspirationRequest asks for an idea for one AI-enabled question
type InspirationRequest struct {
	DesignRequestID string                     `json:"designRequestId"`
	QuestionID      string                     `json:"questionId" binding:"required"`
	Answers         map[string]json.RawMessage `json:"answers"`
}

type InspirationController struct {
	inspiration services.InspirationService
	log         *logger.Logger
}

func NewInspirationController(inspiration services.InspirationService, baseLog *logger.Logger) *InspirationController {
	return &InspirationController{inspiration: inspiration, log: baseLog.With("controller", "inspiration")}
}

// Generate handles POST /api/ai-inspiration
func (h *InspirationController) Generate(c *gin.Context) {
	var req InspirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	questionID, ok := parseUUIDParam(c, req.QuestionID, "questionId")
	if !ok {
		return
	}
	requestID, ok := parseOptionalUUID(c, req.DesignRequestID, "designRequestId")
	if !ok {
		return
	}

	idea, err := h.inspiration.Generate(c.Request.Context(), services.InspirationInput{
		DesignRequestID: requestID,
		QuestionID:      questionID,
		Answers:         req.Answers,
	})
	if err != nil {
		respondServiceError(c, h.log, err, "generate inspiration")
		return
	}
	respondOK(c, http.StatusOK, idea)
}
