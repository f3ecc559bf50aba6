package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/middleware"
	"github.com/sticker-studio/sticker-studio-api/services"
)

// SubmitFAQRequest represents a question sent from the help page
type SubmitFAQRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// UpdateFAQRequest represents an admin answering or filing a submission
type UpdateFAQRequest struct {
	ID     string  `json:"id" binding:"required"`
	Answer *string `json:"answer"`
	Status *string `json:"status"`
}

type FAQController struct {
	faq services.FAQService
	log *logger.Logger
}

func NewFAQController(faq services.FAQService, baseLog *logger.Logger) *FAQController {
	return &FAQController{faq: faq, log: baseLog.With("controller", "faq")}
}

// Submit handles POST /api/faq-submissions
func (h *FAQController) Submit(c *gin.Context) {
	var req SubmitFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	sub, err := h.faq.Submit(c.Request.Context(), services.SubmitFAQInput{
		Name:     req.Name,
		Email:    req.Email,
		Question: req.Question,
	})
	if err != nil {
		respondServiceError(c, h.log, err, "submit question")
		return
	}
	respondOK(c, http.StatusCreated, sub)
}

// List handles GET /api/faq-submissions?status=&limit=&offset= (admin)
func (h *FAQController) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a number")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be a number")
		return
	}

	page, err := h.faq.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondServiceError(c, h.log, err, "load questions")
		return
	}
	respondOK(c, http.StatusOK, page)
}

// Update handles PATCH /api/faq-submissions (admin)
func (h *FAQController) Update(c *gin.Context) {
	var req UpdateFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	id, ok := parseUUIDParam(c, req.ID, "id")
	if !ok {
		return
	}

	// the admin group guarantees a subject; an empty one only skips attribution
	subject, _ := middleware.GetUserID(c)
	sub, err := h.faq.Update(c.Request.Context(), services.UpdateFAQInput{
		ID:          id,
		Answer:      req.Answer,
		Status:      req.Status,
		AccessToken: middleware.GetAccessToken(c),
		Subject:     subject,
	})
	if err != nil {
		respondServiceError(c, h.log, err, "update question")
		return
	}
	respondOK(c, http.StatusOK, sub)
}
