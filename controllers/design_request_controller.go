package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
)

// CreateDesignRequestRequest represents the request body for starting a design request
type CreateDesignRequestRequest struct {
	ProductID   string `json:"productId"`
	ProductSlug string `json:"productSlug"`
	Email       string `json:"email"`
	StyleID     string `json:"styleId"`
}

// UpdateDesignRequestRequest carries the autosave payload. Answers is the
// full answer set accumulated so far, keyed by question id.
type UpdateDesignRequestRequest struct {
	ID           string                     `json:"id" binding:"required"`
	Email        *string                    `json:"email"`
	StyleID      *string                    `json:"styleId"`
	DiscountCode *string                    `json:"discountCode"`
	Status       *string                    `json:"status"`
	Answers      map[string]json.RawMessage `json:"answers"`
}

type DesignRequestController struct {
	requests services.DesignRequestService
	log      *logger.Logger
}

func NewDesignRequestController(requests services.DesignRequestService, baseLog *logger.Logger) *DesignRequestController {
	return &DesignRequestController{requests: requests, log: baseLog.With("controller", "design_requests")}
}

// Create handles POST /api/design-requests
func (h *DesignRequestController) Create(c *gin.Context) {
	var req CreateDesignRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	in := services.CreateDesignRequestInput{
		Product: services.ProductRef{Slug: req.ProductSlug},
		Email:   req.Email,
	}
	if req.ProductID != "" {
		id, ok := parseUUIDParam(c, req.ProductID, "productId")
		if !ok {
			return
		}
		in.Product.ID = id
	}
	styleID, ok := parseOptionalUUID(c, req.StyleID, "styleId")
	if !ok {
		return
	}
	in.StyleID = styleID

	created, err := h.requests.Create(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, h.log, err, "create design request")
		return
	}
	respondOK(c, http.StatusCreated, created)
}

// Update handles PATCH /api/design-requests
func (h *DesignRequestController) Update(c *gin.Context) {
	var req UpdateDesignRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	id, ok := parseUUIDParam(c, req.ID, "id")
	if !ok {
		return
	}

	in := services.UpdateDesignRequestInput{
		ID:           id,
		Email:        req.Email,
		DiscountCode: req.DiscountCode,
		Status:       req.Status,
		Answers:      req.Answers,
	}
	if req.StyleID != nil {
		styleID, ok := parseUUIDParam(c, *req.StyleID, "styleId")
		if !ok {
			return
		}
		in.StyleID = &styleID
	}

	view, err := h.requests.Update(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, h.log, err, "update design request")
		return
	}
	respondOK(c, http.StatusOK, view)
}

// Get handles GET /api/design-requests?id= or ?code=
func (h *DesignRequestController) Get(c *gin.Context) {
	var (
		view *services.DesignRequestView
		err  error
	)
	switch {
	case c.Query("id") != "":
		id, ok := parseUUIDParam(c, c.Query("id"), "id")
		if !ok {
			return
		}
		view, err = h.requests.Get(c.Request.Context(), id)
	case c.Query("code") != "":
		view, err = h.requests.GetByCode(c.Request.Context(), c.Query("code"))
	default:
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id or code is required")
		return
	}
	if err != nil {
		respondServiceError(c, h.log, err, "load design request")
		return
	}
	respondOK(c, http.StatusOK, view)
}

// Summary handles GET /api/design-requests/:id/summary
func (h *DesignRequestController) Summary(c *gin.Context) {
	id, ok := parseUUIDParam(c, c.Param("id"), "id")
	if !ok {
		return
	}
	summary, err := h.requests.Summary(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "build summary")
		return
	}
	respondOK(c, http.StatusOK, summary)
}

// Events handles GET /api/admin/design-requests/:id/events
func (h *DesignRequestController) Events(c *gin.Context) {
	id, ok := parseUUIDParam(c, c.Param("id"), "id")
	if !ok {
		return
	}
	events, err := h.requests.Events(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "load events")
		return
	}
	respondOK(c, http.StatusOK, events)
}

// Analytics handles GET /api/admin/analytics
func (h *DesignRequestController) Analytics(c *gin.Context) {
	analytics, err := h.requests.Analytics(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err, "load analytics")
		return
	}
	respondOK(c, http.StatusOK, analytics)
}
