package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
)

// CatalogController serves the store pages and the questionnaire definitions
type CatalogController struct {
	catalog   services.CatalogService
	questions services.QuestionService
	log       *logger.Logger
}

func NewCatalogController(catalog services.CatalogService, questions services.QuestionService, baseLog *logger.Logger) *CatalogController {
	return &CatalogController{catalog: catalog, questions: questions, log: baseLog.With("controller", "catalog")}
}

// ListProducts handles GET /api/products?category=
func (h *CatalogController) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondServiceError(c, h.log, err, "load products")
		return
	}
	respondOK(c, http.StatusOK, products)
}

// GetProduct handles GET /api/products/:slug
func (h *CatalogController) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), services.ProductRef{Slug: c.Param("slug")})
	if err != nil {
		respondServiceError(c, h.log, err, "load product")
		return
	}
	respondOK(c, http.StatusOK, product)
}

// ListCategories handles GET /api/categories
func (h *CatalogController) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err, "load categories")
		return
	}
	respondOK(c, http.StatusOK, categories)
}

// CategoryProducts handles GET /api/categories/:slug/products
func (h *CatalogController) CategoryProducts(c *gin.Context) {
	category, products, err := h.catalog.CategoryProducts(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondServiceError(c, h.log, err, "load category")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"category": category,
		"products": products,
	})
}

// ListDesignStyles handles GET /api/design-styles?productId=
func (h *CatalogController) ListDesignStyles(c *gin.Context) {
	productID := uuid.Nil
	if raw := c.Query("productId"); raw != "" {
		id, ok := parseUUIDParam(c, raw, "productId")
		if !ok {
			return
		}
		productID = id
	}
	styles, err := h.questions.ListStyles(c.Request.Context(), productID)
	if err != nil {
		respondServiceError(c, h.log, err, "load design styles")
		return
	}
	respondOK(c, http.StatusOK, styles)
}

// RequestQuestions handles GET /api/request-questions?productId=|productSlug=
func (h *CatalogController) RequestQuestions(c *gin.Context) {
	ref := services.ProductRef{Slug: c.Query("productSlug")}
	if raw := c.Query("productId"); raw != "" {
		id, ok := parseUUIDParam(c, raw, "productId")
		if !ok {
			return
		}
		ref.ID = id
	}

	product, questions, err := h.questions.ListForProduct(c.Request.Context(), ref)
	if err != nil {
		respondServiceError(c, h.log, err, "load questions")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"product":   product,
		"questions": questions,
	})
}

// CustomQuestions handles GET /api/custom-questions?templateId=
func (h *CatalogController) CustomQuestions(c *gin.Context) {
	templateID, ok := parseUUIDParam(c, c.Query("templateId"), "templateId")
	if !ok {
		return
	}
	flow, err := h.questions.CustomQuestions(c.Request.Context(), templateID)
	if err != nil {
		respondServiceError(c, h.log, err, "load custom questions")
		return
	}
	respondOK(c, http.StatusOK, flow)
}
