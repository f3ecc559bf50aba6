package controllers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"gorm.io/gorm"
)

type HealthController struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHealthController(db *gorm.DB, baseLog *logger.Logger) *HealthController {
	return &HealthController{db: db, log: baseLog.With("controller", "health")}
}

// Health handles GET /api/health
func (h *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sticker Studio API is running",
	})
}

// DatabaseStatus checks database connectivity and returns table information
func (h *HealthController) DatabaseStatus(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		h.log.Error("Failed to get database instance", "error", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to get database instance")
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		h.log.Error("Database ping failed", "error", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_CONNECTION_ERROR", "Database connection failed")
		return
	}

	tables, err := h.db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		h.log.Error("Failed to list tables", "error", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_QUERY_ERROR", "Failed to query tables")
		return
	}
	sort.Strings(tables)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
