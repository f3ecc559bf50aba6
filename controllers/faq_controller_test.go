package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/middleware"
	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/repositories"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFAQRouter(t *testing.T, scopes ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	db := testutil.NewTestDB(t)
	h := NewFAQController(services.NewFAQService(repositories.NewFAQRepository(db, log), nil, log), log)

	router := gin.New()
	router.POST("/api/faq-submissions", h.Submit)
	admin := router.Group("/api", testutil.MockAuthMiddleware("auth0|admin", scopes...), middleware.RequireScope(middleware.AdminScope))
	admin.GET("/faq-submissions", h.List)
	admin.PATCH("/faq-submissions", h.Update)
	return router
}

func patchJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFAQ_SubmitAndAnswer(t *testing.T) {
	router := newFAQRouter(t, middleware.AdminScope)

	w := postJSON(router, "/api/faq-submissions", `{"name":"Sam","email":"sam@example.com","question":"Are the stickers waterproof?"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data models.FAQSubmission `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.FAQStatusNew, created.Data.Status)

	w = get(router, "/api/faq-submissions?status=new")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data services.FAQPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Data.Total)

	w = patchJSON(router, "/api/faq-submissions", fmt.Sprintf(`{"id":%q,"answer":"Yes, they are vinyl."}`, created.Data.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"answered"`)
}

func TestFAQ_Validation(t *testing.T) {
	router := newFAQRouter(t, middleware.AdminScope)

	w := postJSON(router, "/api/faq-submissions", `{"email":"sam@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/faq-submissions", `{"email":"nope","question":"Hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(router, "/api/faq-submissions?limit=ten")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(router, "/api/faq-submissions?status=deleted")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFAQ_AdminRoutesNeedScope(t *testing.T) {
	router := newFAQRouter(t, "read:requests")

	w := get(router, "/api/faq-submissions")
	assert.Equal(t, http.StatusForbidden, w.Code)
	code, _ := decodeError(t, w)
	assert.Equal(t, "INSUFFICIENT_SCOPE", code)

	w = postJSON(router, "/api/faq-submissions", `{"email":"sam@example.com","question":"Shipping to Canada?"}`)
	assert.Equal(t, http.StatusCreated, w.Code, "submitting stays public")
}
