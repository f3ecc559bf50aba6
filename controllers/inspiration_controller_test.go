package controllers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/middleware"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInspiration struct {
	err  error
	last services.InspirationInput
}

func (s *stubInspiration) Generate(ctx context.Context, in services.InspirationInput) (*services.Inspiration, error) {
	s.last = in
	if s.err != nil {
		return nil, s.err
	}
	return &services.Inspiration{Text: "A cat riding a comet", Placeholders: map[string]string{}}, nil
}

func newInspirationRouter(stub *stubInspiration, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	router := gin.New()
	router.POST("/api/ai-inspiration",
		middleware.RateLimit(middleware.NewMemoryLimiter(), "ai-inspiration", limit, time.Minute, log),
		NewInspirationController(stub, log).Generate,
	)
	return router
}

func TestInspiration_Generate(t *testing.T) {
	stub := &stubInspiration{}
	router := newInspirationRouter(stub, 0)
	questionID, requestID := uuid.New(), uuid.New()

	w := postJSON(router, "/api/ai-inspiration", fmt.Sprintf(
		`{"designRequestId":%q,"questionId":%q,"answers":{"abc":"cats"}}`, requestID, questionID))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "A cat riding a comet")
	assert.Equal(t, questionID, stub.last.QuestionID)
	require.NotNil(t, stub.last.DesignRequestID)
	assert.Equal(t, requestID, *stub.last.DesignRequestID)
	assert.JSONEq(t, `"cats"`, string(stub.last.Answers["abc"]))
}

func TestInspiration_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing question", `{}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not an AI question", `{"questionId":"` + uuid.NewString() + `"}`, services.ErrAINotEnabled, http.StatusBadRequest, "AI_NOT_ENABLED"},
		{"unknown question", `{"questionId":"` + uuid.NewString() + `"}`, services.ErrQuestionNotFound, http.StatusNotFound, "QUESTION_NOT_FOUND"},
		{"no api key", `{"questionId":"` + uuid.NewString() + `"}`, services.ErrNotConfigured, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"model failure", `{"questionId":"` + uuid.NewString() + `"}`, fmt.Errorf("%w: quota exceeded", services.ErrUpstream), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newInspirationRouter(&stubInspiration{err: tt.err}, 0)
			w := postJSON(router, "/api/ai-inspiration", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			code, _ := decodeError(t, w)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestInspiration_RateLimited(t *testing.T) {
	stub := &stubInspiration{}
	router := newInspirationRouter(stub, 2)
	body := fmt.Sprintf(`{"questionId":%q}`, uuid.New())

	for i := 0; i < 2; i++ {
		w := postJSON(router, "/api/ai-inspiration", body)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := postJSON(router, "/api/ai-inspiration", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	code, _ := decodeError(t, w)
	assert.Equal(t, "RATE_LIMITED", code)
}
