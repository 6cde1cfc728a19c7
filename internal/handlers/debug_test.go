package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vexa-service/internal/middleware"
	"vexa-service/internal/mocks"
	"vexa-service/internal/telemetry"
)

func TestDebugAuditTestPublishes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, telemetry.EventAudit, mock.Anything, mock.Anything).Return(nil).Once()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	r.GET("/debug/audit-test", NewDebugHandler(telemetry.NewEmitter(pub, "vexa-service", "test")).AuditTest)

	req := httptest.NewRequest(http.MethodGet, "/debug/audit-test?level=warn", nil)
	req.Header.Set("X-User-Id", "ava")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "WARN", body["level"])
	assert.Equal(t, "req-1", body["request_id"])
	pub.AssertExpectations(t)
}

func TestDebugAuditTestWithoutEmitter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/debug/audit-test", NewDebugHandler(nil).AuditTest)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
