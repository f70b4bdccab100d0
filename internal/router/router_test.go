package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/patient-records/internal/handler/health"
	"github.com/jwalitptl/patient-records/internal/handler/patient"
	"github.com/jwalitptl/patient-records/internal/middleware"
	"github.com/jwalitptl/patient-records/internal/repository/memory"
	patientsvc "github.com/jwalitptl/patient-records/internal/service/patient"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

func newRouter(t *testing.T, limit bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("patients", reg)
	table := memory.NewPatientTable()
	svc := patientsvc.NewService(table, nil, m)

	r := NewRouter(patient.NewHandler(svc, nil, nil), health.NewHandler(table), RouterConfig{
		RateLimitEnabled: limit,
		RateLimit:        0.001,
		RateBurst:        1,
		Metrics:          m,
		Gatherer:         reg,
		Log:              zerolog.Nop(),
	})
	r.Setup()
	return r.Engine()
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutes(t *testing.T) {
	engine := newRouter(t, false)

	w := get(engine, "/api/v1/patients")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	assert.Equal(t, http.StatusOK, get(engine, "/health/ready").Code)
	assert.Equal(t, http.StatusNotFound, get(engine, "/nope").Code)

	w = get(engine, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "patients_http_requests_total")
	assert.Contains(t, w.Body.String(), "patients_store_operations_total")
}

func TestRateLimitEnabled(t *testing.T) {
	engine := newRouter(t, true)

	assert.Equal(t, http.StatusOK, get(engine, "/health/live").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(engine, "/health/live").Code)
}
