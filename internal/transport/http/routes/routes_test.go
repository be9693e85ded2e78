package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/config"
	httproutes "github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/transport/http/routes"
)

type fakeDatabase struct {
	err error
}

func (f fakeDatabase) Ping(context.Context) error { return f.err }

type fakeCache struct {
	err error
}

func (f fakeCache) HealthCheck(context.Context) error { return f.err }

func testConfig() *config.AppConfig {
	return &config.AppConfig{App: config.AppSettings{Env: "test"}}
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: logger,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessReflectsDependencyHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	tests := []struct {
		name     string
		database httproutes.DatabaseChecker
		cache    httproutes.CacheChecker
		want     int
	}{
		{name: "all healthy", database: fakeDatabase{}, cache: fakeCache{}, want: http.StatusOK},
		{name: "database down", database: fakeDatabase{err: errors.New("connection refused")}, cache: fakeCache{}, want: http.StatusServiceUnavailable},
		{name: "cache down", database: fakeDatabase{}, cache: fakeCache{err: errors.New("timeout")}, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httproutes.Register(httproutes.Dependencies{
				Config:   testConfig(),
				Logger:   logger,
				Database: tt.database,
				Cache:    tt.cache,
			})
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)

			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAdminRoutesRequireAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: logger,
	})

	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/accounts"},
		{http.MethodGet, "/api/v1/accounts/abc"},
		{http.MethodPost, "/api/v1/accounts/abc/approve"},
		{http.MethodPost, "/api/v1/accounts/abc/revoke"},
		{http.MethodGet, "/api/v1/auth/session"},
		{http.MethodPost, "/api/v1/auth/logout"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(target.method, target.path, nil)

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status 401, got %d", target.method, target.path, w.Code)
		}
	}
}

func TestAccessRequestRouteRejectsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: logger,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/access/request", strings.NewReader(`{"name":""}`))
	req.Header.Set("Content-Type", "application/json")

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpointRegistered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: logger,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}
