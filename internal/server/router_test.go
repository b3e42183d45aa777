package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cliptag/backend/config"
	"github.com/cliptag/backend/internal/sessions"
	"github.com/cliptag/backend/pkg/database"
	"github.com/cliptag/backend/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", FrontendOrigin: "http://localhost:5173"},
		Admin:  config.AdminConfig{JWTSecret: "test-secret", JWTExpireHours: 1},
	}
}

func newStore(t *testing.T) sessions.Store {
	t.Helper()
	db, err := database.OpenGorm("file::memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseGorm(db) })
	repo := sessions.NewGormRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r := NewRouter(Deps{Config: testConfig(), Store: newStore(t)})

	w := do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	do(r, http.MethodGet, "/api/sessions", "", nil)
	w = do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cliptag_http_requests_total")
}

func TestOpenAdminRoutesWhenNoPassword(t *testing.T) {
	r := NewRouter(Deps{Config: testConfig(), Store: newStore(t)})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/clear", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/export/csv", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/api/export/jobs", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/admin/login", `{"password":"x"}`, nil).Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	cfg := testConfig()
	hash, err := utils.HashPassword("pw")
	require.NoError(t, err)
	cfg.Admin.PasswordHash = hash
	r := NewRouter(Deps{Config: cfg, Store: newStore(t)})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/clear", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/export/csv", "", nil).Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/sessions", `{"user_id":"alice"}`, nil).Code,
		"recording stays open")

	w := do(r, http.MethodPost, "/api/admin/login", `{"password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))

	bearer := map[string]string{"Authorization": "Bearer " + tok.Token}
	w = do(r, http.MethodGet, "/api/export/csv", "", bearer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/clear", "", bearer).Code)
}

func TestVideoNotGzipped(t *testing.T) {
	r := NewRouter(Deps{Config: testConfig(), Store: newStore(t)})
	w := do(r, http.MethodGet, "/api/video", "", map[string]string{"Accept-Encoding": "gzip"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	w = do(r, http.MethodGet, "/api/sessions", "", map[string]string{"Accept-Encoding": "gzip"})
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
