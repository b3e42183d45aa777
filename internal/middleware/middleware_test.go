package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cliptag/backend/internal/auth"
)

func init() { gin.SetMode(gin.TestMode) }

func guarded(svc *auth.JWTService, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.POST("/api/clear", JWT(svc), RequireRole(logger, auth.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func post(r http.Handler, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminGuard(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	core, logs := observer.New(zap.WarnLevel)
	r := guarded(svc, zap.New(core))

	assert.Equal(t, http.StatusUnauthorized, post(r, "/api/clear", "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/api/clear", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/api/clear", "Bearer garbage").Code)

	token, err := svc.Generate(auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post(r, "/api/clear", "Bearer "+token).Code)

	other, err := svc.Generate("viewer")
	require.NoError(t, err)
	w := post(r, "/api/clear", "Bearer "+other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "admin role required")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "viewer", logs.All()[0].ContextMap()["role"])
}

func TestRequireRoleWithoutJWT(t *testing.T) {
	r := gin.New()
	r.POST("/api/clear", RequireRole(nil, auth.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, post(r, "/api/clear", "").Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/api/video", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/video", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Range")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/video", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggerSkipsPaths(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/health", "/api/sessions"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/api/sessions", logs.All()[0].ContextMap()["path"])
}
