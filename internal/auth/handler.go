package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cliptag/backend/pkg/response"
	"github.com/cliptag/backend/pkg/utils"
)

// LoginRequest is the body for POST /api/admin/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Handler handles admin login.
type Handler struct {
	passwordHash string
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler. An empty passwordHash disables login.
func NewHandler(passwordHash string, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{passwordHash: passwordHash, jwt: jwt, logger: logger}
}

// Login handles POST /api/admin/login.
func (h *Handler) Login(c *gin.Context) {
	if h.passwordHash == "" {
		response.NotFound(c, "Admin login is disabled")
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "password is required")
		return
	}
	if !utils.CheckPassword(req.Password, h.passwordHash) {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid password")
		return
	}
	token, err := h.jwt.Generate(RoleAdmin)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "Failed to log in")
		return
	}
	response.OK(c, TokenResponse{Token: token, ExpiresIn: int(h.jwt.TTL().Seconds())})
}
