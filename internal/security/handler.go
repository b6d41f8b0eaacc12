package security

import (
	"context"
	"net/http"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	pkgsecurity "churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password, ipAddress string) (*LoginResult, error)
	GetAttempts(ctx context.Context, filter LoginAttemptFilter, page models.Page) (*models.PagedResult[models.LoginAttempt], error)
	ResetLockout(ctx context.Context, username, resetBy string) error
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ResetLockoutRequest struct {
	Username string `json:"username"`
}

type attemptsQuery struct {
	models.Page
	LoginAttemptFilter
}

type AuthHandler struct {
	Service Authenticator
	PerPage int
}

func NewAuthHandler(s Authenticator, perPage int) *AuthHandler {
	return &AuthHandler{Service: s, PerPage: perPage}
}

// RegisterPublicRoutes mounts the login endpoint behind the given middleware
// (typically the per-address rate limiter).
func (h *AuthHandler) RegisterPublicRoutes(router gin.IRoutes, middleware ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, middleware...), h.Login)
	router.POST("/auth", handlers...)
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/login-attempts", pkgsecurity.Authorize(roles.Admin))
	admin.GET("", h.GetAttempts)
	admin.POST("/reset", h.ResetLockout)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	result, err := h.Service.Authenticate(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		custom_error.Abort(c, "Authentication failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) GetAttempts(c *gin.Context) {
	var query attemptsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	attempts, err := h.Service.GetAttempts(c.Request.Context(), query.LoginAttemptFilter, query.Page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Could not list login attempts", err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

func (h *AuthHandler) ResetLockout(c *gin.Context) {
	identity, ok := pkgsecurity.MustIdentity(c)
	if !ok {
		return
	}

	var req ResetLockoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
			return
		}
	}

	if err := h.Service.ResetLockout(c.Request.Context(), req.Username, identity.Username); err != nil {
		custom_error.Abort(c, "Could not reset login lockout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login lockout reset"})
}
