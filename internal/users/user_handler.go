package users

import (
	"context"
	"net/http"
	"strconv"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

type UserManager interface {
	CreateUser(ctx context.Context, identity security.Identity, req models.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUsers(ctx context.Context, page models.Page) (*models.PagedResult[models.User], error)
	UpdateUser(ctx context.Context, identity security.Identity, id int, req models.UpdateUserRequest) (*models.User, error)
	ChangePassword(ctx context.Context, identity security.Identity, req models.ChangePasswordRequest) error
}

type UsersHandler struct {
	Service UserManager
	PerPage int
}

func NewHandler(s UserManager, perPage int) *UsersHandler {
	return &UsersHandler{Service: s, PerPage: perPage}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users/me", h.GetCurrentUser)
	router.PUT("/users/me/password", h.ChangePassword)

	admin := router.Group("/users", security.Authorize(roles.Admin))
	admin.POST("", h.RegisterUser)
	admin.GET("", h.GetUserList)
	admin.GET("/:id", h.GetUser)
	admin.PATCH("/:id", h.UpdateUser)
}

func (h *UsersHandler) RegisterUser(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	user, err := h.Service.CreateUser(c.Request.Context(), identity, req)
	if err != nil {
		custom_error.Abort(c, "Could not register user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UsersHandler) UpdateUser(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	id, ok := userID(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	user, err := h.Service.UpdateUser(c.Request.Context(), identity, id, req)
	if err != nil {
		custom_error.Abort(c, "Could not update user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) ChangePassword(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	if err := h.Service.ChangePassword(c.Request.Context(), identity, req); err != nil {
		custom_error.Abort(c, "Could not change password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *UsersHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	user, err := h.Service.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		custom_error.Abort(c, "Could not get user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	user, err := h.Service.GetUser(c.Request.Context(), id)
	if err != nil {
		custom_error.Abort(c, "Could not get user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	var page models.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	users, err := h.Service.GetUsers(c.Request.Context(), page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Could not list users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func userID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return id, true
}
