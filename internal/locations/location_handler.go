package locations

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

type LocationManager interface {
	CreateLocation(ctx context.Context, identity security.Identity, name string) (*models.Location, error)
	GetLocations(ctx context.Context, page models.Page) (*models.PagedResult[models.Location], error)
	GetLocation(ctx context.Context, id int) (*models.LocationStock, error)
	RenameLocation(ctx context.Context, identity security.Identity, id int, name string) (*models.Location, error)
	DeleteLocation(ctx context.Context, identity security.Identity, id int) error
}

type LocationRequest struct {
	Name string `json:"name" binding:"required"`
}

type LocationHandler struct {
	Service LocationManager
	PerPage int
}

func NewLocationHandler(s LocationManager, perPage int) *LocationHandler {
	return &LocationHandler{Service: s, PerPage: perPage}
}

func (h *LocationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/locations", h.CreateLocation)
	router.GET("/locations", h.GetLocations)
	router.GET("/locations/:id", h.GetLocation)
	router.PATCH("/locations/:id", h.RenameLocation)
	router.DELETE("/locations/:id", security.Authorize(roles.Admin), h.RemoveLocation)
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	var page models.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	locations, err := h.Service.GetLocations(c.Request.Context(), page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Could not list locations", err)
		return
	}

	c.JSON(http.StatusOK, locations)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	location, err := h.Service.CreateLocation(c.Request.Context(), identity, req.Name)
	if err != nil {
		custom_error.Abort(c, "Could not create location", err)
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, ok := locationID(c)
	if !ok {
		return
	}

	location, err := h.Service.GetLocation(c.Request.Context(), id)
	if err != nil {
		custom_error.Abort(c, "Could not get location", err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) RenameLocation(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := locationID(c)
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	location, err := h.Service.RenameLocation(c.Request.Context(), identity, id, req.Name)
	if err != nil {
		custom_error.Abort(c, "Could not update location", err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) RemoveLocation(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := locationID(c)
	if !ok {
		return
	}

	if err := h.Service.DeleteLocation(c.Request.Context(), identity, id); err != nil {
		custom_error.Abort(c, "Could not delete location", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deleted successfully"})
}

func locationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return 0, false
	}
	return id, true
}
