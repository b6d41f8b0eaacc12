package movements

import (
	"context"
	"net/http"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

type MovementRecorder interface {
	RecordMovement(ctx context.Context, identity security.Identity, req models.MovementRequest) (*models.Movement, error)
	GetMovements(ctx context.Context, filter MovementFilter, page models.Page) (*models.PagedResult[models.Movement], error)
}

type MovementHandler struct {
	Service MovementRecorder
	PerPage int
}

func NewMovementHandler(s MovementRecorder, perPage int) *MovementHandler {
	return &MovementHandler{Service: s, PerPage: perPage}
}

func (h *MovementHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/movements", h.CreateMovement)
	router.GET("/movements", h.GetMovements)
}

func (h *MovementHandler) CreateMovement(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	var req models.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	movement, err := h.Service.RecordMovement(c.Request.Context(), identity, req)
	if err != nil {
		custom_error.Abort(c, "Could not record movement", err)
		return
	}

	c.JSON(http.StatusCreated, movement)
}

func (h *MovementHandler) GetMovements(c *gin.Context) {
	var query struct {
		models.Page
		MovementFilter
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	movements, err := h.Service.GetMovements(c.Request.Context(), query.MovementFilter, query.Page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Could not list movements", err)
		return
	}

	c.JSON(http.StatusOK, movements)
}
