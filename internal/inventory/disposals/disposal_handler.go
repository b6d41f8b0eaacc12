package disposals

import (
	"context"
	"net/http"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

type DisposalRecorder interface {
	RecordDisposal(ctx context.Context, identity security.Identity, req models.DisposalRequest) (*models.Disposal, error)
	GetDisposals(ctx context.Context, filter DisposalFilter, page models.Page) (*models.PagedResult[models.Disposal], error)
}

type DisposalHandler struct {
	Service DisposalRecorder
	PerPage int
}

func NewDisposalHandler(s DisposalRecorder, perPage int) *DisposalHandler {
	return &DisposalHandler{Service: s, PerPage: perPage}
}

func (h *DisposalHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/disposals", h.CreateDisposal)
	router.GET("/disposals", h.GetDisposals)
}

func (h *DisposalHandler) CreateDisposal(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	var req models.DisposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	disposal, err := h.Service.RecordDisposal(c.Request.Context(), identity, req)
	if err != nil {
		custom_error.Abort(c, "Could not record disposal", err)
		return
	}

	c.JSON(http.StatusCreated, disposal)
}

func (h *DisposalHandler) GetDisposals(c *gin.Context) {
	var query struct {
		models.Page
		DisposalFilter
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	disposals, err := h.Service.GetDisposals(c.Request.Context(), query.DisposalFilter, query.Page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Could not list disposals", err)
		return
	}

	c.JSON(http.StatusOK, disposals)
}
