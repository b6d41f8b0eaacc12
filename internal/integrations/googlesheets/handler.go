package googlesheets

import (
	"context"
	"net/http"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

type InventoryPublisher interface {
	ExportInventory(ctx context.Context) (*ExportResult, error)
	ReadBack(ctx context.Context) ([][]string, error)
}

type GoogleSheetsHandler struct {
	Exporter InventoryPublisher
}

func NewGoogleSheetsHandler(e InventoryPublisher) *GoogleSheetsHandler {
	return &GoogleSheetsHandler{Exporter: e}
}

func (h *GoogleSheetsHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/sheets", security.Authorize(roles.Admin))
	group.POST("/inventory", h.exportInventory)
	group.GET("/inventory", h.readInventory)
}

func (h *GoogleSheetsHandler) exportInventory(c *gin.Context) {
	result, err := h.Exporter.ExportInventory(c.Request.Context())
	if err != nil {
		custom_error.Abort(c, "Could not export to Google Sheets", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GoogleSheetsHandler) readInventory(c *gin.Context) {
	rows, err := h.Exporter.ReadBack(c.Request.Context())
	if err != nil {
		custom_error.Abort(c, "Could not read Google Sheets", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}
