package stocks

import (
	"context"
	"net/http"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/gin-gonic/gin"
)

type StockReader interface {
	GetStockItemsBy(ctx context.Context, conditions repository.QueryBuilder, page models.Page) (*models.PagedResult[models.StockItem], error)
}

// StockHandler is read only. Stock changes go through movements and disposals.
type StockHandler struct {
	StockRepository StockReader
	PerPage         int
}

func NewStockHandler(sr StockReader, perPage int) *StockHandler {
	return &StockHandler{
		StockRepository: sr,
		PerPage:         perPage,
	}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stocks", h.GetStocks)
}

func (h *StockHandler) GetStocks(c *gin.Context) {
	var query struct {
		models.Page
		ItemID     *int `form:"item_id"`
		LocationID *int `form:"location_id"`
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	conditions := repository.NewQueryBuilder()
	conditions.AddCondition("item_id", query.ItemID)
	conditions.AddCondition("location_id", query.LocationID)

	stockItems, err := h.StockRepository.GetStockItemsBy(c.Request.Context(), conditions, query.Page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Failed to fetch stock items", err)
		return
	}

	c.JSON(http.StatusOK, stockItems)
}
