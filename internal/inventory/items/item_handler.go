package items

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

type Catalog interface {
	AddItem(ctx context.Context, identity security.Identity, req CreateItemRequest) (*models.Item, error)
	GetItem(ctx context.Context, id int) (*models.Item, error)
	UpdateItem(ctx context.Context, identity security.Identity, id int, req UpdateItemRequest) (*models.Item, error)
	ListItems(ctx context.Context, query ItemListQuery, page models.Page) (*models.PagedResult[models.Item], error)
	Categories(ctx context.Context) ([]string, error)
	Conditions(ctx context.Context) ([]string, error)
	DeleteItem(ctx context.Context, identity security.Identity, id int) (*models.ItemDeletion, error)
}

type ItemHandler struct {
	service Catalog
	perPage int
}

func NewItemHandler(s Catalog, perPage int) *ItemHandler {
	return &ItemHandler{service: s, perPage: perPage}
}

func (h *ItemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/items", h.CreateItem)
	router.GET("/items", h.RetrieveItemList)
	router.GET("/items/search", h.SearchItems)
	router.GET("/items/categories", h.Categories)
	router.GET("/items/conditions", h.Conditions)
	router.GET("/items/:id", h.RetrieveItem)
	router.PATCH("/items/:id", h.UpdateItem)
	router.DELETE("/items/:id", security.Authorize(roles.Admin), h.DeleteItem)
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), identity, req)
	if err != nil {
		custom_error.Abort(c, "Could not add item", err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) RetrieveItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		custom_error.Abort(c, "Unable to fetch item", err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) RetrieveItemList(c *gin.Context) {
	h.listItems(c, false)
}

func (h *ItemHandler) SearchItems(c *gin.Context) {
	h.listItems(c, true)
}

func (h *ItemHandler) listItems(c *gin.Context, requireQuery bool) {
	var query struct {
		models.Page
		ItemListQuery
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}
	if requireQuery && query.Query == "" {
		custom_error.Abort(c, "Invalid search", custom_error.NewValidationError("q", "search term is required"))
		return
	}

	items, err := h.service.ListItems(c.Request.Context(), query.ItemListQuery, query.Page.Normalize(h.perPage))
	if err != nil {
		custom_error.Abort(c, "Unable to retrieve items", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), identity, id, req)
	if err != nil {
		custom_error.Abort(c, "Unable to update item", err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	identity, ok := security.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	deletion, err := h.service.DeleteItem(c.Request.Context(), identity, id)
	if err != nil {
		custom_error.Abort(c, "Unable to delete item", err)
		return
	}

	c.JSON(http.StatusOK, deletion)
}

func (h *ItemHandler) Categories(c *gin.Context) {
	values, err := h.service.Categories(c.Request.Context())
	if err != nil {
		custom_error.Abort(c, "Unable to list categories", err)
		return
	}

	c.JSON(http.StatusOK, values)
}

func (h *ItemHandler) Conditions(c *gin.Context) {
	values, err := h.service.Conditions(c.Request.Context())
	if err != nil {
		custom_error.Abort(c, "Unable to list conditions", err)
		return
	}

	c.JSON(http.StatusOK, values)
}

func itemID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return 0, false
	}
	return id, true
}
