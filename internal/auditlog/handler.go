package auditlog

import (
	"net/http"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
)

type activityQuery struct {
	models.Page
	ActivityFilter
}

type ActivityHandler struct {
	Reader  ActivityReader
	PerPage int
}

func NewActivityHandler(r ActivityReader, perPage int) *ActivityHandler {
	return &ActivityHandler{Reader: r, PerPage: perPage}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/activity", security.Authorize(roles.Admin), h.GetActivity)
}

func (h *ActivityHandler) GetActivity(c *gin.Context) {
	var query activityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	entries, err := h.Reader.GetActivity(c.Request.Context(), query.ActivityFilter, query.Page.Normalize(h.PerPage))
	if err != nil {
		custom_error.Abort(c, "Could not list activity", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
