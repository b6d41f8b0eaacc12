package custom_error

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Abort writes the JSON error body shared by all handlers. Internal errors
// never leak their details to the client.
func Abort(c *gin.Context, message string, err error) {
	status, field := HTTPStatus(err)

	body := gin.H{"error": message, "code": Code(err)}
	if status != http.StatusInternalServerError {
		body["details"] = err.Error()
	}
	if field != "" {
		body["field"] = field
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
