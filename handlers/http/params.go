package httpHandler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// pageQuery is the skip/limit pair shared by list endpoints.
type pageQuery struct {
	Skip  int `form:"skip,default=0" binding:"gte=0"`
	Limit int `form:"limit,default=100" binding:"gte=1,lte=1000"`
}

// idParam parses a positive integer path parameter, writing a 422 on failure.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Invalid request",
			"details": gin.H{name: "must be a positive integer"},
		})
		return 0, false
	}
	return uint(id), true
}
