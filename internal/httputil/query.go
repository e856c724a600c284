package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit safely parses and validates the limit query parameter.
// It defaults to 50 and cannot exceed 100.
func ParseLimit(c *gin.Context) (int, error) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and 100")
	}

	return limit, nil
}
