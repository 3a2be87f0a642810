package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/synergysphere/api/internal/constants"
)

// PaginationParams holds the page window a list request asked for
type PaginationParams struct {
	Page  int
	Limit int
}

// GetPaginationParams extracts and clamps pagination parameters from the
// request query string
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{Page: page, Limit: limit}
}
