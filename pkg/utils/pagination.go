// Package utils holds small request helpers shared by the HTTP handlers.
package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// The offset-paginated surfaces (conversation inbox, vehicle listings) share
// these bounds. Message history paginates by cursor and does not use them.
const (
	defaultListPageSize = 20
	maxListPageSize     = 50
)

// ListParams is the decoded page/limit pair and the offset it implies.
type ListParams struct {
	Page   int
	Limit  int
	Offset int
}

// ListParamsFromRequest reads the page and limit query parameters, clamping
// limit to [1, maxListPageSize] and page to >= 1.
func ListParamsFromRequest(c echo.Context) ListParams {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 {
		limit = defaultListPageSize
	}
	if limit > maxListPageSize {
		limit = maxListPageSize
	}

	return ListParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
