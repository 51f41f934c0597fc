package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated pagination and sorting parameters
type Params struct {
	Page      int
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// ParseWithSort additionally extracts sort_by/sort_order, whitelisting
// sort_by against allowedColumns (first entry is the default). The
// whitelist keeps user input out of the ORDER BY clause.
func ParseWithSort(c *gin.Context, allowedColumns ...string) Params {
	p := Parse(c)

	p.SortBy = allowedColumns[0]
	requested := c.Query("sort_by")
	for _, col := range allowedColumns {
		if requested == col {
			p.SortBy = col
			break
		}
	}

	p.SortOrder = "desc"
	if strings.EqualFold(c.Query("sort_order"), "asc") {
		p.SortOrder = "asc"
	}

	return p
}

// OrderClause renders the validated sort as a SQL ORDER BY expression
func (p Params) OrderClause() string {
	return p.SortBy + " " + p.SortOrder
}
