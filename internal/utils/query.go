package utils

import (
	"strconv"
	"strings"

	"kalam-backend/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListQuery reads page, limit, sort and search from the query string. A
// leading "-" on sort requests descending order.
func ListQuery(c *fiber.Ctx) repositories.ListParams {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	params := repositories.ListParams{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(c.Query("search")),
	}
	if sort := strings.TrimSpace(c.Query("sort")); sort != "" {
		params.Desc = strings.HasPrefix(sort, "-")
		params.Sort = strings.TrimPrefix(sort, "-")
	}
	return params
}
