package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func itemResponse(c echo.Context, status int, message string, item interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"success": true,
		"message": message,
		"item":    item,
	})
}

func okResponse(c echo.Context, body map[string]interface{}) error {
	body["success"] = true
	return c.JSON(http.StatusOK, body)
}
