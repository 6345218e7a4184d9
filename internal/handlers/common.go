package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/services"
	"github.com/samrato/QMMMUST/internal/store"
)

const dateLayout = "2006-01-02"

// respondError maps service sentinels to HTTP statuses. Unexpected errors are logged, not echoed.
func respondError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, services.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Resource already exists"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parsePage(c *gin.Context) store.Page {
	var page store.Page
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		page.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil {
		page.Offset = v
	}
	return page
}

// parseTime accepts RFC3339 or a bare UTC date. A bare end date covers the whole day.
func parseTime(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", services.ErrInvalid, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseRange(c *gin.Context) (from, to *time.Time, ok bool) {
	from, err := parseTime(c.Query("date_from"), false)
	if err == nil {
		to, err = parseTime(c.Query("date_to"), true)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return from, to, true
}

func listResponse(key string, items any, total int64, page store.Page) gin.H {
	page = page.Normalized()
	return gin.H{
		key:      items,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}
}
