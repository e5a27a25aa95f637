package handler

import (
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 10
	listTimeout  = 10 * time.Second
)

// ListComplaints returns complaints newest first.
// GET /complaints?limit=10&skip=0
func (h *Handler) ListComplaints(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultLimit, 1)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	skip, err := queryInt(c, "skip", 0, 0)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), listTimeout)
	defer cancel()

	complaints, err := h.Storage.ListComplaints(ctx, limit, skip)
	if errors.Is(err, storage.ErrInvalidPage) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if storage.IsUnavailable(err) {
		slog.Error("Handler.ListComplaints: store unavailable",
			"request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "service unavailable"})
		return
	}
	if err != nil {
		slog.Error("Handler.ListComplaints: failed to list complaints",
			"request_id", c.GetString(requestIDKey), "limit", limit, "skip", skip, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	c.JSON(http.StatusOK, complaints)
}

// queryInt reads an optional integer query parameter with a lower bound.
func queryInt(c *gin.Context, name string, def, lower int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	if v < lower {
		return 0, fmt.Errorf("%s must be greater than or equal to %d", name, lower)
	}
	return v, nil
}
