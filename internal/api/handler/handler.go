// Package handler exposes the read-only HTTP API over stored complaints.
package handler

import (
	"complaintbot/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	Storage storage.Storage
}

func NewHandler(s storage.Storage) *Handler {
	return &Handler{Storage: s}
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(), CORS())

	r.GET("/complaints", h.ListComplaints)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	return r
}
