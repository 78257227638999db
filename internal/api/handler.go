package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"staff-status-backend/internal/manager"
	"staff-status-backend/internal/resolver"
	"staff-status-backend/internal/store"
	statussync "staff-status-backend/internal/sync"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	manager *manager.Manager
	sync    *statussync.Synchronizer
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, m *manager.Manager, sy *statussync.Synchronizer, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		manager: m,
		sync:    sy,
		webpush: webpushOptions,
	}
}

// writeError maps core errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrStatusNotFound),
		errors.Is(err, manager.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, resolver.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
