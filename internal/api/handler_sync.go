package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	statussync "staff-status-backend/internal/sync"
)

type syncRequest struct {
	ForceRefresh   bool     `json:"force_refresh"`
	UserIDs        []string `json:"user_ids"`
	SyncAttendance *bool    `json:"sync_attendance"`
	SyncCalendar   *bool    `json:"sync_calendar"`
}

// PostSync handles POST /api/sync. Partial failures still return the phase
// counts; the caller must inspect the errors list.
func (h *Handler) PostSync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	opts := statussync.DefaultOptions()
	opts.ForceRefresh = req.ForceRefresh
	opts.UserIDs = req.UserIDs
	if req.SyncAttendance != nil {
		opts.Attendance = *req.SyncAttendance
	}
	if req.SyncCalendar != nil {
		opts.Calendar = *req.SyncCalendar
	}

	result, err := h.sync.SyncAll(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusMultiStatus, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetConsistency handles GET /api/consistency, the read-only diagnostic.
func (h *Handler) GetConsistency(c *gin.Context) {
	report, err := h.sync.ValidateConsistency(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
