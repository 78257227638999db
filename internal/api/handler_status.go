package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"staff-status-backend/internal/manager"
	"staff-status-backend/internal/model"
)

// GetStatuses handles GET /api/statuses with optional filters:
// user_ids (comma-separated), statuses (comma-separated), include_details.
func (h *Handler) GetStatuses(c *gin.Context) {
	var q manager.Query

	if raw := c.Query("user_ids"); raw != "" {
		q.UserIDs = strings.Split(raw, ",")
	}
	if raw := c.Query("statuses"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := model.StatusType(s)
			if !st.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status type: " + s})
				return
			}
			q.StatusTypes = append(q.StatusTypes, st)
		}
	}
	q.IncludeDetails = c.Query("include_details") == "true"

	statuses, err := h.manager.QueryStatuses(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// GetUserStatus handles GET /api/users/:user_id/status.
func (h *Handler) GetUserStatus(c *gin.Context) {
	status, err := h.store.GetStatus(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type updateStatusRequest struct {
	Status          model.StatusType `json:"status" binding:"required"`
	Detail          string           `json:"detail"`
	StartTime       *time.Time       `json:"start_time"`
	EndTime         *time.Time       `json:"end_time"`
	DurationMinutes int              `json:"duration_minutes"`
}

// PutUserStatus handles PUT /api/users/:user_id/status, the manual override
// path.
func (h *Handler) PutUserStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.manager.UpdateStatus(c.Request.Context(), manager.UpdateRequest{
		UserID:          c.Param("user_id"),
		Status:          req.Status,
		Detail:          req.Detail,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RefreshUserStatus handles POST /api/users/:user_id/status/refresh.
func (h *Handler) RefreshUserStatus(c *gin.Context) {
	status, err := h.manager.RefreshStatus(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// DeleteTimeSlot handles DELETE /api/users/:user_id/slots/:slot_id.
func (h *Handler) DeleteTimeSlot(c *gin.Context) {
	status, err := h.manager.RemoveTimeSlot(c.Request.Context(), c.Param("user_id"), c.Param("slot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetStatusHistory handles GET /api/users/:user_id/history?days=N.
func (h *Handler) GetStatusHistory(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	entries, err := h.manager.StatusHistory(c.Request.Context(), c.Param("user_id"), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
