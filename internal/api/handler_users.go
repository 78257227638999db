package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetUsers handles the GET /api/users request.
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
