package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// AdjustCapacity - PATCH /api/admin/categories/adjust
// Externally authorized capacity changes; routed through the ledger so they
// never race the purchase path.
func (h *Handlers) AdjustCapacity(c *gin.Context) {
	var req models.AdjustCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.services.Inventory.AdjustCapacity(c.Request.Context(), req.EventID, req.Category, req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown event or category"})
		case errors.Is(err, apperrors.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": "cannot shrink capacity below sold or held stock"})
		default:
			slog.Error("Failed to adjust capacity",
				"error", err,
				"event_id", req.EventID,
				"category", req.Category)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to adjust capacity"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "adjusted"})
}
