package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// Purchase - POST /api/purchase
// Only admitted clients get through; everything else maps to a typed
// rejection the storefront can act on.
func (h *Handlers) Purchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Bookings.Purchase(c.Request.Context(), &req)
	if err != nil {
		h.rejectPurchase(c, &req, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handlers) rejectPurchase(c *gin.Context, req *models.PurchaseRequest, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotAdmitted):
		c.JSON(http.StatusForbidden, models.RejectionResponse{
			Error:  "client is not admitted to the purchase window",
			Reason: models.RejectNotAdmitted,
		})
	case errors.Is(err, apperrors.ErrInsufficientStock):
		c.JSON(http.StatusConflict, models.RejectionResponse{
			Error:  "not enough tickets remaining in this category",
			Reason: models.RejectSoldOut,
		})
	case errors.Is(err, apperrors.ErrReservationExpired):
		c.JSON(http.StatusConflict, models.RejectionResponse{
			Error:  "previous reservation expired, rejoin the queue",
			Reason: models.RejectReservationExpired,
		})
	case errors.Is(err, apperrors.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event or category"})
	case errors.Is(err, apperrors.ErrDownstream):
		slog.Error("Purchase failed downstream",
			"error", err,
			"client_id", req.ClientID,
			"event_id", req.EventID)
		c.JSON(http.StatusBadGateway, models.RejectionResponse{
			Error:  "ticket issuance is temporarily unavailable, retry the purchase",
			Reason: models.RejectDownstreamFailure,
		})
	default:
		slog.Error("Purchase failed",
			"error", err,
			"client_id", req.ClientID,
			"event_id", req.EventID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete purchase"})
	}
}
