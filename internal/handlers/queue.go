package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// JoinQueue - POST /api/queue/join
func (h *Handlers) JoinQueue(c *gin.Context) {
	var req models.JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, position, err := h.queueCtrl.Join(req.EventID, req.ClientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyQueued) {
			c.JSON(http.StatusConflict, gin.H{"error": "already queued for this event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join queue"})
		return
	}

	c.JSON(http.StatusCreated, models.JoinQueueResponse{
		EventID:      req.EventID,
		JoinSequence: entry.JoinSequence,
		Position:     position,
	})
}

// QueueStatus - GET /api/queue/status?eventId=&clientId=
// Reconnecting clients resynchronize here instead of replaying missed
// pushes.
func (h *Handlers) QueueStatus(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Query("eventId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid eventId"})
		return
	}
	clientID := c.Query("clientId")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clientId is required"})
		return
	}

	status, err := h.queueCtrl.Status(eventID, clientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotQueued) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no queue entry for this client"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get queue status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// LeaveQueue - PATCH /api/queue/leave
func (h *Handlers) LeaveQueue(c *gin.Context) {
	var req models.LeaveQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.queueCtrl.Leave(req.EventID, req.ClientID); err != nil {
		if errors.Is(err, apperrors.ErrNotQueued) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no queue entry for this client"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}
