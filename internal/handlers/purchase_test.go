package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"turnstile/internal/models"
	"turnstile/internal/queue"
	"turnstile/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPurchaseRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	ctrl := queue.NewController(queue.Config{
		MaxConcurrentBuyers: 1,
		AdmissionTTL:        10 * time.Minute,
		TickInterval:        time.Second,
	}, nil, nil)

	services := &service.Services{
		Bookings: service.NewBookingService(nil, ctrl, nil, nil, nil, nil, time.Second),
	}
	h := NewHandlers(services, ctrl, nil)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/purchase", h.Purchase)
	return r
}

func TestPurchaseRejectsUnadmittedClient(t *testing.T) {
	r := setupPurchaseRouter()

	w := doJSON(r, "POST", "/api/purchase", models.PurchaseRequest{
		ClientID: "alice",
		EventID:  1,
		Category: "VIP",
		Quantity: 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var rejection models.RejectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejection))
	assert.Equal(t, models.RejectNotAdmitted, rejection.Reason)
}

func TestPurchaseValidation(t *testing.T) {
	r := setupPurchaseRouter()

	// Missing category and non-positive quantity
	w := doJSON(r, "POST", "/api/purchase", map[string]interface{}{
		"client_id": "alice",
		"event_id":  1,
		"quantity":  0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
