package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"turnstile/internal/models"
	"turnstile/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueueRouter(maxConcurrentBuyers int) *gin.Engine {
	gin.SetMode(gin.TestMode)

	ctrl := queue.NewController(queue.Config{
		MaxConcurrentBuyers: maxConcurrentBuyers,
		AdmissionTTL:        10 * time.Minute,
		TickInterval:        time.Second,
	}, nil, nil)

	h := NewHandlers(nil, ctrl, nil)

	r := gin.New()
	api := r.Group("/api")
	queueRoutes := api.Group("/queue")
	{
		queueRoutes.POST("/join", h.JoinQueue)
		queueRoutes.GET("/status", h.QueueStatus)
		queueRoutes.PATCH("/leave", h.LeaveQueue)
	}
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJoinQueue(t *testing.T) {
	r := setupQueueRouter(1)

	w := doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "alice"})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.JoinQueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.EventID)
	assert.Equal(t, int64(1), resp.JoinSequence)
	assert.Equal(t, 0, resp.Position)

	// Second client lands behind the full window
	w = doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "bob"})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Position)
}

func TestJoinQueueDuplicate(t *testing.T) {
	r := setupQueueRouter(1)

	w := doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "alice"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJoinQueueValidation(t *testing.T) {
	r := setupQueueRouter(1)

	w := doJSON(r, "POST", "/api/queue/join", map[string]interface{}{"event_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueStatus(t *testing.T) {
	r := setupQueueRouter(1)

	doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "alice"})
	doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "bob"})

	w := doJSON(r, "GET", "/api/queue/status?eventId=1&clientId=alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status models.QueueStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.QueueAdmitted, status.State)
	assert.NotNil(t, status.AdmissionDeadline)

	w = doJSON(r, "GET", "/api/queue/status?eventId=1&clientId=bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.QueueWaiting, status.State)
	assert.Equal(t, 1, status.Position)
}

func TestQueueStatusNotFound(t *testing.T) {
	r := setupQueueRouter(1)

	w := doJSON(r, "GET", "/api/queue/status?eventId=1&clientId=nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueStatusValidation(t *testing.T) {
	r := setupQueueRouter(1)

	w := doJSON(r, "GET", "/api/queue/status?clientId=alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "GET", "/api/queue/status?eventId=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveQueuePromotesNextClient(t *testing.T) {
	r := setupQueueRouter(1)

	doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "alice"})
	doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: 1, ClientID: "bob"})

	w := doJSON(r, "PATCH", "/api/queue/leave", models.LeaveQueueRequest{EventID: 1, ClientID: "alice"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "GET", "/api/queue/status?eventId=1&clientId=bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var status models.QueueStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.QueueAdmitted, status.State)

	// Alice is gone
	w = doJSON(r, "GET", "/api/queue/status?eventId=1&clientId=alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaveQueueNotFound(t *testing.T) {
	r := setupQueueRouter(1)

	w := doJSON(r, "PATCH", "/api/queue/leave", models.LeaveQueueRequest{EventID: 1, ClientID: "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueuesAreIndependentPerEvent(t *testing.T) {
	r := setupQueueRouter(1)

	for event := 1; event <= 3; event++ {
		w := doJSON(r, "POST", "/api/queue/join", models.JoinQueueRequest{EventID: int64(event), ClientID: "alice"})
		assert.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(r, "GET", fmt.Sprintf("/api/queue/status?eventId=%d&clientId=alice", event), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var status models.QueueStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, models.QueueAdmitted, status.State)
	}
}
