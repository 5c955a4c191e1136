package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"turnstile/internal/models"
)

// NotificationClient sends booking receipts through the notification
// collaborator. Delivery is best-effort; the caller decides whether a
// failure aborts the purchase.
type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

type NotificationConfig struct {
	BaseURL string
	Timeout time.Duration
}

type sendConfirmationRequest struct {
	ClientID string                `json:"client_id"`
	Booking  models.BookingSummary `json:"booking"`
}

func NewNotificationClient(cfg NotificationConfig) *NotificationClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &NotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendConfirmation delivers a booking receipt to the client.
func (nc *NotificationClient) SendConfirmation(ctx context.Context, clientID string, summary models.BookingSummary) error {
	payload, err := json.Marshal(sendConfirmationRequest{
		ClientID: clientID,
		Booking:  summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, nc.baseURL+"/api/v1/notifications/confirmation", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build confirmation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code from notification service: %d", resp.StatusCode)
	}

	return nil
}
