package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TicketingClient talks to the ticket issuance collaborator. The collaborator
// is idempotent on the reservation token: retrying issuance for the same
// token returns the same ticket identifiers.
type TicketingClient struct {
	baseURL    string
	httpClient *http.Client
}

type TicketingConfig struct {
	BaseURL string
	Timeout time.Duration
}

type issueTicketsRequest struct {
	IdempotencyToken string `json:"idempotency_token"`
	Quantity         int    `json:"quantity"`
}

type issueTicketsResponse struct {
	TicketIDs []string `json:"ticket_ids"`
}

func NewTicketingClient(cfg TicketingConfig) *TicketingClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &TicketingClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IssueTickets requests ticket identifiers for a pending reservation.
func (tc *TicketingClient) IssueTickets(ctx context.Context, token string, quantity int) ([]string, error) {
	payload, err := json.Marshal(issueTicketsRequest{
		IdempotencyToken: token,
		Quantity:         quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseURL+"/api/v1/tickets/issue", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build issue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tickets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code from ticketing service: %d", resp.StatusCode)
	}

	var result issueTicketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode issue response: %w", err)
	}

	if len(result.TicketIDs) != quantity {
		return nil, fmt.Errorf("ticketing service returned %d tickets, expected %d", len(result.TicketIDs), quantity)
	}

	return result.TicketIDs, nil
}
