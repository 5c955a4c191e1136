package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/logger"
	"turnstile/internal/models"

	"github.com/google/uuid"
)

// tokenNamespace seeds the deterministic idempotency token derivation.
var tokenNamespace = uuid.MustParse("a6c2f0d4-7b7e-4f43-9c71-28f1c1f0b9ad")

// DeriveToken maps (clientID, eventID, category) to a stable UUID so retried
// purchase submissions collapse onto one reservation instead of holding
// stock twice.
func DeriveToken(clientID string, eventID int64, category string) string {
	name := fmt.Sprintf("%s|%d|%s", clientID, eventID, category)
	return uuid.NewSHA1(tokenNamespace, []byte(name)).String()
}

type inventoryLedger interface {
	Reserve(ctx context.Context, eventID int64, category, clientID string, quantity int, token string) (*models.ReservationRecord, error)
	Confirm(ctx context.Context, token string) error
	Release(ctx context.Context, token, reason string) error
	GetCategory(ctx context.Context, eventID int64, category string) (*models.EventCategory, error)
}

type admissionGate interface {
	IsAdmitted(eventID int64, clientID string) bool
	Complete(eventID int64, clientID string) error
}

type ticketIssuer interface {
	IssueTickets(ctx context.Context, token string, quantity int) ([]string, error)
}

type confirmationSender interface {
	SendConfirmation(ctx context.Context, clientID string, summary models.BookingSummary) error
}

type eventReader interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

// BookingService sequences queue admission, inventory reservation and ticket
// issuance into one client-facing purchase. It owns no state of its own and
// is safe to retry: the same request derives the same idempotency token, so
// partial failures never double-book.
type BookingService struct {
	ledger   inventoryLedger
	gate     admissionGate
	issuer   ticketIssuer
	receipts confirmationSender
	events   eventReader
	nats     eventPublisher

	downstreamTimeout time.Duration
}

func NewBookingService(ledger inventoryLedger, gate admissionGate, issuer ticketIssuer, receipts confirmationSender, events eventReader, nats eventPublisher, downstreamTimeout time.Duration) *BookingService {
	if downstreamTimeout == 0 {
		downstreamTimeout = 30 * time.Second
	}
	return &BookingService{
		ledger:            ledger,
		gate:              gate,
		issuer:            issuer,
		receipts:          receipts,
		events:            events,
		nats:              nats,
		downstreamTimeout: downstreamTimeout,
	}
}

// Purchase buys req.Quantity tickets for an admitted client. Every failure
// surfaces as a typed error so the caller can decide whether to retry; the
// orchestrator itself never retries silently.
func (s *BookingService) Purchase(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseResponse, error) {
	if !s.gate.IsAdmitted(req.EventID, req.ClientID) {
		return nil, apperrors.ErrNotAdmitted
	}

	category, err := s.ledger.GetCategory(ctx, req.EventID, req.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return nil, apperrors.ErrEventNotFound
	}

	token := DeriveToken(req.ClientID, req.EventID, req.Category)

	rec, err := s.ledger.Reserve(ctx, req.EventID, req.Category, req.ClientID, req.Quantity, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientStock) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve failed: %w", err)
	}

	switch rec.State {
	case models.ReservationPending:
		// Fresh hold or a replay that never finished; continue below
	case models.ReservationConfirmed:
		// Retried call after a completed purchase: re-issue through the
		// idempotent collaborator to recover the same ticket IDs
		return s.replayConfirmed(ctx, req, rec, category)
	default:
		// The previous attempt's hold was released or timed out; the
		// client has to start over
		return nil, apperrors.ErrReservationExpired
	}

	downstreamCtx, cancel := context.WithTimeout(ctx, s.downstreamTimeout)
	defer cancel()

	ticketIDs, err := s.issuer.IssueTickets(downstreamCtx, token, rec.Quantity)
	if err != nil {
		s.rollback(ctx, token, "ticket issuance failed")
		return nil, fmt.Errorf("%w: ticket issuance: %v", apperrors.ErrDownstream, err)
	}

	summary := s.buildSummary(ctx, req, rec, category, ticketIDs)

	if err := s.receipts.SendConfirmation(downstreamCtx, req.ClientID, summary); err != nil {
		s.rollback(ctx, token, "confirmation delivery failed")
		return nil, fmt.Errorf("%w: confirmation delivery: %v", apperrors.ErrDownstream, err)
	}

	if err := s.ledger.Confirm(ctx, token); err != nil {
		// The expiry sweep may have released the hold while downstream
		// calls were in flight; anything else is infrastructure trouble
		// with the hold still pending, so the same request can be retried
		if errors.Is(err, apperrors.ErrAlreadyTerminal) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrReservationExpired
		}
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}

	if err := s.gate.Complete(req.EventID, req.ClientID); err != nil {
		logger.WithContext(ctx).Warn("Queue entry was not admitted at completion",
			"error", err,
			"client_id", req.ClientID,
			"event_id", req.EventID)
	}

	s.publishConfirmed(ctx, rec, summary)

	return &models.PurchaseResponse{
		ReservationToken: token,
		TicketIDs:        ticketIDs,
		TotalPrice:       summary.TotalPrice,
	}, nil
}

// replayConfirmed serves a retried purchase whose reservation already
// confirmed. The issuance collaborator is idempotent on the token, so this
// returns the original tickets.
func (s *BookingService) replayConfirmed(ctx context.Context, req *models.PurchaseRequest, rec *models.ReservationRecord, category *models.EventCategory) (*models.PurchaseResponse, error) {
	downstreamCtx, cancel := context.WithTimeout(ctx, s.downstreamTimeout)
	defer cancel()

	ticketIDs, err := s.issuer.IssueTickets(downstreamCtx, rec.Token, rec.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: ticket issuance replay: %v", apperrors.ErrDownstream, err)
	}

	return &models.PurchaseResponse{
		ReservationToken: rec.Token,
		TicketIDs:        ticketIDs,
		TotalPrice:       category.UnitPrice * int64(rec.Quantity),
	}, nil
}

func (s *BookingService) rollback(ctx context.Context, token, reason string) {
	if err := s.ledger.Release(ctx, token, reason); err != nil {
		// Terminal records are fine here: the hold was already resolved
		if !errors.Is(err, apperrors.ErrAlreadyTerminal) && !errors.Is(err, apperrors.ErrNotFound) {
			logger.WithContext(ctx).Error("Failed to release reservation after downstream failure",
				"error", err,
				"token", token)
		}
	}
}

func (s *BookingService) buildSummary(ctx context.Context, req *models.PurchaseRequest, rec *models.ReservationRecord, category *models.EventCategory, ticketIDs []string) models.BookingSummary {
	title := ""
	if s.events != nil {
		if event, err := s.events.GetByID(ctx, req.EventID); err == nil && event != nil {
			title = event.Title
		}
	}

	return models.BookingSummary{
		ReservationToken: rec.Token,
		EventID:          req.EventID,
		EventTitle:       title,
		Category:         rec.Category,
		Quantity:         rec.Quantity,
		TotalPrice:       category.UnitPrice * int64(rec.Quantity),
		TicketIDs:        ticketIDs,
		PurchasedAt:      time.Now(),
	}
}

func (s *BookingService) publishConfirmed(ctx context.Context, rec *models.ReservationRecord, summary models.BookingSummary) {
	if s.nats == nil {
		return
	}
	event := models.ReservationConfirmedEvent{
		Token:      rec.Token,
		EventID:    rec.EventID,
		EventTitle: summary.EventTitle,
		Category:   rec.Category,
		ClientID:   rec.ClientID,
		Quantity:   rec.Quantity,
		TotalPrice: summary.TotalPrice,
		TicketIDs:  summary.TicketIDs,
		Timestamp:  time.Now(),
	}
	if err := s.nats.Publish(models.EventReservationConfirmed, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish reservation confirmed event",
			"error", err,
			"token", rec.Token,
			"event_type", models.EventReservationConfirmed)
	}
}
