package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLedger is an in-memory LedgerStore with the same conditional semantics
// as the SQL implementation: the stock change and the record change happen
// under one lock, and every mutation is guarded by a state or quantity check.
type memLedger struct {
	mu         sync.Mutex
	categories map[string]*models.EventCategory
	records    map[string]*models.ReservationRecord
}

func newMemLedger() *memLedger {
	return &memLedger{
		categories: make(map[string]*models.EventCategory),
		records:    make(map[string]*models.ReservationRecord),
	}
}

func catKey(eventID int64, category string) string {
	return fmt.Sprintf("%d/%s", eventID, category)
}

func (m *memLedger) addCategory(eventID int64, category string, price int64, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[catKey(eventID, category)] = &models.EventCategory{
		EventID:       eventID,
		Category:      category,
		UnitPrice:     price,
		TotalCapacity: capacity,
		Remaining:     capacity,
	}
}

func (m *memLedger) remaining(eventID int64, category string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories[catKey(eventID, category)].Remaining
}

func (m *memLedger) Reserve(_ context.Context, rec *models.ReservationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.Token]; ok {
		return apperrors.ErrAlreadyReserved
	}
	cat, ok := m.categories[catKey(rec.EventID, rec.Category)]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if cat.Remaining < rec.Quantity {
		return apperrors.ErrInsufficientStock
	}

	cat.Remaining -= rec.Quantity
	stored := *rec
	m.records[rec.Token] = &stored
	return nil
}

func (m *memLedger) Confirm(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[token]
	if !ok {
		return apperrors.ErrNotFound
	}
	if rec.State != models.ReservationPending {
		return apperrors.ErrConflict
	}
	rec.State = models.ReservationConfirmed
	return nil
}

func (m *memLedger) Release(_ context.Context, token, next string) (*models.ReservationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if rec.State != models.ReservationPending {
		return nil, apperrors.ErrAlreadyTerminal
	}
	rec.State = next
	m.categories[catKey(rec.EventID, rec.Category)].Remaining += rec.Quantity
	out := *rec
	return &out, nil
}

func (m *memLedger) Get(_ context.Context, token string) (*models.ReservationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[token]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

func (m *memLedger) GetCategory(_ context.Context, eventID int64, category string) (*models.EventCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.categories[catKey(eventID, category)]
	if !ok {
		return nil, nil
	}
	out := *cat
	return &out, nil
}

func (m *memLedger) ListCategories(_ context.Context, eventID int64) ([]models.EventCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.EventCategory
	for _, cat := range m.categories {
		if cat.EventID == eventID {
			out = append(out, *cat)
		}
	}
	return out, nil
}

func (m *memLedger) AdjustCapacity(_ context.Context, eventID int64, category string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.categories[catKey(eventID, category)]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if delta < 0 && cat.Remaining < -delta {
		return apperrors.ErrInsufficientStock
	}
	cat.TotalCapacity += delta
	cat.Remaining += delta
	return nil
}

// recordingPublisher captures published subjects
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

func TestReserveDecrementsStock(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	rec, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 3, "token-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, rec.State)
	assert.Equal(t, 7, store.remaining(1, "VIP"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), rec.ExpiresAt, time.Minute)
}

func TestReserveReplayDoesNotDoubleDecrement(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	first, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 3, "token-1")
	require.NoError(t, err)

	second, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 3, "token-1")
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, 7, store.remaining(1, "VIP"))
}

func TestReserveInsufficientStock(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 2)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 3, "token-1")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 2, store.remaining(1, "VIP"))
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "GA", 1000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	const attempts = 50
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), 1, "GA", fmt.Sprintf("client-%d", i), 1, fmt.Sprintf("token-%d", i))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, soldOut := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrInsufficientStock):
			soldOut++
		default:
			t.Errorf("unexpected reserve error: %v", err)
		}
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 40, soldOut)
	assert.Equal(t, 0, store.remaining(1, "GA"))
}

func TestReleaseRestoresStockExactlyOnce(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 4, "token-1")
	require.NoError(t, err)
	require.Equal(t, 6, store.remaining(1, "VIP"))

	require.NoError(t, svc.Release(context.Background(), "token-1", "client cancelled"))
	assert.Equal(t, 10, store.remaining(1, "VIP"))

	// A second release must not restore stock again
	err = svc.Release(context.Background(), "token-1", "client cancelled")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
	assert.Equal(t, 10, store.remaining(1, "VIP"))
}

func TestReleaseUnknownToken(t *testing.T) {
	store := newMemLedger()
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	err := svc.Release(context.Background(), "no-such-token", "cleanup")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 2, "token-1")
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), "token-1"))
	require.NoError(t, svc.Confirm(context.Background(), "token-1"))

	// Confirmed stock stays sold
	err = svc.Release(context.Background(), "token-1", "late cancel")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
	assert.Equal(t, 8, store.remaining(1, "VIP"))
}

func TestConfirmAfterExpiryFails(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 2, "token-1")
	require.NoError(t, err)

	require.NoError(t, svc.Expire(context.Background(), "token-1"))
	assert.Equal(t, 10, store.remaining(1, "VIP"))

	err = svc.Confirm(context.Background(), "token-1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
}

func TestReservationLifecycleEvents(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	pub := &recordingPublisher{}
	svc := NewInventoryService(store, pub, nil, 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 1, "token-1")
	require.NoError(t, err)
	require.NoError(t, svc.Release(context.Background(), "token-1", "client cancelled"))

	_, err = svc.Reserve(context.Background(), 1, "VIP", "bob", 1, "token-2")
	require.NoError(t, err)
	require.NoError(t, svc.Expire(context.Background(), "token-2"))

	assert.Equal(t, []string{
		models.EventReservationCreated,
		models.EventReservationReleased,
		models.EventReservationCreated,
		models.EventReservationExpired,
	}, pub.published())
}

func TestAdjustCapacity(t *testing.T) {
	store := newMemLedger()
	store.addCategory(1, "VIP", 5000, 10)
	svc := NewInventoryService(store, nil, nil, 10*time.Minute)

	require.NoError(t, svc.AdjustCapacity(context.Background(), 1, "VIP", 5))
	assert.Equal(t, 15, store.remaining(1, "VIP"))

	// Shrinking below held stock is refused
	_, err := svc.Reserve(context.Background(), 1, "VIP", "alice", 12, "token-1")
	require.NoError(t, err)
	err = svc.AdjustCapacity(context.Background(), 1, "VIP", -5)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}
