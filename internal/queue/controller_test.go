package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
	"turnstile/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingChannel captures pushes for assertions
type recordingChannel struct {
	mu     sync.Mutex
	pushes map[string][]notify.Notification
}

func newRecordingChannel() *recordingChannel {
	return &recordingChannel{pushes: make(map[string][]notify.Notification)}
}

func (r *recordingChannel) Push(clientID string, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes[clientID] = append(r.pushes[clientID], n)
}

func (r *recordingChannel) forClient(clientID string) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.pushes[clientID]...)
}

func testConfig() Config {
	return Config{
		MaxConcurrentBuyers: 2,
		AdmissionTTL:        10 * time.Minute,
		TickInterval:        time.Second,
	}
}

func TestJoinAdmitsUpToWindowBound(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	entryA, posA, err := c.Join(1, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.QueueAdmitted, entryA.State)
	assert.Equal(t, 0, posA)
	assert.NotNil(t, entryA.AdmissionDeadline)

	entryB, posB, err := c.Join(1, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.QueueAdmitted, entryB.State)
	assert.Equal(t, 0, posB)

	// Window is full, third client waits at the front of the line
	entryC, posC, err := c.Join(1, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.QueueWaiting, entryC.State)
	assert.Equal(t, 1, posC)

	assert.True(t, c.IsAdmitted(1, "alice"))
	assert.True(t, c.IsAdmitted(1, "bob"))
	assert.False(t, c.IsAdmitted(1, "carol"))
}

func TestJoinSequenceIsMonotonic(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	var lastSeq int64
	for i := 0; i < 10; i++ {
		entry, _, err := c.Join(1, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
		assert.Greater(t, entry.JoinSequence, lastSeq)
		lastSeq = entry.JoinSequence
	}
}

func TestDuplicateJoinRejected(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	_, _, err := c.Join(1, "alice")
	require.NoError(t, err)

	_, _, err = c.Join(1, "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyQueued)

	// Other events are independent queues
	_, _, err = c.Join(2, "alice")
	assert.NoError(t, err)
}

func TestCompleteFreesSlotForNextWaiter(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	c.Join(1, "alice")
	c.Join(1, "bob")
	c.Join(1, "carol")

	err := c.Complete(1, "alice")
	require.NoError(t, err)

	// Carol moves into the freed slot in FIFO order
	assert.True(t, c.IsAdmitted(1, "carol"))

	// Completed entries are gone
	_, err = c.Status(1, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotQueued)
}

func TestCompleteRequiresAdmission(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	c.Join(1, "alice")
	c.Join(1, "bob")
	c.Join(1, "carol")

	// Carol is still waiting
	err := c.Complete(1, "carol")
	assert.ErrorIs(t, err, apperrors.ErrNotAdmitted)

	// Unknown client
	err = c.Complete(1, "mallory")
	assert.ErrorIs(t, err, apperrors.ErrNotAdmitted)
}

func TestLeaveRecomputesPositions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 1
	c := NewController(cfg, nil, nil)

	c.Join(1, "alice") // admitted
	c.Join(1, "bob")   // position 1
	c.Join(1, "carol") // position 2
	c.Join(1, "dave")  // position 3

	require.NoError(t, c.Leave(1, "carol"))

	status, err := c.Status(1, "dave")
	require.NoError(t, err)
	assert.Equal(t, models.QueueWaiting, status.State)
	assert.Equal(t, 2, status.Position)

	status, err = c.Status(1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Position)
}

func TestLeaveAdmittedFreesSlot(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 1
	c := NewController(cfg, nil, nil)

	c.Join(1, "alice")
	c.Join(1, "bob")

	require.NoError(t, c.Leave(1, "alice"))

	assert.True(t, c.IsAdmitted(1, "bob"))
}

func TestLeaveUnknownClient(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	err := c.Leave(1, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotQueued)
}

func TestStatusReportsDeadlineForAdmitted(t *testing.T) {
	c := NewController(testConfig(), nil, nil)

	c.Join(1, "alice")

	status, err := c.Status(1, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.QueueAdmitted, status.State)
	assert.Equal(t, 0, status.Position)
	require.NotNil(t, status.AdmissionDeadline)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *status.AdmissionDeadline, time.Minute)

	_, err = c.Status(1, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotQueued)
}

func TestDeadlineSweepAbandonsAndReadmits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 1
	cfg.AdmissionTTL = 5 * time.Minute
	c := NewController(cfg, nil, nil)

	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Join(1, "alice")
	c.Join(1, "bob")

	// Inside the TTL nothing changes
	current = current.Add(4 * time.Minute)
	c.Tick()
	assert.True(t, c.IsAdmitted(1, "alice"))
	assert.False(t, c.IsAdmitted(1, "bob"))

	// Past the deadline alice is abandoned and bob takes the slot
	current = current.Add(2 * time.Minute)
	c.Tick()

	_, err := c.Status(1, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotQueued)
	assert.True(t, c.IsAdmitted(1, "bob"))
}

func TestWindowBoundHoldsUnderConcurrentJoins(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 3
	c := NewController(cfg, nil, nil)

	const clients = 50
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := c.Join(7, fmt.Sprintf("client-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for i := 0; i < clients; i++ {
		if c.IsAdmitted(7, fmt.Sprintf("client-%d", i)) {
			admitted++
		}
	}
	assert.Equal(t, cfg.MaxConcurrentBuyers, admitted)

	// Positions of waiting clients are a dense 1..N range
	positions := make(map[int]bool)
	for i := 0; i < clients; i++ {
		status, err := c.Status(7, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
		if status.State == models.QueueWaiting {
			assert.False(t, positions[status.Position], "duplicate position %d", status.Position)
			positions[status.Position] = true
		}
	}
	assert.Len(t, positions, clients-cfg.MaxConcurrentBuyers)
	for pos := 1; pos <= clients-cfg.MaxConcurrentBuyers; pos++ {
		assert.True(t, positions[pos], "missing position %d", pos)
	}
}

func TestAdmissionNotification(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 1
	rec := newRecordingChannel()
	c := NewController(cfg, rec, nil)

	c.Join(1, "alice")
	c.Join(1, "bob")

	pushes := rec.forClient("alice")
	require.Len(t, pushes, 1)
	assert.Equal(t, notify.KindAdmitted, pushes[0].Kind)
	assert.NotNil(t, pushes[0].AdmissionDeadline)

	c.Complete(1, "alice")

	pushes = rec.forClient("bob")
	require.NotEmpty(t, pushes)
	assert.Equal(t, notify.KindAdmitted, pushes[len(pushes)-1].Kind)
}

// blockingPublisher stalls in Publish until released, standing in for a slow
// or unreachable streaming server
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (p *blockingPublisher) Publish(string, interface{}) error {
	p.entered <- struct{}{}
	<-p.release
	return nil
}

func TestSlowPublishDoesNotStallQueue(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 1
	pub := newBlockingPublisher()
	c := NewController(cfg, nil, pub)

	joined := make(chan struct{})
	go func() {
		c.Join(1, "alice")
		close(joined)
	}()

	// The admission event is being published; the entry mutation is done
	// and the lock must already be free
	<-pub.entered

	checked := make(chan struct{})
	go func() {
		assert.True(t, c.IsAdmitted(1, "alice"))
		_, _, err := c.Join(1, "bob")
		assert.NoError(t, err)
		status, err := c.Status(1, "bob")
		assert.NoError(t, err)
		assert.Equal(t, 1, status.Position)
		close(checked)
	}()

	select {
	case <-checked:
	case <-time.After(2 * time.Second):
		t.Fatal("queue operations stalled behind a slow publish")
	}

	close(pub.release)
	<-joined
}

func TestStopIsIdempotent(t *testing.T) {
	c := NewController(testConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)

	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
	})
}

func TestPositionPushedAtMostOncePerChange(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentBuyers = 1
	rec := newRecordingChannel()
	c := NewController(cfg, rec, nil)

	c.Join(1, "alice")
	c.Join(1, "bob")
	c.Join(1, "carol")

	// Sweeps with no state change push nothing new to carol
	c.Tick()
	c.Tick()
	before := len(rec.forClient("carol"))

	c.Tick()
	assert.Equal(t, before, len(rec.forClient("carol")))

	// A departure ahead of carol produces exactly one position update
	c.Leave(1, "bob")
	pushes := rec.forClient("carol")
	require.Equal(t, before+1, len(pushes))
	last := pushes[len(pushes)-1]
	assert.Equal(t, notify.KindPositionUpdate, last.Kind)
	assert.Equal(t, 1, last.Position)
}
