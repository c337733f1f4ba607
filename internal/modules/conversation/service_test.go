// README: Conversation Engine tests: idempotent create, lazy expiry, read receipts, close, sweep.
package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"charterhub/internal/apperr"
	"charterhub/internal/types"
)

var t0 = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *memStore
	rec   *recorder
	clock *types.Clock
}

func newFixture() *fixture {
	store := newMemStore()
	rec := newRecorder()
	clock := types.FixedClock(t0)
	charter := types.ID("c_bruno")
	store.addMatch("m_ok", "u_ana", &charter, "accepted")
	store.addMatch("m_pending", "u_ana", &charter, "pending")
	store.addMatch("m_nocharter", "u_ana", nil, "accepted")
	return &fixture{
		svc:   NewService(store, rec, clock, DefaultTTL, zap.NewNop()),
		store: store,
		rec:   rec,
		clock: clock,
	}
}

func (f *fixture) open(t *testing.T) *Conversation {
	t.Helper()
	c, err := f.svc.Create(context.Background(), "m_ok")
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreate_ExpiresFiveHoursOut(t *testing.T) {
	f := newFixture()
	c := f.open(t)

	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, types.ID("u_ana"), c.UserID)
	assert.Equal(t, types.ID("c_bruno"), c.CharterID)
	assert.True(t, c.ExpiresAt.Equal(t0.Add(5*time.Hour)))
	assert.Len(t, f.rec.opened["u_ana"], 1)
	assert.Len(t, f.rec.opened["c_bruno"], 1)
}

func TestCreate_Idempotent(t *testing.T) {
	f := newFixture()
	first := f.open(t)
	second := f.open(t)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.rec.opened["u_ana"], 1, "second call must not re-notify")
}

func TestCreate_ConcurrentCallsConverge(t *testing.T) {
	f := newFixture()
	const n = 16
	ids := make(chan types.ID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := f.svc.Create(context.Background(), "m_ok")
			if err == nil {
				ids <- c.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[types.ID]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}

func TestCreate_Preconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "m_pending")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Contains(t, err.Error(), "pending")

	_, err = f.svc.Create(ctx, "m_nocharter")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = f.svc.Create(ctx, "m_missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// ---------------------------------------------------------------------------
// SendMessage
// ---------------------------------------------------------------------------

func TestSendMessage_BroadcastsToRoom(t *testing.T) {
	f := newFixture()
	c := f.open(t)

	m, err := f.svc.SendMessage(context.Background(), c.ID, "u_ana", "  ¿A qué hora llegás?  ")
	require.NoError(t, err)
	assert.Equal(t, "¿A qué hora llegás?", m.Content)
	assert.Len(t, f.rec.messages[c.ID], 1)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, c.ID, "u_ana", "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.SendMessage(ctx, c.ID, "u_ana", strings.Repeat("ñ", MaxMessageLength+1))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.SendMessage(ctx, c.ID, "u_ana", strings.Repeat("ñ", MaxMessageLength))
	assert.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, c.ID, "intruder", "hola")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestSendMessage_AfterExpiryFlipsStatus(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	f.clock.Advance(5*time.Hour + time.Second)
	_, err := f.svc.SendMessage(ctx, c.ID, "c_bruno", "¿Seguimos?")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Contains(t, err.Error(), "expired")

	got, err := f.store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, []types.ID{c.ID}, f.rec.expired)
	assert.Empty(t, f.rec.messages[c.ID])
}

func TestSendMessage_AtExactExpiryIsRejected(t *testing.T) {
	f := newFixture()
	c := f.open(t)

	f.clock.Advance(5 * time.Hour)
	_, err := f.svc.SendMessage(context.Background(), c.ID, "u_ana", "hola")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestSendMessage_ClosedConversation(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	_, err := f.svc.Close(ctx, c.ID, "u_ana")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, c.ID, "c_bruno", "hola")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Contains(t, err.Error(), "closed")
}

// ---------------------------------------------------------------------------
// GetMessages / read receipts
// ---------------------------------------------------------------------------

func TestGetMessages_MarksCounterpartRead(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, c.ID, "c_bruno", "Llego 10:30")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.SendMessage(ctx, c.ID, "u_ana", "Perfecto")
	require.NoError(t, err)

	msgs, err := f.svc.GetMessages(ctx, c.ID, "u_ana")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Llego 10:30", msgs[0].Content)

	require.Len(t, f.rec.reads, 1)
	assert.Equal(t, int64(1), f.rec.reads[0].Count)

	// second read flips nothing and pushes nothing
	_, err = f.svc.GetMessages(ctx, c.ID, "u_ana")
	require.NoError(t, err)
	assert.Len(t, f.rec.reads, 1)
}

func TestGetMessages_ReadReceiptFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()
	_, err := f.svc.SendMessage(ctx, c.ID, "c_bruno", "hola")
	require.NoError(t, err)

	f.store.markReadErr = errBoom
	msgs, err := f.svc.GetMessages(ctx, c.ID, "u_ana")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Empty(t, f.rec.reads)
}

func TestGetMessages_MembersOnly(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	_, err := f.svc.GetMessages(context.Background(), c.ID, "intruder")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

// ---------------------------------------------------------------------------
// Close / Archive / ListForUser / CanJoin
// ---------------------------------------------------------------------------

func TestClose(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	closed, err := f.svc.Close(ctx, c.ID, "c_bruno")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, types.ID("c_bruno"), *closed.ClosedBy)
	assert.Equal(t, []types.ID{c.ID}, f.rec.closed)

	_, err = f.svc.Close(ctx, c.ID, "u_ana")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = f.svc.Close(ctx, c.ID, "intruder")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestArchive(t *testing.T) {
	f := newFixture()
	c := f.open(t)

	require.NoError(t, f.svc.Archive(context.Background(), c.ID))
	got, _ := f.store.Get(context.Background(), c.ID)
	assert.True(t, got.IsArchived)

	err := f.svc.Archive(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListForUser(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()
	_, err := f.svc.SendMessage(ctx, c.ID, "c_bruno", "hola")
	require.NoError(t, err)

	list, err := f.svc.ListForUser(ctx, "u_ana")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "hola", list[0].LastMessage.Content)

	f.clock.Advance(6 * time.Hour)
	list, err = f.svc.ListForUser(ctx, "u_ana")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCanJoin(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	ok, err := f.svc.CanJoin(ctx, c.ID, "u_ana")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.CanJoin(ctx, c.ID, "intruder")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.CanJoin(ctx, "missing", "u_ana")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Sweep
// ---------------------------------------------------------------------------

func TestSweep_ExpiresThenDeletesUnarchived(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	charter := types.ID("c_bruno")
	f.store.addMatch("m_archived", "u_ana", &charter, "accepted")

	plain := f.open(t)
	kept, err := f.svc.Create(ctx, "m_archived")
	require.NoError(t, err)
	require.NoError(t, f.svc.Archive(ctx, kept.ID))
	_, err = f.svc.SendMessage(ctx, plain.ID, "u_ana", "hola")
	require.NoError(t, err)

	// nothing due yet
	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)

	f.clock.Advance(5*time.Hour + time.Minute)
	res, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Expired: 1, Deleted: 1}, res)
	assert.Equal(t, []types.ID{plain.ID}, f.rec.expired)

	_, err = f.store.Get(ctx, plain.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	msgs, _ := f.store.ListMessages(ctx, plain.ID)
	assert.Empty(t, msgs)

	got, err := f.store.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status, "archived conversations are never swept")
}

func TestSweep_DeletesRowsLeftExpiredByEarlierRun(t *testing.T) {
	f := newFixture()
	c := f.open(t)
	ctx := context.Background()

	f.clock.Advance(6 * time.Hour)
	_, err := f.svc.SendMessage(ctx, c.ID, "u_ana", "hola")
	require.Error(t, err) // lazily expired, not yet deleted

	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Expired: 0, Deleted: 1}, res)
}

func TestExpiryInstant_LazyPathAndSweepAgree(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	charter := types.ID("c_bruno")
	f.store.addMatch("m_other", "u_ana", &charter, "accepted")

	lazy := f.open(t)
	swept, err := f.svc.Create(ctx, "m_other")
	require.NoError(t, err)

	f.clock.Advance(DefaultTTL)

	_, err = f.svc.SendMessage(ctx, lazy.ID, "u_ana", "hola")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Expired: 1, Deleted: 2}, res)
	assert.Equal(t, []types.ID{swept.ID}, f.rec.expired[len(f.rec.expired)-1:])
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
