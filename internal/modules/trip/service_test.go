// README: Settlement tests: handshake order, payout amount, feedback eligibility, concurrent confirms.
package trip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"charterhub/internal/apperr"
	"charterhub/internal/realtime"
	"charterhub/internal/types"
)

// ---------------------------------------------------------------------------
// mock repository
// ---------------------------------------------------------------------------

type mockRepo struct {
	mu        sync.Mutex
	trips     map[types.ID]*Trip
	credits   map[types.ID]types.Credits
	movements []Movement
	feedback  map[[2]types.ID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		trips:    map[types.ID]*Trip{},
		credits:  map[types.ID]types.Credits{},
		feedback: map[[2]types.ID]bool{},
	}
}

func (m *mockRepo) Get(_ context.Context, id types.ID) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, apperr.NotFound("trip")
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) MarkCharterCompleted(_ context.Context, id types.ID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok || t.Status != StatusPending {
		return false, nil
	}
	t.Status = StatusCharterCompleted
	t.CharterCompletedAt = &at
	return true, nil
}

func (m *mockRepo) Settle(_ context.Context, t *Trip, payout *Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.trips[t.ID]
	if cur.Status != StatusCharterCompleted {
		return ErrTripMoved
	}
	cur.Status = StatusCompleted
	cur.CompletedAt = &payout.CreatedAt
	m.credits[payout.UserID] += payout.Delta
	m.movements = append(m.movements, *payout)
	return nil
}

func (m *mockRepo) HasFeedback(_ context.Context, tripID, userID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedback[[2]types.ID{tripID, userID}], nil
}

type recorder struct {
	mu      sync.Mutex
	updates map[types.ID][]realtime.TripUpdate
}

func (r *recorder) NotifyTripUpdate(userID types.ID, u realtime.TripUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[userID] = append(r.updates[userID], u)
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

const (
	ana   types.ID = "u_ana"
	bruno types.ID = "c_bruno"
)

func newFixture() (*Service, *mockRepo, *recorder) {
	repo := newMockRepo()
	repo.credits[ana] = 176
	repo.credits[bruno] = 40
	repo.trips["t1"] = &Trip{
		ID:               "t1",
		MatchID:          "m1",
		UserID:           ana,
		CharterID:        bruno,
		EstimatedCredits: 824,
		Status:           StatusPending,
	}
	rec := &recorder{updates: map[types.ID][]realtime.TripUpdate{}}
	clock := types.FixedClock(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	return NewService(repo, rec, clock, zap.NewNop()), repo, rec
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestSettlement_CreditsCharterExactlyOnce(t *testing.T) {
	svc, repo, rec := newFixture()
	ctx := context.Background()

	tr, err := svc.CharterComplete(ctx, bruno, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusCharterCompleted, tr.Status)
	require.NotNil(t, tr.CharterCompletedAt)

	tr, err = svc.Confirm(ctx, ana, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, tr.Status)

	assert.Equal(t, types.Credits(40+824), repo.credits[bruno])
	assert.Equal(t, types.Credits(176), repo.credits[ana])
	require.Len(t, repo.movements, 1)
	assert.Equal(t, ReasonTripPayout, repo.movements[0].Reason)
	assert.Equal(t, bruno, repo.movements[0].UserID)

	for _, who := range []types.ID{ana, bruno} {
		ups := rec.updates[who]
		require.Len(t, ups, 2)
		assert.Equal(t, "charter_completed", ups[0].Status)
		assert.Equal(t, "completed", ups[1].Status)
	}
}

func TestConfirm_BeforeCharterCompleteIsInvalidState(t *testing.T) {
	svc, repo, _ := newFixture()

	_, err := svc.Confirm(context.Background(), ana, "t1")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, types.Credits(40), repo.credits[bruno])
}

func TestHandshake_Ownership(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.CharterComplete(ctx, ana, "t1")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.CharterComplete(ctx, bruno, "t1")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, bruno, "t1")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.CharterComplete(ctx, bruno, "t1")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestGet_ParticipantsOnly(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Get(ctx, ana, "t1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "u_eve", "t1")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = svc.Get(ctx, ana, "t404")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCanLeaveFeedback(t *testing.T) {
	svc, repo, _ := newFixture()
	ctx := context.Background()

	ok, err := svc.CanLeaveFeedback(ctx, ana, "t1")
	require.NoError(t, err)
	assert.False(t, ok, "trip not completed yet")

	_, err = svc.CharterComplete(ctx, bruno, "t1")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, ana, "t1")
	require.NoError(t, err)

	ok, err = svc.CanLeaveFeedback(ctx, ana, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	repo.feedback[[2]types.ID{"t1", ana}] = true
	ok, err = svc.CanLeaveFeedback(ctx, ana, "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanLeaveFeedback(ctx, bruno, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanLeaveFeedback(ctx, "u_eve", "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfirm_ConcurrentPaysOnce(t *testing.T) {
	svc, repo, _ := newFixture()
	ctx := context.Background()
	_, err := svc.CharterComplete(ctx, bruno, "t1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Confirm(ctx, ana, "t1")
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			kind := apperr.KindOf(err)
			assert.Contains(t, []apperr.Kind{apperr.KindConflict, apperr.KindInvalidState}, kind)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, types.Credits(40+824), repo.credits[bruno])
	assert.Len(t, repo.movements, 1)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCharterCompleted))
	assert.True(t, CanTransition(StatusCharterCompleted, StatusCompleted))
	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
}
