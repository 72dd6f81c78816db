package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-seat-reservation/internal/clock"
	"github.com/iliyamo/auditorium-seat-reservation/internal/layout"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

var now = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

const (
	showID      uint64 = 7
	singleID    uint64 = 1
	familyID    uint64 = 2
	exclusiveID uint64 = 3
	adminID     uint64 = 4
	disabledID  uint64 = 5
	fiveSeatsID uint64 = 6
)

func intPtr(n int) *int { return &n }

func seedStore() *memStore {
	m := newMemStore()
	m.shows[showID] = model.Show{
		ID:                showID,
		Title:             "Gala",
		StartsAt:          now.Add(2 * time.Hour),
		Layout:            layout.Venue(),
		BlockedSeats:      []string{"FA1"},
		AllowedCategories: []model.Category{model.CategorySingle, model.CategoryFamily, model.CategoryExclusive},
		ExclusiveRows:     []string{"R"},
	}
	m.users[singleID] = model.User{ID: singleID, Category: model.CategorySingle, IsEnabled: true}
	m.users[familyID] = model.User{ID: familyID, Category: model.CategoryFamily, IsEnabled: true}
	m.users[exclusiveID] = model.User{ID: exclusiveID, Category: model.CategoryExclusive, IsEnabled: true}
	m.users[adminID] = model.User{ID: adminID, Category: model.CategorySingle, IsAdmin: true, IsEnabled: true}
	m.users[disabledID] = model.User{ID: disabledID, Category: model.CategorySingle}
	m.users[fiveSeatsID] = model.User{ID: fiveSeatsID, Category: model.CategorySingle, SeatLimit: intPtr(5), IsEnabled: true}
	return m
}

func addShow(m *memStore, id uint64, startsIn time.Duration) {
	s := m.shows[showID]
	s.ID = id
	s.StartsAt = now.Add(startsIn)
	m.shows[id] = s
}

type harness struct {
	store    *memStore
	engine   *Engine
	listener *recordingListener
	sleeps   []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: seedStore(), listener: &recordingListener{}}
	logger := log.New("arbiter-test")
	logger.SetLevel(log.OFF)
	h.engine = NewEngine(showStore{h.store}, userStore{h.store}, h.store, clock.NewFixed(now),
		WithListener(h.listener), WithLogger(logger))
	h.engine.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return ctx.Err()
	}
	return h
}

func (h *harness) reserve(userID uint64, seats ...string) (model.Reservation, error) {
	return h.engine.Reserve(context.Background(), Request{ShowID: showID, UserID: userID, Seats: seats})
}

func TestReserve_ConcreteScenario(t *testing.T) {
	h := newHarness(t)

	res, err := h.reserve(singleID, "fa2", "FA3")
	require.NoError(t, err)
	assert.Equal(t, []string{"FA2", "FA3"}, res.SeatNumbers)
	assert.Equal(t, now, res.CreatedAt)

	_, err = h.reserve(familyID, "FA3", "FA4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSeatConflict))
	var rej *Error
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, []string{"FA3"}, rej.Seats)

	_, err = h.reserve(familyID, "FA1")
	assert.Equal(t, KindSeatBlocked, KindOf(err))

	res, err = h.reserve(familyID, "FA4", "FA5")
	require.NoError(t, err)
	assert.Len(t, h.listener.committed, 2)

	held := h.store.held(showID)
	for _, s := range []string{"FA2", "FA3", "FA4", "FA5"} {
		assert.Equal(t, 1, held[s], s)
	}
}

func TestReserve_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		user  uint64
		seats []string
		want  Kind
	}{
		{"unknown row", singleID, []string{"FZ1"}, KindInvalidSeat},
		{"seat zero", singleID, []string{"FA0"}, KindInvalidSeat},
		{"leading zero", singleID, []string{"FA02"}, KindInvalidSeat},
		{"past row end", singleID, []string{"FA19"}, KindInvalidSeat},
		{"server room gap", singleID, []string{"RQ10"}, KindInvalidSeat},
		{"no seats", singleID, nil, KindNoSeats},
		{"blank seats", singleID, []string{" ", ""}, KindNoSeats},
		{"disabled user", disabledID, []string{"FA2"}, KindUserDisabled},
		{"blocked seat", singleID, []string{"FA2", "FA1"}, KindSeatBlocked},
		{"exclusive row", singleID, []string{"RR3"}, KindCategoryNotAllowed},
		{"exclusive row family", familyID, []string{"RR3", "RR4"}, KindCategoryNotAllowed},
		{"five seats default limit", singleID, []string{"FB1", "FB2", "FB3", "FB4", "FB5"}, KindSeatLimitExceeded},
		{"six seats custom limit", fiveSeatsID, []string{"FB1", "FB2", "FB3", "FB4", "FB5", "FB6"}, KindSeatLimitExceeded},
		{"unknown user", 999, []string{"FA2"}, KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.reserve(tc.user, tc.seats...)
			assert.Equal(t, tc.want, KindOf(err), "err: %v", err)
			assert.Empty(t, h.store.held(showID))
			assert.Empty(t, h.listener.committed)
		})
	}
}

func TestReserve_InvalidSeatsAreReported(t *testing.T) {
	h := newHarness(t)
	_, err := h.reserve(singleID, "FA2", "FZ1", "XX")
	var rej *Error
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, KindInvalidSeat, rej.Kind)
	assert.Equal(t, []string{"FZ1", "XX"}, rej.Seats)
}

func TestReserve_Accepted(t *testing.T) {
	tests := []struct {
		name  string
		user  uint64
		seats []string
	}{
		{"exclusive row for exclusive user", exclusiveID, []string{"RR3"}},
		{"four seats default limit", singleID, []string{"FB1", "FB2", "FB3", "FB4"}},
		{"five seats custom limit", fiveSeatsID, []string{"FB1", "FB2", "FB3", "FB4", "FB5"}},
		{"plastic rows", familyID, []string{"PXA1", "PXB8"}},
		{"balcony", familyID, []string{"BO14"}},
		{"duplicates in request collapse", singleID, []string{"FB1", "fb1", "FB2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.reserve(tc.user, tc.seats...)
			require.NoError(t, err)
		})
	}
}

func TestReserve_AdminIgnoresLimitAndCategory(t *testing.T) {
	h := newHarness(t)
	seats := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		seats = append(seats, fmt.Sprintf("FK%d", i))
	}
	res, err := h.reserve(adminID, seats...)
	require.NoError(t, err)
	assert.Len(t, res.SeatNumbers, 20)

	h = newHarness(t)
	_, err = h.reserve(adminID, "RR1")
	require.NoError(t, err)
}

func TestReserve_CategoryNotAllowedForShow(t *testing.T) {
	h := newHarness(t)
	s := h.store.shows[showID]
	s.AllowedCategories = []model.Category{model.CategoryFamily}
	h.store.shows[showID] = s

	_, err := h.reserve(singleID, "FA2")
	assert.Equal(t, KindCategoryNotAllowed, KindOf(err))
	_, err = h.reserve(familyID, "FA2")
	assert.NoError(t, err)
}

func TestReserve_Cutoff(t *testing.T) {
	h := newHarness(t)
	addShow(h.store, 30, 30*time.Minute)
	addShow(h.store, 31, 31*time.Minute)

	_, err := h.engine.Reserve(context.Background(), Request{ShowID: 30, UserID: singleID, Seats: []string{"FA2"}})
	assert.Equal(t, KindCutoffPassed, KindOf(err))

	_, err = h.engine.Reserve(context.Background(), Request{ShowID: 31, UserID: singleID, Seats: []string{"FA2"}})
	assert.NoError(t, err)
}

func TestReserve_AdministrativeSkipsCutoffButNotStart(t *testing.T) {
	h := newHarness(t)
	addShow(h.store, 10, 10*time.Minute)
	addShow(h.store, 11, -time.Minute)

	_, err := h.engine.Reserve(context.Background(), Request{ShowID: 10, UserID: singleID, Seats: []string{"FA2"}})
	assert.Equal(t, KindCutoffPassed, KindOf(err))

	_, err = h.engine.Reserve(context.Background(), Request{ShowID: 10, UserID: singleID, Seats: []string{"FA2"}, Administrative: true})
	assert.NoError(t, err)

	_, err = h.engine.Reserve(context.Background(), Request{ShowID: 11, UserID: singleID, Seats: []string{"FA2"}, Administrative: true})
	assert.Equal(t, KindCutoffPassed, KindOf(err))
}

func TestReserve_Duplicate(t *testing.T) {
	h := newHarness(t)
	_, err := h.reserve(singleID, "FA2")
	require.NoError(t, err)

	_, err = h.reserve(singleID, "FA7")
	assert.Equal(t, KindDuplicateReservation, KindOf(err))
	assert.Len(t, h.store.held(showID), 1)
}

func TestReserve_UnknownShow(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Reserve(context.Background(), Request{ShowID: 404, UserID: singleID, Seats: []string{"FA2"}})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReserve_RetriesTransientFailures(t *testing.T) {
	h := newHarness(t)
	h.store.failNext = 2

	res, err := h.reserve(singleID, "FA2")
	require.NoError(t, err)
	assert.Equal(t, []string{"FA2"}, res.SeatNumbers)
	assert.Equal(t, 3, h.store.txCalls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, h.sleeps)
}

func TestReserve_ExhaustsRetries(t *testing.T) {
	h := newHarness(t)
	h.store.failNext = 3

	_, err := h.reserve(singleID, "FA2")
	assert.True(t, errors.Is(err, ErrRetryableFailure))
	assert.Equal(t, 3, h.store.txCalls)
	assert.Len(t, h.sleeps, 2)
	assert.Empty(t, h.store.held(showID))
	assert.Empty(t, h.listener.committed)
}

func TestReserve_CustomRetryBudget(t *testing.T) {
	h := newHarness(t)
	WithRetry(5, 10*time.Millisecond)(h.engine)
	h.store.failNext = 4

	_, err := h.reserve(singleID, "FA2")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}, h.sleeps)
}

func TestReserve_CancelledContextStopsRetrying(t *testing.T) {
	h := newHarness(t)
	h.store.failNext = 3
	ctx, cancel := context.WithCancel(context.Background())
	h.engine.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := h.engine.Reserve(ctx, Request{ShowID: showID, UserID: singleID, Seats: []string{"FA2"}})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, h.store.txCalls)
}

func TestReserve_ConcurrentRequestsHaveOneWinner(t *testing.T) {
	h := newHarness(t)
	const n = 16
	for i := 0; i < n; i++ {
		id := uint64(100 + i)
		h.store.users[id] = model.User{ID: id, Category: model.CategoryFamily, IsEnabled: true}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := h.engine.Reserve(context.Background(), Request{
				ShowID: showID,
				UserID: uint64(100 + i),
				Seats:  []string{"FC5", fmt.Sprintf("FD%d", i+1)},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSeatConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	held := h.store.held(showID)
	assert.Equal(t, 1, held["FC5"])
	assert.Len(t, held, 2)
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(singleID, "FA2")
	require.NoError(t, err)

	err = h.engine.Cancel(context.Background(), res.ID, familyID, false)
	assert.Equal(t, KindForbidden, KindOf(err))

	require.NoError(t, h.engine.Cancel(context.Background(), res.ID, singleID, false))
	assert.Empty(t, h.store.held(showID))
	require.Len(t, h.listener.cancelled, 1)
	assert.Equal(t, res.ID, h.listener.cancelled[0].ID)

	err = h.engine.Cancel(context.Background(), res.ID, singleID, false)
	assert.Equal(t, KindNotFound, KindOf(err))

	// The seat is free again.
	_, err = h.reserve(familyID, "FA2")
	assert.NoError(t, err)
}

func TestCancel_Deadlines(t *testing.T) {
	h := newHarness(t)
	addShow(h.store, 10, 10*time.Minute)
	addShow(h.store, 11, -time.Minute)
	late, err := h.store.Insert(context.Background(), singleID, 10, []string{"FA2"}, now)
	require.NoError(t, err)
	started, err := h.store.Insert(context.Background(), singleID, 11, []string{"FA2"}, now)
	require.NoError(t, err)

	err = h.engine.Cancel(context.Background(), late.ID, singleID, false)
	assert.Equal(t, KindCutoffPassed, KindOf(err))

	assert.NoError(t, h.engine.Cancel(context.Background(), late.ID, adminID, true))

	err = h.engine.Cancel(context.Background(), started.ID, adminID, true)
	assert.Equal(t, KindCutoffPassed, KindOf(err))
}

func TestQueries(t *testing.T) {
	h := newHarness(t)
	a, err := h.reserve(singleID, "FA2", "FA3")
	require.NoError(t, err)
	_, err = h.reserve(familyID, "BO1")
	require.NoError(t, err)

	list, err := h.engine.ReservationsForShow(context.Background(), showID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = h.engine.ReservationsForShow(context.Background(), 404)
	assert.Equal(t, KindNotFound, KindOf(err))

	mine, err := h.engine.ReservationsForUser(context.Background(), singleID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	got, err := h.engine.Reservation(context.Background(), a.ID, singleID, false)
	require.NoError(t, err)
	assert.Equal(t, a.SeatNumbers, got.SeatNumbers)

	_, err = h.engine.Reservation(context.Background(), a.ID, familyID, false)
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = h.engine.Reservation(context.Background(), a.ID, adminID, true)
	assert.NoError(t, err)
}

func TestSeatMap(t *testing.T) {
	h := newHarness(t)
	_, err := h.reserve(singleID, "FA3", "FA2")
	require.NoError(t, err)

	m, err := h.engine.SeatMap(context.Background(), showID)
	require.NoError(t, err)
	assert.Equal(t, 450, m.TotalSeats)
	assert.Equal(t, []string{"FA1"}, m.Blocked)
	assert.Equal(t, []string{"FA2", "FA3"}, m.Reserved)
	assert.Equal(t, 447, m.Available)
	assert.True(t, m.BookingOpen)
	assert.Equal(t, now.Add(90*time.Minute), m.BookingClosesAt)
}
