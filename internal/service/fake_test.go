package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
	"github.com/iliyamo/auditorium-seat-reservation/internal/repository"
)

type txMarker struct{}

// memStore is an in-memory ledger. Transactions are serialized with a
// single lock and rolled back by restoring a snapshot.
type memStore struct {
	mu           sync.Mutex
	shows        map[uint64]model.Show
	users        map[uint64]model.User
	reservations map[uint64]model.Reservation
	nextID       uint64

	// failNext makes the next n WithTx calls fail with a serialization error.
	failNext int
	txCalls  int
}

func newMemStore() *memStore {
	return &memStore{
		shows:        map[uint64]model.Show{},
		users:        map[uint64]model.User{},
		reservations: map[uint64]model.Reservation{},
	}
}

func (m *memStore) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	if m.failNext > 0 {
		m.failNext--
		return fmt.Errorf("deadlock: %w", repository.ErrSerialization)
	}
	snapshot := make(map[uint64]model.Reservation, len(m.reservations))
	for k, v := range m.reservations {
		snapshot[k] = v
	}
	next := m.nextID
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		m.reservations = snapshot
		m.nextID = next
		return err
	}
	return nil
}

type showStore struct{ *memStore }

func (s showStore) GetByID(ctx context.Context, id uint64) (model.Show, error) {
	defer s.lock(ctx)()
	sh, ok := s.shows[id]
	if !ok {
		return model.Show{}, repository.ErrShowNotFound
	}
	return sh, nil
}

type userStore struct{ *memStore }

func (s userStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) filter(ctx context.Context, keep func(model.Reservation) bool) []model.Reservation {
	defer m.lock(ctx)()
	out := make([]model.Reservation, 0)
	for id := uint64(1); id <= m.nextID; id++ {
		if r, ok := m.reservations[id]; ok && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) ListByShow(ctx context.Context, showID uint64) ([]model.Reservation, error) {
	return m.filter(ctx, func(r model.Reservation) bool { return r.ShowID == showID }), nil
}

func (m *memStore) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	out := m.filter(ctx, func(r model.Reservation) bool { return r.UserID == userID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *memStore) ListByUserAndShow(ctx context.Context, userID, showID uint64) ([]model.Reservation, error) {
	return m.filter(ctx, func(r model.Reservation) bool { return r.UserID == userID && r.ShowID == showID }), nil
}

func (m *memStore) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	defer m.lock(ctx)()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrReservationNotFound
	}
	return r, nil
}

func (m *memStore) Insert(ctx context.Context, userID, showID uint64, seats []string, createdAt time.Time) (model.Reservation, error) {
	defer m.lock(ctx)()
	for _, r := range m.reservations {
		if r.UserID == userID && r.ShowID == showID {
			return model.Reservation{}, repository.ErrDuplicate
		}
	}
	m.nextID++
	r := model.Reservation{
		ID:          m.nextID,
		ShowID:      showID,
		UserID:      userID,
		SeatNumbers: append([]string(nil), seats...),
		CreatedAt:   createdAt,
	}
	m.reservations[r.ID] = r
	return r, nil
}

func (m *memStore) Delete(ctx context.Context, id uint64) error {
	defer m.lock(ctx)()
	if _, ok := m.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(m.reservations, id)
	return nil
}

func (m *memStore) held(showID uint64) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, r := range m.reservations {
		if r.ShowID != showID {
			continue
		}
		for _, s := range r.SeatNumbers {
			out[s]++
		}
	}
	return out
}

type recordingListener struct {
	mu        sync.Mutex
	committed []model.Reservation
	cancelled []model.Reservation
}

func (l *recordingListener) ReservationCommitted(_ context.Context, r model.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.committed = append(l.committed, r)
}

func (l *recordingListener) ReservationCancelled(_ context.Context, r model.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelled = append(l.cancelled, r)
}
