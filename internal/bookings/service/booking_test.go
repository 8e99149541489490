package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingerrors "roomdesk/internal/bookings/errors"
	"roomdesk/internal/bookings/events"
	"roomdesk/pkg/config"
	mongotx "roomdesk/pkg/db/mongo"
	apperrors "roomdesk/pkg/errors"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

func newTestConfig() *config.Config {
	return &config.Config{
		RoomLockTTL: 10 * time.Second,
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func asAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr
}

func paidHotelTicket(userID int64) model.Ticket {
	return model.Ticket{
		UserID: userID,
		Status: model.TicketPaid,
		TicketType: model.TicketType{
			IncludesHotel: true,
		},
	}
}

// ────────────────────────────────────────────────
// Mock repositories for unit tests
// ────────────────────────────────────────────────

type mockBookingRepo struct {
	findByUserFunc  func(ctx context.Context, userID int64) (*model.Booking, error)
	findOwnerFunc   func(ctx context.Context, bookingID int64) (int64, error)
	countByRoomFunc func(ctx context.Context, roomID int64) (int64, error)
	insertFunc      func(ctx context.Context, userID, roomID int64) (int64, error)
	updateRoomFunc  func(ctx context.Context, bookingID, roomID int64) (*model.Booking, error)
	insertCalls     int
	updateCalls     int
}

func (m *mockBookingRepo) FindByUser(ctx context.Context, userID int64) (*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindOwner(ctx context.Context, bookingID int64) (int64, error) {
	if m.findOwnerFunc != nil {
		return m.findOwnerFunc(ctx, bookingID)
	}
	return 0, nil
}

func (m *mockBookingRepo) CountByRoom(ctx context.Context, roomID int64) (int64, error) {
	if m.countByRoomFunc != nil {
		return m.countByRoomFunc(ctx, roomID)
	}
	return 0, nil
}

func (m *mockBookingRepo) Insert(ctx context.Context, userID, roomID int64) (int64, error) {
	m.insertCalls++
	if m.insertFunc != nil {
		return m.insertFunc(ctx, userID, roomID)
	}
	return 1, nil
}

func (m *mockBookingRepo) UpdateRoom(ctx context.Context, bookingID, roomID int64) (*model.Booking, error) {
	m.updateCalls++
	if m.updateRoomFunc != nil {
		return m.updateRoomFunc(ctx, bookingID, roomID)
	}
	return &model.Booking{ID: bookingID, RoomID: roomID}, nil
}

func (m *mockBookingRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockRoomRepo struct {
	findByIDFunc func(ctx context.Context, roomID int64) (*model.Room, error)
}

func (m *mockRoomRepo) FindByID(ctx context.Context, roomID int64) (*model.Room, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, roomID)
	}
	return nil, nil
}

type mockTicketRepo struct {
	findByUserFunc func(ctx context.Context, userID int64) ([]model.Ticket, error)
}

func (m *mockTicketRepo) FindByUser(ctx context.Context, userID int64) ([]model.Ticket, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID)
	}
	return nil, nil
}

type mockLockRepo struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (m *mockLockRepo) Create(ctx context.Context, lock *model.RoomLock) (*model.RoomLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, lock.ID)
	return lock, nil
}

func (m *mockLockRepo) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, lockID)
	return nil
}

func (m *mockLockRepo) EnsureIndexes(ctx context.Context) error { return nil }

// ────────────────────────────────────────────────
// Get
// ────────────────────────────────────────────────

func TestGet_NoBooking(t *testing.T) {
	bookings := &mockBookingRepo{
		findByUserFunc: func(ctx context.Context, userID int64) (*model.Booking, error) {
			return nil, bookingerrors.ErrBookingNotFound
		},
	}

	svc := NewBookingService(bookings, &mockRoomRepo{}, &mockTicketRepo{}, &mockLockRepo{}, events.NoopPublisher{}, newTestConfig())

	_, err := svc.Get(context.Background(), 42)
	appErr := asAppError(t, err)
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", appErr.HTTPStatus)
	}
}

func TestGet_ReturnsBookingWithRoom(t *testing.T) {
	bookings := &mockBookingRepo{
		findByUserFunc: func(ctx context.Context, userID int64) (*model.Booking, error) {
			return &model.Booking{ID: 5, UserID: userID, RoomID: 9}, nil
		},
	}
	rooms := &mockRoomRepo{
		findByIDFunc: func(ctx context.Context, roomID int64) (*model.Room, error) {
			return &model.Room{ID: roomID, Name: "1020", Capacity: 3, HotelID: 1}, nil
		},
	}

	svc := NewBookingService(bookings, rooms, &mockTicketRepo{}, &mockLockRepo{}, events.NoopPublisher{}, newTestConfig())

	got, err := svc.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 5 {
		t.Errorf("expected booking id 5, got %d", got.ID)
	}
	if got.Room.ID != 9 || got.Room.Name != "1020" {
		t.Errorf("unexpected room: %+v", got.Room)
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_EligibilityFailures(t *testing.T) {
	tests := []struct {
		name       string
		tickets    []model.Ticket
		wantStatus int
	}{
		{
			name:       "no ticket at all",
			tickets:    nil,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "remote ticket",
			tickets: []model.Ticket{
				{Status: model.TicketPaid, TicketType: model.TicketType{IsRemote: true}},
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "no hotel ticket",
			tickets: []model.Ticket{
				{Status: model.TicketPaid},
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "unpaid ticket",
			tickets: []model.Ticket{
				{Status: model.TicketReserved, TicketType: model.TicketType{IncludesHotel: true}},
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := &mockBookingRepo{}
			tickets := &mockTicketRepo{
				findByUserFunc: func(ctx context.Context, userID int64) ([]model.Ticket, error) {
					return tt.tickets, nil
				},
			}

			svc := NewBookingService(bookings, &mockRoomRepo{}, tickets, &mockLockRepo{}, events.NoopPublisher{}, newTestConfig())

			_, err := svc.Create(context.Background(), 42, 1)
			appErr := asAppError(t, err)
			if appErr.HTTPStatus != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, appErr.HTTPStatus)
			}
			if bookings.insertCalls != 0 {
				t.Errorf("ineligible user must never reach the store insert, got %d calls", bookings.insertCalls)
			}
		})
	}
}

func TestCreate_RoomNotFound(t *testing.T) {
	tickets := &mockTicketRepo{
		findByUserFunc: func(ctx context.Context, userID int64) ([]model.Ticket, error) {
			return []model.Ticket{paidHotelTicket(userID)}, nil
		},
	}
	rooms := &mockRoomRepo{
		findByIDFunc: func(ctx context.Context, roomID int64) (*model.Room, error) {
			return nil, bookingerrors.ErrRoomNotFound
		},
	}
	bookings := &mockBookingRepo{}

	svc := NewBookingService(bookings, rooms, tickets, &mockLockRepo{}, events.NoopPublisher{}, newTestConfig())

	_, err := svc.Create(context.Background(), 42, 100)
	appErr := asAppError(t, err)
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", appErr.HTTPStatus)
	}
	if bookings.insertCalls != 0 {
		t.Error("insert must not run when the room does not exist")
	}
}

func TestCreate_RoomFull(t *testing.T) {
	tickets := &mockTicketRepo{
		findByUserFunc: func(ctx context.Context, userID int64) ([]model.Ticket, error) {
			return []model.Ticket{paidHotelTicket(userID)}, nil
		},
	}
	rooms := &mockRoomRepo{
		findByIDFunc: func(ctx context.Context, roomID int64) (*model.Room, error) {
			return &model.Room{ID: roomID, Capacity: 1}, nil
		},
	}
	bookings := &mockBookingRepo{
		countByRoomFunc: func(ctx context.Context, roomID int64) (int64, error) {
			return 1, nil
		},
	}

	svc := NewBookingService(bookings, rooms, tickets, &mockLockRepo{}, events.NoopPublisher{}, newTestConfig())

	_, err := svc.Create(context.Background(), 42, 100)
	appErr := asAppError(t, err)
	if appErr.HTTPStatus != http.StatusForbidden {
		t.Errorf("expected 403, got %d", appErr.HTTPStatus)
	}
	if bookings.insertCalls != 0 {
		t.Error("insert must not run when the room is full")
	}
}

func TestCreate_Success(t *testing.T) {
	tickets := &mockTicketRepo{
		findByUserFunc: func(ctx context.Context, userID int64) ([]model.Ticket, error) {
			return []model.Ticket{paidHotelTicket(userID)}, nil
		},
	}
	rooms := &mockRoomRepo{
		findByIDFunc: func(ctx context.Context, roomID int64) (*model.Room, error) {
			return &model.Room{ID: roomID, Capacity: 1}, nil
		},
	}
	bookings := &mockBookingRepo{
		insertFunc: func(ctx context.Context, userID, roomID int64) (int64, error) {
			return 77, nil
		},
	}
	locks := &mockLockRepo{}

	svc := NewBookingService(bookings, rooms, tickets, locks, events.NoopPublisher{}, newTestConfig())

	id, err := svc.Create(context.Background(), 42, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 77 {
		t.Errorf("expected booking id 77, got %d", id)
	}
	if len(locks.created) != 1 || len(locks.deleted) != 1 {
		t.Errorf("expected one lock acquire and one release, got %d/%d", len(locks.created), len(locks.deleted))
	}
	if locks.created[0] != locks.deleted[0] {
		t.Errorf("released a different lock than acquired: %s vs %s", locks.created[0], locks.deleted[0])
	}
}

// ────────────────────────────────────────────────
// ChangeRoom
// ────────────────────────────────────────────────

func TestChangeRoom_MissingAndNotOwnedAreIndistinguishable(t *testing.T) {
	missing := &mockBookingRepo{
		findOwnerFunc: func(ctx context.Context, bookingID int64) (int64, error) {
			return 0, bookingerrors.ErrBookingNotFound
		},
	}
	notMine := &mockBookingRepo{
		findOwnerFunc: func(ctx context.Context, bookingID int64) (int64, error) {
			return 999, nil
		},
	}

	var results []*apperrors.AppError
	for _, bookings := range []*mockBookingRepo{missing, notMine} {
		svc := NewBookingService(bookings, &mockRoomRepo{}, &mockTicketRepo{}, &mockLockRepo{}, events.NoopPublisher{}, newTestConfig())
		_, err := svc.ChangeRoom(context.Background(), 42, 5, 100)
		results = append(results, asAppError(t, err))
		if bookings.updateCalls != 0 {
			t.Error("update must not run for an inaccessible booking")
		}
	}

	for _, appErr := range results {
		if appErr.HTTPStatus != http.StatusForbidden {
			t.Errorf("expected 403, got %d", appErr.HTTPStatus)
		}
	}
	if results[0].Message != results[1].Message {
		t.Errorf("missing and not-owned bookings must yield identical responses: %q vs %q",
			results[0].Message, results[1].Message)
	}
}

func TestChangeRoom_Success(t *testing.T) {
	store := newFakeStore()
	store.rooms[1] = &model.Room{ID: 1, Capacity: 2}
	store.rooms[2] = &model.Room{ID: 2, Capacity: 2}
	store.bookings[10] = &model.Booking{ID: 10, UserID: 42, RoomID: 1}

	svc := newFakeStoreService(store)

	id, err := svc.ChangeRoom(context.Background(), 42, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 10 {
		t.Errorf("expected unchanged booking id 10, got %d", id)
	}
	if store.bookings[10].RoomID != 2 {
		t.Errorf("expected booking moved to room 2, got %d", store.bookings[10].RoomID)
	}
	if n := store.countRoom(1); n != 0 {
		t.Errorf("expected old room emptied, got %d bookings", n)
	}
	if n := store.countRoom(2); n != 1 {
		t.Errorf("expected new room to hold 1 booking, got %d", n)
	}
}

func TestChangeRoom_FullRoomLeavesBookingUnchanged(t *testing.T) {
	store := newFakeStore()
	store.rooms[1] = &model.Room{ID: 1, Capacity: 2}
	store.rooms[2] = &model.Room{ID: 2, Capacity: 1}
	store.bookings[10] = &model.Booking{ID: 10, UserID: 42, RoomID: 1}
	store.bookings[11] = &model.Booking{ID: 11, UserID: 7, RoomID: 2}

	svc := newFakeStoreService(store)

	_, err := svc.ChangeRoom(context.Background(), 42, 10, 2)
	appErr := asAppError(t, err)
	if appErr.HTTPStatus != http.StatusForbidden {
		t.Errorf("expected 403, got %d", appErr.HTTPStatus)
	}
	if store.bookings[10].RoomID != 1 {
		t.Errorf("rejected change must leave the prior room assignment, got room %d", store.bookings[10].RoomID)
	}
}

func TestChangeRoom_TargetRoomMissing(t *testing.T) {
	store := newFakeStore()
	store.rooms[1] = &model.Room{ID: 1, Capacity: 2}
	store.bookings[10] = &model.Booking{ID: 10, UserID: 42, RoomID: 1}

	svc := newFakeStoreService(store)

	_, err := svc.ChangeRoom(context.Background(), 42, 10, 404)
	appErr := asAppError(t, err)
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", appErr.HTTPStatus)
	}
}

// ────────────────────────────────────────────────
// Concurrency: the capacity invariant under racing creators
// ────────────────────────────────────────────────

func TestCreate_ConcurrentCreatorsNeverExceedCapacity(t *testing.T) {
	const (
		roomCapacity = 2
		writers      = 8
	)

	store := newFakeStore()
	store.rooms[1] = &model.Room{ID: 1, Capacity: roomCapacity}

	svc := newFakeStoreService(store)

	var wg sync.WaitGroup
	successes := make(chan int64, writers)
	failures := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			id, err := svc.Create(context.Background(), userID, 1)
			if err != nil {
				failures <- err
				return
			}
			successes <- id
		}(int64(i + 1))
	}
	wg.Wait()
	close(successes)
	close(failures)

	if got := len(successes); got != roomCapacity {
		t.Errorf("expected exactly %d successful bookings, got %d", roomCapacity, got)
	}
	if n := store.countRoom(1); n != roomCapacity {
		t.Errorf("room holds %d bookings, capacity is %d", n, roomCapacity)
	}
	for err := range failures {
		appErr := asAppError(t, err)
		if appErr.HTTPStatus != http.StatusForbidden {
			t.Errorf("losing creator should see 403, got %d (%v)", appErr.HTTPStatus, err)
		}
	}

	seen := map[int64]bool{}
	for id := range successes {
		if seen[id] {
			t.Errorf("duplicate booking id %d", id)
		}
		seen[id] = true
	}
}

// ────────────────────────────────────────────────
// In-memory fake store
// ────────────────────────────────────────────────

// fakeStore emulates the storage collaborator with per-operation locking only.
// It is intentionally non-transactional: the capacity invariant must hold
// purely because the service serializes writers through the room advisory
// lock.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[int64]*model.Room
	bookings map[int64]*model.Booking
	locks    map[string]bool
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[int64]*model.Room),
		bookings: make(map[int64]*model.Booking),
		locks:    make(map[string]bool),
		nextID:   100,
	}
}

func newFakeStoreService(store *fakeStore) BookingService {
	tickets := &mockTicketRepo{
		findByUserFunc: func(ctx context.Context, userID int64) ([]model.Ticket, error) {
			return []model.Ticket{paidHotelTicket(userID)}, nil
		},
	}
	return NewBookingService(
		(*fakeBookingRepo)(store),
		(*fakeRoomRepo)(store),
		tickets,
		(*fakeLockRepo)(store),
		events.NoopPublisher{},
		newTestConfig(),
	)
}

func (s *fakeStore) countRoom(roomID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.bookings {
		if b.RoomID == roomID {
			n++
		}
	}
	return n
}

type fakeBookingRepo fakeStore

func (s *fakeBookingRepo) FindByUser(ctx context.Context, userID int64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.UserID == userID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, bookingerrors.ErrBookingNotFound
}

func (s *fakeBookingRepo) FindOwner(ctx context.Context, bookingID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return 0, bookingerrors.ErrBookingNotFound
	}
	return b.UserID, nil
}

func (s *fakeBookingRepo) CountByRoom(ctx context.Context, roomID int64) (int64, error) {
	return (*fakeStore)(s).countRoom(roomID), nil
}

func (s *fakeBookingRepo) Insert(ctx context.Context, userID, roomID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.bookings[id] = &model.Booking{ID: id, UserID: userID, RoomID: roomID}
	return id, nil
}

func (s *fakeBookingRepo) UpdateRoom(ctx context.Context, bookingID, roomID int64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, bookingerrors.ErrBookingNotFound
	}
	previous := *b
	b.RoomID = roomID
	return &previous, nil
}

func (s *fakeBookingRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (s *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type fakeRoomRepo fakeStore

func (s *fakeRoomRepo) FindByID(ctx context.Context, roomID int64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, bookingerrors.ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

type fakeLockRepo fakeStore

func (s *fakeLockRepo) Create(ctx context.Context, lock *model.RoomLock) (*model.RoomLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[lock.ID] {
		return nil, mongo.WriteException{
			WriteErrors: mongo.WriteErrors{{Code: 11000}},
		}
	}
	s.locks[lock.ID] = true
	return lock, nil
}

func (s *fakeLockRepo) Delete(ctx context.Context, lockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, lockID)
	return nil
}

func (s *fakeLockRepo) EnsureIndexes(ctx context.Context) error { return nil }
