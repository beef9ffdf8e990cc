package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/repository"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/stay"
)

type memStore struct {
	mu       sync.Mutex
	rooms    map[int64]*domain.Room
	deleted  map[int64]bool
	guests   map[int64]*domain.Guest
	bookings map[int64]*domain.Booking
	nextID   int64

	// createErr is returned by CreateWithGuest before anything is written.
	createErr error
	// afterList runs once, after ListOverlapping has read the bookings.
	afterList func()
}

func newMemStore() *memStore {
	return &memStore{
		rooms:    map[int64]*domain.Room{},
		deleted:  map[int64]bool{},
		guests:   map[int64]*domain.Guest{},
		bookings: map[int64]*domain.Booking{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addRoom(number string) *domain.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := &domain.Room{ID: m.id(), Number: number, Type: "single", Price: 100}
	m.rooms[rm.ID] = rm
	return rm
}

func (m *memStore) addBooking(roomID int64, w stay.Window) *domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &domain.Guest{ID: m.id(), Name: "Seeded"}
	m.guests[g.ID] = g
	b := &domain.Booking{ID: m.id(), GuestID: g.ID, RoomID: roomID, CheckIn: w.Start, CheckOut: w.End}
	m.bookings[b.ID] = b
	return b
}

// bookings

type memBookings struct{ *memStore }

func (m memBookings) overlapping(roomID int64, w stay.Window, excludeID int64) *domain.Booking {
	var ids []int64
	for id := range m.bookings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		b := m.bookings[id]
		if b.RoomID != roomID || b.ID == excludeID {
			continue
		}
		if w.Overlaps(stay.Window{Start: b.CheckIn, End: b.CheckOut}) {
			cp := *b
			return &cp
		}
	}
	return nil
}

func (m memBookings) FindOverlapping(_ context.Context, roomID int64, w stay.Window, excludeID int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlapping(roomID, w, excludeID), nil
}

func (m memBookings) ListOverlapping(_ context.Context, w stay.Window) ([]domain.Booking, error) {
	m.mu.Lock()
	out := []domain.Booking{}
	for _, b := range m.bookings {
		if w.Overlaps(stay.Window{Start: b.CheckIn, End: b.CheckOut}) {
			out = append(out, *b)
		}
	}
	hook := m.afterList
	m.afterList = nil
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m memBookings) resolve(b *domain.Booking) domain.Booking {
	cp := *b
	if g, ok := m.guests[b.GuestID]; ok {
		gc := *g
		cp.Guest = &gc
	}
	if rm, ok := m.rooms[b.RoomID]; ok {
		rc := *rm
		cp.Room = &rc
	}
	return cp
}

func (m memBookings) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	r := m.resolve(b)
	return &r, nil
}

func (m memBookings) List(_ context.Context) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range m.bookings {
		out = append(out, m.resolve(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memBookings) CreateWithGuest(_ context.Context, guest *domain.Guest, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.rooms[booking.RoomID]; !ok || m.deleted[booking.RoomID] {
		return repository.ErrRoomNotFound
	}
	if m.overlapping(booking.RoomID, stay.Window{Start: booking.CheckIn, End: booking.CheckOut}, 0) != nil {
		return repository.ErrOverlap
	}
	guest.ID = m.id()
	m.guests[guest.ID] = guest
	booking.ID = m.id()
	booking.GuestID = guest.ID
	cp := *booking
	m.bookings[booking.ID] = &cp
	return nil
}

func (m memBookings) ExtendCheckOut(_ context.Context, id int64, newCheckOut time.Time) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	if !newCheckOut.After(b.CheckOut) {
		return nil, repository.ErrCheckOutNotLater
	}
	if m.overlapping(b.RoomID, stay.Window{Start: b.CheckOut, End: newCheckOut}, id) != nil {
		return nil, repository.ErrOverlap
	}
	b.CheckOut = newCheckOut
	cp := *b
	return &cp, nil
}

// rooms

type memRooms struct{ *memStore }

func (m memRooms) Create(_ context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rm := range m.rooms {
		if !m.deleted[id] && rm.Number == req.Number {
			return nil, repository.ErrDuplicateNumber
		}
	}
	rm := &domain.Room{ID: m.id(), Number: req.Number, Type: req.Type, Price: *req.Price, Status: domain.RoomAvailable}
	m.rooms[rm.ID] = rm
	cp := *rm
	return &cp, nil
}

func (m memRooms) GetByID(_ context.Context, id int64) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.rooms[id]
	if !ok || m.deleted[id] {
		return nil, nil
	}
	cp := *rm
	return &cp, nil
}

func (m memRooms) GetByNumber(_ context.Context, number string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rm := range m.rooms {
		if !m.deleted[id] && rm.Number == number {
			cp := *rm
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memRooms) List(_ context.Context) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Room{}
	for id, rm := range m.rooms {
		if !m.deleted[id] {
			out = append(out, *rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m memRooms) ListByIDs(ctx context.Context, ids []int64) ([]domain.Room, error) {
	all, _ := m.List(ctx)
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []domain.Room{}
	for _, rm := range all {
		if want[rm.ID] {
			out = append(out, rm)
		}
	}
	return out, nil
}

func (m memRooms) Count(ctx context.Context) (int, error) {
	all, _ := m.List(ctx)
	return len(all), nil
}

func (m memRooms) Update(_ context.Context, id int64, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.rooms[id]
	if !ok || m.deleted[id] {
		return nil, nil
	}
	if req.Number != nil {
		for oid, o := range m.rooms {
			if oid != id && !m.deleted[oid] && o.Number == *req.Number {
				return nil, repository.ErrDuplicateNumber
			}
		}
		rm.Number = *req.Number
	}
	if req.Type != nil {
		rm.Type = *req.Type
	}
	if req.Price != nil {
		rm.Price = *req.Price
	}
	cp := *rm
	return &cp, nil
}

func (m memRooms) Delete(_ context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok || m.deleted[id] {
		return repository.ErrRoomNotFound
	}
	for _, b := range m.bookings {
		if b.RoomID == id && b.CheckOut.After(now) {
			return repository.ErrRoomInUse
		}
	}
	m.deleted[id] = true
	return nil
}

// guests

type memGuests struct{ *memStore }

func (m memGuests) List(_ context.Context, limit, offset int) ([]domain.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Guest{}
	for _, g := range m.guests {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []domain.Guest{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// collaborators

type fakeUploader struct {
	mu        sync.Mutex
	uploaded  []string
	removed   []string
	uploadErr error
}

// UploadImage passes through anything that already looks like a URL.
func (f *fakeUploader) UploadImage(_ context.Context, raw string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", false, f.uploadErr
	}
	if strings.HasPrefix(raw, "http") {
		return raw, false, nil
	}
	url := "http://storage.test/proofs/id-proofs/" + raw + ".png"
	f.uploaded = append(f.uploaded, url)
	return url, true, nil
}

func (f *fakeUploader) Remove(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, url)
	return nil
}

type fakeStats struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string]domain.RoomStats
	gets        int
	invalidated int
}

func newFakeStats() *fakeStats {
	return &fakeStats{entries: map[string]domain.RoomStats{}}
}

func statsEntry(gen int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", gen, day.Format(stay.DateLayout))
}

func (f *fakeStats) Generation(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen, nil
}

func (f *fakeStats) Get(_ context.Context, gen int64, day time.Time) (*domain.RoomStats, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	s, ok := f.entries[statsEntry(gen, day)]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (f *fakeStats) Set(_ context.Context, gen int64, day time.Time, stats *domain.RoomStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[statsEntry(gen, day)] = *stats
	return nil
}

func (f *fakeStats) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.invalidated++
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fixture struct {
	store    *memStore
	uploader *fakeUploader
	stats    *fakeStats
	events   *fakePublisher
	bookings *bookingService
	rooms    *roomService
}

// fixed clock: 2024-06-10 12:00 UTC
var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		uploader: &fakeUploader{},
		stats:    newFakeStats(),
		events:   &fakePublisher{},
	}
	clock := func() time.Time { return testNow }

	bs := NewBookingService(memBookings{f.store}, memRooms{f.store}, f.uploader, f.stats, f.events, time.UTC).(*bookingService)
	bs.now = clock
	f.bookings = bs

	rs := NewRoomService(memRooms{f.store}, memBookings{f.store}, memGuests{f.store}, f.stats, f.events, time.UTC).(*roomService)
	rs.now = clock
	f.rooms = rs
	return f
}

func stayOf(in, out string) stay.Window {
	i, _ := time.Parse(stay.DateLayout, in)
	o, _ := time.Parse(stay.DateLayout, out)
	w, err := stay.StayWindow(i, o, time.UTC)
	if err != nil {
		panic(err)
	}
	return w
}
