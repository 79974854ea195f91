package bookings

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps bookings in process. Used when no database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	customers map[string]memoryCustomer
	bookings  []Booking
	nextCust  int64
	nextBook  int64
	now       func() time.Time
}

type memoryCustomer struct {
	id    int64
	name  string
	email string
	phone string
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		customers: make(map[string]memoryCustomer),
		now:       time.Now,
	}
}

// GetOrCreateCustomer returns the id for email, creating the customer if needed.
func (r *MemoryRepository) GetOrCreateCustomer(ctx context.Context, name, email, phone string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.customerLocked(name, email, phone).id, nil
}

// InsertBooking appends a booking for customerID.
func (r *MemoryRepository) InsertBooking(ctx context.Context, customerID int64, clinic, service, date, timeOfDay string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.insertLocked(Booking{CustomerID: customerID, ClinicName: clinic, Service: service, Date: date, Time: timeOfDay})
	return b.ID, nil
}

// Save creates the customer if needed and records the booking atomically.
func (r *MemoryRepository) Save(ctx context.Context, b Booking) (Booking, error) {
	if err := b.validate(); err != nil {
		return Booking{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.customerLocked(b.CustomerName, b.CustomerEmail, b.CustomerPhone)
	b.CustomerID = c.id
	b.CustomerEmail = c.email
	return r.insertLocked(b), nil
}

// List returns matching bookings with customer fields, newest first.
func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[int64]memoryCustomer, len(r.customers))
	for _, c := range r.customers {
		byID[c.id] = c
	}
	var out []Booking
	for _, b := range r.bookings {
		if c, ok := byID[b.CustomerID]; ok {
			b.CustomerName, b.CustomerEmail, b.CustomerPhone = c.name, c.email, c.phone
		}
		if f.matches(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) customerLocked(name, email, phone string) memoryCustomer {
	key := normalizeEmail(email)
	if c, ok := r.customers[key]; ok {
		return c
	}
	r.nextCust++
	c := memoryCustomer{id: r.nextCust, name: name, email: key, phone: phone}
	r.customers[key] = c
	return c
}

func (r *MemoryRepository) insertLocked(b Booking) Booking {
	r.nextBook++
	b.ID = r.nextBook
	b.CreatedAt = r.now().UTC()
	r.bookings = append(r.bookings, b)
	return b
}
