package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the durable booking store.
type Repository interface {
	GetOrCreateCustomer(ctx context.Context, name, email, phone string) (int64, error)
	InsertBooking(ctx context.Context, customerID int64, clinic, service, date, timeOfDay string) (int64, error)
	Save(ctx context.Context, b Booking) (Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
}

// PgxPool is the subset of pgxpool.Pool the repository uses.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	upsertCustomerSQL = `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`

	insertBookingSQL = `
		INSERT INTO bookings (customer_id, clinic, service, date, time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	listBookingsSQL = `
		SELECT b.id, b.customer_id, c.name, c.email, c.phone,
		       b.clinic, b.service, b.date, b.time, b.created_at
		FROM bookings b
		JOIN customers c ON b.customer_id = c.id
		WHERE ($1::text = '' OR b.clinic = $1)
		  AND ($2::text = '' OR b.date = $2)
		ORDER BY b.created_at DESC, b.id DESC`
)

// PostgresRepository stores bookings in Postgres.
type PostgresRepository struct {
	db PgxPool
}

// NewPostgresRepository creates a repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreateCustomer returns the id of the customer with email, creating it
// from name and phone when it does not exist yet. Existing rows keep their
// original name and phone.
func (r *PostgresRepository) GetOrCreateCustomer(ctx context.Context, name, email, phone string) (int64, error) {
	return getOrCreateCustomer(ctx, r.db, name, email, phone)
}

// InsertBooking writes a booking for an existing customer and returns its id.
func (r *PostgresRepository) InsertBooking(ctx context.Context, customerID int64, clinic, service, date, timeOfDay string) (int64, error) {
	id, _, err := insertBooking(ctx, r.db, customerID, clinic, service, date, timeOfDay)
	return id, err
}

// Save resolves the customer and inserts the booking in one transaction so
// two confirmations for the same new email cannot race.
func (r *PostgresRepository) Save(ctx context.Context, b Booking) (Booking, error) {
	if err := b.validate(); err != nil {
		return Booking{}, err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Booking{}, fmt.Errorf("bookings: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customerID, err := getOrCreateCustomer(ctx, tx, b.CustomerName, b.CustomerEmail, b.CustomerPhone)
	if err != nil {
		return Booking{}, err
	}
	id, createdAt, err := insertBooking(ctx, tx, customerID, b.ClinicName, b.Service, b.Date, b.Time)
	if err != nil {
		return Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Booking{}, fmt.Errorf("bookings: commit: %w", err)
	}

	b.ID = id
	b.CustomerID = customerID
	b.CustomerEmail = normalizeEmail(b.CustomerEmail)
	b.CreatedAt = createdAt
	return b, nil
}

// List returns bookings joined with customer fields, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Booking, error) {
	rows, err := r.db.Query(ctx, listBookingsSQL, f.Clinic, f.Date)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.CustomerID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
			&b.ClinicName, &b.Service, &b.Date, &b.Time, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list rows: %w", err)
	}
	return out, nil
}

func getOrCreateCustomer(ctx context.Context, q rowQuerier, name, email, phone string) (int64, error) {
	var id int64
	if err := q.QueryRow(ctx, upsertCustomerSQL, name, normalizeEmail(email), phone).Scan(&id); err != nil {
		return 0, fmt.Errorf("bookings: get or create customer: %w", err)
	}
	return id, nil
}

func insertBooking(ctx context.Context, q rowQuerier, customerID int64, clinic, service, date, timeOfDay string) (int64, time.Time, error) {
	var (
		id        int64
		createdAt time.Time
	)
	if err := q.QueryRow(ctx, insertBookingSQL, customerID, clinic, service, date, timeOfDay).Scan(&id, &createdAt); err != nil {
		return 0, time.Time{}, fmt.Errorf("bookings: insert booking: %w", err)
	}
	return id, createdAt, nil
}
