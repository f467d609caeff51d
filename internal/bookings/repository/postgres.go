package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "nestbook/internal/bookings/errors"
	pgtx "nestbook/pkg/db/postgres"
	"nestbook/pkg/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, kind, user_id, room_id, experience_id, check_in, check_out, experience_time, guests, not_canceled, created_at, updated_at`

type postgresBookingRepository struct {
	tx *pgtx.TransactionManager
}

func NewPostgresBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &postgresBookingRepository{tx: pgtx.NewTransactionManager(pool)}
}

func (r *postgresBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	const stmt = `
INSERT INTO bookings (` + bookingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	id := uuid.NewString()
	roomID, experienceID, checkIn, checkOut, at := variantColumns(b)
	_, err := r.tx.Conn(ctx).Exec(ctx, stmt,
		id, string(b.Kind), b.UserID, roomID, experienceID, checkIn, checkOut, at,
		b.Guests, b.Active, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	b.ID = id
	noteCreated(ctx, b)
	return nil
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	row := r.tx.Conn(ctx).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}

func (r *postgresBookingRepository) Update(ctx context.Context, b *model.Booking) error {
	if _, err := uuid.Parse(b.ID); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, b.ID)
	}

	const stmt = `
UPDATE bookings
SET check_in = COALESCE($2, check_in),
    check_out = COALESCE($3, check_out),
    experience_time = COALESCE($4, experience_time),
    guests = $5,
    not_canceled = $6,
    updated_at = $7
WHERE id = $1`

	_, _, checkIn, checkOut, at := variantColumns(b)
	tag, err := r.tx.Conn(ctx).Exec(ctx, stmt, b.ID, checkIn, checkOut, at, b.Guests, b.Active, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	tag, err := r.tx.Conn(ctx).Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) FindOverlappingStays(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE kind = 'rooms' AND not_canceled AND room_id = $1
  AND check_in <= $3 AND check_out >= $2
  AND ($4 = '' OR id::text <> $4)
ORDER BY check_in`

	return r.query(ctx, query, roomID, checkIn.Time(), checkOut.Time(), excludeID)
}

func (r *postgresBookingRepository) FindUpcomingStays(ctx context.Context, roomID string, after model.Date, page model.Page) ([]*model.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE kind = 'rooms' AND not_canceled AND room_id = $1 AND check_in > $2
ORDER BY check_in, id
LIMIT $3 OFFSET $4`

	return r.query(ctx, query, roomID, after.Time(), page.Limit, page.Offset)
}

func (r *postgresBookingRepository) CountUpcomingStays(ctx context.Context, roomID string, after model.Date) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM bookings WHERE kind = 'rooms' AND not_canceled AND room_id = $1 AND check_in > $2`, roomID, after.Time())
}

func (r *postgresBookingRepository) FindUpcomingVisits(ctx context.Context, experienceID string, from time.Time, page model.Page) ([]*model.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE kind = 'experiences' AND not_canceled AND experience_id = $1 AND experience_time >= $2
ORDER BY experience_time, id
LIMIT $3 OFFSET $4`

	return r.query(ctx, query, experienceID, from, page.Limit, page.Offset)
}

func (r *postgresBookingRepository) CountUpcomingVisits(ctx context.Context, experienceID string, from time.Time) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM bookings WHERE kind = 'experiences' AND not_canceled AND experience_id = $1 AND experience_time >= $2`, experienceID, from)
}

func (r *postgresBookingRepository) FindByUser(ctx context.Context, userID string, page model.Page) ([]*model.Booking, error) {
	const query = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	return r.query(ctx, query, userID, page.Limit, page.Offset)
}

func (r *postgresBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID)
}

func (r *postgresBookingRepository) DetachListing(ctx context.Context, kind model.BookingKind, listingID string, at time.Time) (int64, error) {
	stmt := `UPDATE bookings SET room_id = NULL, updated_at = $2 WHERE kind = 'rooms' AND room_id = $1`
	if kind == model.KindExperience {
		stmt = `UPDATE bookings SET experience_id = NULL, updated_at = $2 WHERE kind = 'experiences' AND experience_id = $1`
	}

	tag, err := r.tx.Conn(ctx).Exec(ctx, stmt, listingID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to detach listing: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LockRoom takes a transaction-scoped advisory lock keyed on the room. It is
// released on commit or rollback.
func (r *postgresBookingRepository) LockRoom(ctx context.Context, roomID string) error {
	tx := pgtx.TxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("room lock requires a transaction")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockID(roomID)); err != nil {
		return fmt.Errorf("failed to lock room %s: %w", roomID, err)
	}
	return nil
}

func (r *postgresBookingRepository) ExecuteTransaction(ctx context.Context, fn TxFunc) error {
	ctx, rollback := trackCreated(ctx)
	err := r.tx.ExecuteTransaction(ctx, pgtx.TransactionFunc(fn))
	if err != nil {
		rollback()
	}
	if err != nil && pgtx.IsContention(err) {
		return fmt.Errorf("%w: %v", bookingserrors.ErrContention, err)
	}
	return err
}

func (r *postgresBookingRepository) query(ctx context.Context, sql string, args ...any) ([]*model.Booking, error) {
	rows, err := r.tx.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (r *postgresBookingRepository) count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := r.tx.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func variantColumns(b *model.Booking) (roomID, experienceID *string, checkIn, checkOut, at *time.Time) {
	if b.Stay != nil {
		ci, co := b.Stay.CheckIn.Time(), b.Stay.CheckOut.Time()
		checkIn, checkOut = &ci, &co
		if b.Stay.RoomID != "" {
			id := b.Stay.RoomID
			roomID = &id
		}
	}
	if b.Visit != nil {
		t := b.Visit.ExperienceTime
		at = &t
		if b.Visit.ExperienceID != "" {
			id := b.Visit.ExperienceID
			experienceID = &id
		}
	}
	return
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b                    model.Booking
		kind                 string
		roomID, experienceID *string
		checkIn, checkOut    *time.Time
		at                   *time.Time
	)
	err := row.Scan(&b.ID, &kind, &b.UserID, &roomID, &experienceID, &checkIn, &checkOut, &at,
		&b.Guests, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.Kind = model.BookingKind(kind)
	switch b.Kind {
	case model.KindRoom:
		b.Stay = &model.Stay{RoomID: deref(roomID)}
		if checkIn != nil {
			b.Stay.CheckIn = model.DateOf(*checkIn, time.UTC)
		}
		if checkOut != nil {
			b.Stay.CheckOut = model.DateOf(*checkOut, time.UTC)
		}
	case model.KindExperience:
		b.Visit = &model.Visit{ExperienceID: deref(experienceID)}
		if at != nil {
			b.Visit.ExperienceTime = at.UTC()
		}
	}
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
