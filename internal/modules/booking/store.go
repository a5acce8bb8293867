// README: Booking store backed by PostgreSQL with optimistic status updates.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"banquet/internal/types"
)

var (
	ErrNotFound = errors.New("booking not found")
	// ErrConflict means a concurrent writer won the status race.
	ErrConflict = errors.New("booking state conflict")
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO bookings (
            id, customer_id, address, venue_lat, venue_lng,
            event_date, anchor_minutes, offset_minutes, guests, duration_minutes,
            chef_id, preferred_chef, serviceable, requires_escalation,
            status, status_version, created_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9, $10,
            $11, $12, $13, $14,
            $15, $16, $17
        )`,
		string(b.ID),
		string(b.CustomerID),
		b.Address,
		b.Venue.Lat, b.Venue.Lng,
		b.EventDate,
		b.AnchorMinutes, b.OffsetMinutes, b.Guests,
		int(b.Duration/time.Minute),
		toStringPtr(b.ChefID),
		string(b.PreferredChef),
		b.Serviceable, b.Escalation,
		string(b.Status),
		b.StatusVersion,
		b.CreatedAt,
	)
	return err
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, customer_id, address, venue_lat, venue_lng,
               event_date, anchor_minutes, offset_minutes, guests, duration_minutes,
               chef_id, preferred_chef, serviceable, requires_escalation,
               status, status_version, created_at
        FROM bookings
        WHERE id = $1`, string(id),
	)

	var b Booking
	var chefID *string
	var durationMin int
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.Address, &b.Venue.Lat, &b.Venue.Lng,
		&b.EventDate, &b.AnchorMinutes, &b.OffsetMinutes, &b.Guests, &durationMin,
		&chefID, &b.PreferredChef, &b.Serviceable, &b.Escalation,
		&b.Status, &b.StatusVersion, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.Duration = time.Duration(durationMin) * time.Minute
	if chefID != nil {
		c := types.ID(*chefID)
		b.ChefID = &c
	}
	return &b, nil
}

// UpdateStatus moves the booking between states with an optimistic guard on
// status and version; it reports false when a concurrent writer won. Slot
// fields are rewritten so an accepted negotiation candidate lands atomically
// with the transition.
func (s *PgStore) UpdateStatus(ctx context.Context, b *Booking, to Status, chefID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1,
            chef_id = COALESCE($2, chef_id),
            event_date = $3,
            anchor_minutes = $4,
            offset_minutes = $5
        WHERE id = $6 AND status = $7 AND status_version = $8`,
		string(to),
		toStringPtr(chefID),
		b.EventDate,
		b.AnchorMinutes,
		b.OffsetMinutes,
		string(b.ID),
		string(b.Status),
		b.StatusVersion,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
