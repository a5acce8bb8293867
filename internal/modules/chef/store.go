// README: Chef store backed by PostgreSQL; the calendar arena is hydrated from it.
package chef

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"banquet/internal/types"
)

var ErrNotFound = errors.New("chef not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Chef, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, base_lat, base_lng, min_guests, max_guests, rating, workload
        FROM chefs
        WHERE id = $1`, string(id),
	)
	var c Chef
	err := row.Scan(&c.ID, &c.Name, &c.Base.Lat, &c.Base.Lng, &c.MinGuests, &c.MaxGuests, &c.Rating, &c.Workload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListAll returns the full chef pool in ID order.
func (s *Store) ListAll(ctx context.Context) ([]Chef, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, base_lat, base_lng, min_guests, max_guests, rating, workload
        FROM chefs
        ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chef
	for rows.Next() {
		var c Chef
		if err := rows.Scan(&c.ID, &c.Name, &c.Base.Lat, &c.Base.Lng, &c.MinGuests, &c.MaxGuests, &c.Rating, &c.Workload); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCommitment persists a reservation the calendar arena already granted
// and bumps the chef's workload counter.
func (s *Store) SaveCommitment(ctx context.Context, chefID types.ID, cm Commitment) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO chef_commitments (chef_id, booking_id, window_start, window_end, venue_lat, venue_lng)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		string(chefID), string(cm.BookingID), cm.Window.Start, cm.Window.End, cm.Venue.Lat, cm.Venue.Lng,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE chefs SET workload = workload + 1 WHERE id = $1`, string(chefID))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteCommitment removes a persisted reservation, compensating a released
// calendar entry.
func (s *Store) DeleteCommitment(ctx context.Context, chefID, bookingID types.ID) error {
	tag, err := s.db.Exec(ctx, `
        DELETE FROM chef_commitments WHERE chef_id = $1 AND booking_id = $2`,
		string(chefID), string(bookingID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		_, err = s.db.Exec(ctx, `UPDATE chefs SET workload = GREATEST(workload - 1, 0) WHERE id = $1`, string(chefID))
	}
	return err
}

// LoadCommitments hydrates the calendar arena with every persisted window.
func (s *Store) LoadCommitments(ctx context.Context, cal *Calendar) error {
	rows, err := s.db.Query(ctx, `
        SELECT chef_id, booking_id, window_start, window_end, venue_lat, venue_lng
        FROM chef_commitments`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var chefID, bookingID string
		var cm Commitment
		if err := rows.Scan(&chefID, &bookingID, &cm.Window.Start, &cm.Window.End, &cm.Venue.Lat, &cm.Venue.Lng); err != nil {
			return err
		}
		cm.BookingID = types.ID(bookingID)
		cal.Register(types.ID(chefID))
		if err := cal.Reserve(types.ID(chefID), cm.BookingID, cm.Window, cm.Venue); err != nil {
			return err
		}
	}
	return rows.Err()
}
