// README: Escalation queue backed by PostgreSQL; the human ops team drains it.
package escalation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"banquet/internal/types"
)

var ErrNotFound = errors.New("escalation not found")

type Item struct {
	ID        types.ID
	BookingID types.ID
	Reason    string
	Resolved  bool
	CreatedAt time.Time
}

type PgQueue struct {
	db *pgxpool.Pool
}

func NewPgQueue(db *pgxpool.Pool) *PgQueue {
	return &PgQueue{db: db}
}

// EscalateToHuman enqueues the booking for manual handling. Implements the
// booking service's Escalator.
func (q *PgQueue) EscalateToHuman(ctx context.Context, bookingID types.ID, reason string) error {
	_, err := q.db.Exec(ctx, `
        INSERT INTO escalations (id, booking_id, reason, resolved, created_at)
        VALUES ($1, $2, $3, FALSE, $4)`,
		uuid.NewString(), string(bookingID), reason, time.Now(),
	)
	return err
}

// ListOpen returns unresolved escalations, oldest first.
func (q *PgQueue) ListOpen(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, booking_id, reason, resolved, created_at
        FROM escalations
        WHERE resolved = FALSE
        ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.BookingID, &it.Reason, &it.Resolved, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Resolve marks an escalation handled.
func (q *PgQueue) Resolve(ctx context.Context, id types.ID) error {
	tag, err := q.db.Exec(ctx, `
        UPDATE escalations SET resolved = TRUE WHERE id = $1 AND resolved = FALSE`,
		string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
