// README: Negotiation store backed by PostgreSQL; transitions use an optimistic guard.
package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"banquet/internal/modules/suggest"
	"banquet/internal/types"
)

var ErrNotFound = errors.New("negotiation not found")

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, r *Request) error {
	candidates, err := json.Marshal(r.Candidates)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO negotiations (
            id, booking_id, customer_id, candidates, incentive_pct,
            attempt, state, state_version, created_at, deadline
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(r.ID),
		string(r.BookingID),
		string(r.CustomerID),
		candidates,
		r.IncentivePct,
		r.Attempt,
		string(r.State),
		r.StateVersion,
		r.CreatedAt,
		r.Deadline,
	)
	return err
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Request, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, booking_id, customer_id, candidates, incentive_pct,
               attempt, state, state_version, created_at, deadline
        FROM negotiations
        WHERE id = $1`, string(id),
	)
	return scanRequest(row)
}

// UpdateState moves the request between states guarded by the current state
// and version; reports false when a concurrent transition won. The sweep and
// a late customer response both funnel through here, so the first transition
// out of pending wins.
func (s *PgStore) UpdateState(ctx context.Context, id types.ID, from, to State, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE negotiations
        SET state = $1, state_version = state_version + 1
        WHERE id = $2 AND state = $3 AND state_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredPending returns pending requests whose deadline has passed.
func (s *PgStore) ListExpiredPending(ctx context.Context, now time.Time) ([]*Request, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, booking_id, customer_id, candidates, incentive_pct,
               attempt, state, state_version, created_at, deadline
        FROM negotiations
        WHERE state = 'pending' AND deadline < $1`, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var candidates []byte
	err := row.Scan(
		&r.ID, &r.BookingID, &r.CustomerID, &candidates, &r.IncentivePct,
		&r.Attempt, &r.State, &r.StateVersion, &r.CreatedAt, &r.Deadline,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		var cs []suggest.Candidate
		if err := json.Unmarshal(candidates, &cs); err != nil {
			return nil, err
		}
		r.Candidates = cs
	}
	return &r, nil
}
