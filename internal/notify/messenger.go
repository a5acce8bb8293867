// README: Customer messaging over Redis pub/sub; consumers fan out to SMS/push.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"banquet/internal/modules/suggest"
	"banquet/internal/types"
)

const (
	offerChannel        = "banquet:offers"
	notificationChannel = "banquet:notifications"
)

type RedisMessenger struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedisMessenger(rdb *redis.Client, timeout time.Duration) *RedisMessenger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisMessenger{rdb: rdb, timeout: timeout}
}

type offerPayload struct {
	CustomerID   types.ID            `json:"customer_id"`
	Candidates   []suggest.Candidate `json:"candidates"`
	IncentivePct float64             `json:"incentive_pct"`
	Deadline     time.Time           `json:"deadline"`
}

func (m *RedisMessenger) SendOffer(ctx context.Context, customerID types.ID, candidates []suggest.Candidate, incentivePct float64, deadline time.Time) error {
	body, err := json.Marshal(offerPayload{
		CustomerID:   customerID,
		Candidates:   candidates,
		IncentivePct: incentivePct,
		Deadline:     deadline,
	})
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.rdb.Publish(callCtx, offerChannel, body).Err()
}

type escalatedPayload struct {
	CustomerID types.ID `json:"customer_id"`
	BookingID  types.ID `json:"booking_id"`
	Kind       string   `json:"kind"`
}

func (m *RedisMessenger) NotifyEscalated(ctx context.Context, customerID types.ID, bookingID types.ID) error {
	body, err := json.Marshal(escalatedPayload{
		CustomerID: customerID,
		BookingID:  bookingID,
		Kind:       "escalated",
	})
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.rdb.Publish(callCtx, notificationChannel, body).Err()
}
