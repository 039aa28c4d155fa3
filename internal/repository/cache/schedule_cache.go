package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// scheduleTTL bounds staleness if an invalidation is ever missed
const scheduleTTL = 15 * time.Minute

// ScheduleCache caches JSON-encoded repayment schedules in Redis. Entries
// are invalidated whenever a repayment changes the schedule.
type ScheduleCache struct {
	client *redis.Client
}

// NewScheduleCache creates a ScheduleCache on the given Redis address
func NewScheduleCache(addr, password string) *ScheduleCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &ScheduleCache{client: client}
}

// Ping verifies the Redis connection
func (c *ScheduleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection
func (c *ScheduleCache) Close() error {
	return c.client.Close()
}

func scheduleKey(loanID int32) string {
	return fmt.Sprintf("loan:%d:schedule", loanID)
}

// Get returns the cached schedule for a loan, or (nil, nil) on a miss
func (c *ScheduleCache) Get(ctx context.Context, loanID int32) ([]*domain.RepaymentScheduleEntry, error) {
	data, err := c.client.Get(ctx, scheduleKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []*domain.RepaymentScheduleEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Treat a corrupt payload as a miss
		return nil, nil
	}
	return entries, nil
}

// Set stores a loan's schedule
func (c *ScheduleCache) Set(ctx context.Context, loanID int32, entries []*domain.RepaymentScheduleEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(loanID), data, scheduleTTL).Err()
}

// Invalidate drops a loan's cached schedule
func (c *ScheduleCache) Invalidate(ctx context.Context, loanID int32) error {
	return c.client.Del(ctx, scheduleKey(loanID)).Err()
}
