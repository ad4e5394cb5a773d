package redis

import (
	"context"
	"fmt"
	"time"

	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/repository"
)

var _ repository.ReminderLog = (*ReminderLog)(nil)

// ReminderLog keeps one key per resource, window and user. Keys expire after
// ttl, which only needs to outlive the window itself.
type ReminderLog struct {
	client RedisClient
	ttl    time.Duration
}

func NewReminderLog(client RedisClient, ttl time.Duration) *ReminderLog {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &ReminderLog{client: client, ttl: ttl}
}

func (r *ReminderLog) Claim(ctx context.Context, resourceID string, w model.Window, userID string) (bool, error) {
	return r.client.SetNX(ctx, reminderKey(resourceID, w, userID), time.Now().Unix(), r.ttl)
}

func (r *ReminderLog) Release(ctx context.Context, resourceID string, w model.Window, userID string) error {
	return r.client.Del(ctx, reminderKey(resourceID, w, userID))
}

func reminderKey(resourceID string, w model.Window, userID string) string {
	return fmt.Sprintf("reminder:%s:%s:%s", resourceID, w, userID)
}
