// README: Notification store backed by Redis lists and pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gofer/internal/types"
)

const (
	inboxKeyPrefix = "notify:user:%s"
	channelPrefix  = "notify:channel:%s"
	// Inboxes are capped; delivery receipts live elsewhere.
	inboxCap = 200
	inboxTTL = 30 * 24 * time.Hour
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// Push appends the notification to the user's inbox and publishes it
// for any live subscriber (push gateway, websocket fan-out).
func (s *Store) Push(ctx context.Context, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	inbox := fmt.Sprintf(inboxKeyPrefix, string(n.UserID))
	pipe := s.redis.Pipeline()
	pipe.LPush(ctx, inbox, raw)
	pipe.LTrim(ctx, inbox, 0, inboxCap-1)
	pipe.Expire(ctx, inbox, inboxTTL)
	pipe.Publish(ctx, fmt.Sprintf(channelPrefix, string(n.UserID)), raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n most recent notifications for a user.
func (s *Store) Recent(ctx context.Context, userID types.ID, n int64) ([]Notification, error) {
	rows, err := s.redis.LRange(ctx, fmt.Sprintf(inboxKeyPrefix, string(userID)), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(rows))
	for _, row := range rows {
		var note Notification
		if err := json.Unmarshal([]byte(row), &note); err != nil {
			continue
		}
		out = append(out, note)
	}
	return out, nil
}
