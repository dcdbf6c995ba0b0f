// README: Draft store and bounded analytics buffer backed by Redis.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gofer/internal/types"
)

const (
	draftKeyPrefix = "intent:draft:%s"
	analyticsKey   = "intent:analytics"
)

type Store struct {
	redis        *redis.Client
	draftTTL     time.Duration
	analyticsCap int64
}

func NewStore(redis *redis.Client, draftTTL time.Duration, analyticsCap int) *Store {
	return &Store{redis: redis, draftTTL: draftTTL, analyticsCap: int64(analyticsCap)}
}

func draftKey(id types.ID) string {
	return fmt.Sprintf(draftKeyPrefix, string(id))
}

func (s *Store) SaveDraft(ctx context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, draftKey(d.ID), raw, s.draftTTL).Err()
}

func (s *Store) GetDraft(ctx context.Context, id types.ID) (*Draft, error) {
	raw, err := s.redis.Get(ctx, draftKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id types.ID) error {
	return s.redis.Del(ctx, draftKey(id)).Err()
}

// AppendAnalytics pushes an event onto the analytics buffer and trims
// it to the retention cap, oldest entries first.
func (s *Store) AppendAnalytics(ctx context.Context, e AnalyticsEvent) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.redis.Pipeline()
	pipe.LPush(ctx, analyticsKey, raw)
	pipe.LTrim(ctx, analyticsKey, 0, s.analyticsCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentAnalytics returns up to n most recent analytics events.
func (s *Store) RecentAnalytics(ctx context.Context, n int64) ([]AnalyticsEvent, error) {
	rows, err := s.redis.LRange(ctx, analyticsKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]AnalyticsEvent, 0, len(rows))
	for _, row := range rows {
		var e AnalyticsEvent
		if err := json.Unmarshal([]byte(row), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
