// README: Notification service; fire-and-forget from the caller's perspective.
package notify

import (
	"context"
	"time"

	"gofer/internal/types"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Notify delivers a notification. Callers treat failures as
// non-fatal: a lost notification never rolls back order or escrow
// state.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return s.store.Push(ctx, n)
}

func (s *Service) Recent(ctx context.Context, userID types.ID, n int64) ([]Notification, error) {
	return s.store.Recent(ctx, userID, n)
}
