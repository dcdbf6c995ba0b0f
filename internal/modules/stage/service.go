// README: Stage sequencer; owns the ordered plan and legal transitions.
package stage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"gofer/internal/types"
)

var (
	ErrNotFound     = errors.New("stage not found")
	ErrInvalidState = errors.New("invalid stage transition")
	ErrConflict     = errors.New("stage state conflict")
	ErrBadPlan      = errors.New("invalid stage plan")
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// PlanEntry describes one step of a plan about to be finalized.
type PlanEntry struct {
	Type    Type
	Address string
	Coord   *types.Point
}

// CreatePlan persists the immutable stage set for a finalized order.
// Sequence numbers are assigned contiguously from 1 in entry order.
func (s *Service) CreatePlan(ctx context.Context, orderID types.ID, entries []PlanEntry) ([]*Stage, error) {
	if len(entries) == 0 {
		return nil, ErrBadPlan
	}
	stages := make([]*Stage, len(entries))
	for i, e := range entries {
		if !ValidType(e.Type) {
			return nil, ErrBadPlan
		}
		stages[i] = &Stage{
			ID:      newID(),
			OrderID: orderID,
			Seq:     i + 1,
			Type:    e.Type,
			Status:  StatusPending,
			Address: e.Address,
			Coord:   e.Coord,
		}
	}
	if err := s.store.CreateAll(ctx, stages); err != nil {
		return nil, err
	}
	return stages, nil
}

type TransitionCommand struct {
	OrderID    types.ID
	Seq        int
	To         Status
	ExecutorID *types.ID
}

// Transition moves one stage along the state machine. The read + CAS
// write pair means a racing writer loses with ErrConflict instead of
// producing an illegal double transition.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Stage, error) {
	st, err := s.store.GetBySeq(ctx, cmd.OrderID, cmd.Seq)
	if err != nil {
		return nil, err
	}
	if !CanTransition(st.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, cmd.OrderID, cmd.Seq, st.Status, cmd.To, cmd.ExecutorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	return s.store.GetBySeq(ctx, cmd.OrderID, cmd.Seq)
}

// AcceptAll flips every pending stage to accepted. All-or-nothing: the
// executor takes the whole order or none of it.
func (s *Service) AcceptAll(ctx context.Context, orderID, executorID types.ID) (int64, error) {
	return s.store.AcceptAllPending(ctx, orderID, executorID)
}

// RejectAll fails every non-terminal stage.
func (s *Service) RejectAll(ctx context.Context, orderID types.ID) (int64, error) {
	return s.store.FailAllOpen(ctx, orderID)
}

// AllCompleted reports whether every stage of the order has completed.
func (s *Service) AllCompleted(ctx context.Context, orderID types.ID) (bool, error) {
	open, err := s.store.CountOpen(ctx, orderID)
	if err != nil {
		return false, err
	}
	return open == 0, nil
}

// Count returns the size of the order's stage plan.
func (s *Service) Count(ctx context.Context, orderID types.ID) (int, error) {
	return s.store.CountByOrder(ctx, orderID)
}

func (s *Service) List(ctx context.Context, orderID types.ID) ([]*Stage, error) {
	return s.store.ListByOrder(ctx, orderID)
}

func (s *Service) Get(ctx context.Context, orderID types.ID, seq int) (*Stage, error) {
	return s.store.GetBySeq(ctx, orderID, seq)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
