// README: Escrow ledger service; per-stage release, whole-order refund, invariant checks.
package escrow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gofer/internal/types"
)

var (
	ErrNotFound   = errors.New("order has no escrow")
	ErrBadRequest = errors.New("bad request")
	// ErrInvariant means a write would push Σrelease+Σrefund above
	// Σhold. Never clamped: it indicates a bug upstream or a storage
	// race that slipped past the idempotency guard.
	ErrInvariant = errors.New("escrow invariant violation")
)

// Log is the append-only transaction store. InsertReleaseIfAbsent must
// be atomic at the write layer (a check followed by a separate insert
// reopens the double-release race under at-least-once delivery).
type Log interface {
	Append(ctx context.Context, tx *Transaction) error
	InsertReleaseIfAbsent(ctx context.Context, tx *Transaction) (*Transaction, bool, error)
	GetRelease(ctx context.Context, orderID, stageID types.ID) (*Transaction, error)
	SumByOrder(ctx context.Context, orderID types.ID) (Sums, error)
	ListByOrder(ctx context.Context, orderID types.ID) ([]*Transaction, error)
	SetOrderEscrowStatus(ctx context.Context, orderID types.ID, status Status) error
}

// StageCounter reports the size of an order's stage plan, needed for
// the equal-division release amount.
type StageCounter interface {
	Count(ctx context.Context, orderID types.ID) (int, error)
}

type Service struct {
	log    Log
	stages StageCounter
}

func NewService(log Log, stages StageCounter) *Service {
	return &Service{log: log, stages: stages}
}

type HoldCommand struct {
	OrderID  types.ID
	Amount   int64
	Currency string
}

// Hold records captured payment funds for an order. Called once at
// payment-capture time, not per stage.
func (s *Service) Hold(ctx context.Context, cmd HoldCommand) (*Transaction, error) {
	if cmd.OrderID == "" || cmd.Amount < 0 || cmd.Currency == "" {
		return nil, ErrBadRequest
	}
	now := time.Now()
	tx := &Transaction{
		ID:          newID(),
		OrderID:     cmd.OrderID,
		Type:        TxHold,
		Amount:      cmd.Amount,
		Currency:    cmd.Currency,
		Status:      TxCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := s.log.Append(ctx, tx); err != nil {
		return nil, err
	}
	return tx, s.recompute(ctx, cmd.OrderID)
}

type ReleaseCommand struct {
	OrderID types.ID
	StageID types.ID
	// Seq is the stage's sequence number; the last stage absorbs the
	// division remainder.
	Seq int
}

// ReleaseForStage unlocks this stage's share of the held funds: the
// hold divided equally across all stages, with the integer remainder
// going to the last stage so the releases sum exactly to the hold and
// never beyond it. Safe under at-least-once delivery: a duplicate call
// returns the existing release unchanged.
func (s *Service) ReleaseForStage(ctx context.Context, cmd ReleaseCommand) (*Transaction, error) {
	if cmd.OrderID == "" || cmd.StageID == "" || cmd.Seq < 1 {
		return nil, ErrBadRequest
	}
	// Duplicate completion event fast path; the earlier release stands.
	if existing, err := s.log.GetRelease(ctx, cmd.OrderID, cmd.StageID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	sums, err := s.log.SumByOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if sums.Held == 0 {
		return nil, ErrNotFound
	}
	total, err := s.stages.Count(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if total < 1 || cmd.Seq > total {
		return nil, ErrBadRequest
	}

	amount := sums.Held / int64(total)
	if cmd.Seq == total {
		amount = sums.Held - amount*int64(total-1)
	}
	if sums.Released+sums.Refunded+amount > sums.Held {
		return nil, ErrInvariant
	}

	now := time.Now()
	stageID := cmd.StageID
	tx := &Transaction{
		ID:          newID(),
		OrderID:     cmd.OrderID,
		StageID:     &stageID,
		Type:        TxRelease,
		Amount:      amount,
		Currency:    sums.Currency,
		Status:      TxCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	// The conditional insert closes the race window left between the
	// fast path read above and this write.
	existing, inserted, err := s.log.InsertReleaseIfAbsent(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return existing, nil
	}
	return tx, s.recompute(ctx, cmd.OrderID)
}

// Refund returns the whole remaining balance to the payer, independent
// of other stages' progress. A zero remaining balance is a no-op and
// reports (nil, nil).
func (s *Service) Refund(ctx context.Context, orderID types.ID) (*Transaction, error) {
	if orderID == "" {
		return nil, ErrBadRequest
	}
	sums, err := s.log.SumByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	remaining := sums.Remaining()
	if remaining < 0 {
		return nil, ErrInvariant
	}
	if remaining == 0 {
		return nil, nil
	}
	now := time.Now()
	tx := &Transaction{
		ID:          newID(),
		OrderID:     orderID,
		Type:        TxRefund,
		Amount:      remaining,
		Currency:    sums.Currency,
		Status:      TxCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := s.log.Append(ctx, tx); err != nil {
		return nil, err
	}
	return tx, s.recompute(ctx, orderID)
}

// StatusOf returns the derived escrow status and the balance sums.
func (s *Service) StatusOf(ctx context.Context, orderID types.ID) (Status, Sums, error) {
	sums, err := s.log.SumByOrder(ctx, orderID)
	if err != nil {
		return StatusNone, Sums{}, err
	}
	return sums.Derive(), sums, nil
}

func (s *Service) List(ctx context.Context, orderID types.ID) ([]*Transaction, error) {
	return s.log.ListByOrder(ctx, orderID)
}

// recompute refreshes the cached order-level projection from the log
// sums. Always derived, never incremented, so concurrent writers
// converge on the same value.
func (s *Service) recompute(ctx context.Context, orderID types.ID) error {
	sums, err := s.log.SumByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return s.log.SetOrderEscrowStatus(ctx, orderID, sums.Derive())
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
