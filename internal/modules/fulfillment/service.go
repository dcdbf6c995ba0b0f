// README: Fulfillment orchestrator; reacts to stage-status events, drives escrow and order status.
package fulfillment

import (
	"context"
	"errors"
	"log"

	"gofer/internal/modules/escrow"
	"gofer/internal/modules/notify"
	"gofer/internal/modules/order"
	"gofer/internal/modules/stage"
	"gofer/internal/types"
)

// StageStatusChanged is the sole inbound event: an external actor
// reports that a stage of an order reached a new status.
type StageStatusChanged struct {
	OrderID    types.ID
	Seq        int
	NewStatus  stage.Status
	ExecutorID *types.ID
}

// Sequencer is the stage surface the orchestrator consumes.
type Sequencer interface {
	Get(ctx context.Context, orderID types.ID, seq int) (*stage.Stage, error)
	Transition(ctx context.Context, cmd stage.TransitionCommand) (*stage.Stage, error)
	AllCompleted(ctx context.Context, orderID types.ID) (bool, error)
}

// Ledger is the escrow surface the orchestrator consumes.
type Ledger interface {
	Hold(ctx context.Context, cmd escrow.HoldCommand) (*escrow.Transaction, error)
	ReleaseForStage(ctx context.Context, cmd escrow.ReleaseCommand) (*escrow.Transaction, error)
	Refund(ctx context.Context, orderID types.ID) (*escrow.Transaction, error)
}

// Orders is the order surface the orchestrator consumes.
type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	Complete(ctx context.Context, id types.ID) error
	Fail(ctx context.Context, id types.ID, reason string) error
}

// Notifier delivers downstream notifications. Fire-and-forget: a
// delivery failure never rolls back stage or escrow state.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

type Service struct {
	orders   Orders
	stages   Sequencer
	ledger   Ledger
	notifier Notifier
}

func NewService(orders Orders, stages Sequencer, ledger Ledger, notifier Notifier) *Service {
	return &Service{orders: orders, stages: stages, ledger: ledger, notifier: notifier}
}

// HandleStageStatus applies one stage-status event. Safe under
// at-least-once delivery: a re-delivered event for a stage already in
// the target status still runs the escrow step (which is itself
// idempotent), so a previously failed ledger write gets retried
// instead of lost. A returned error means the caller must re-deliver
// the event; nil means the event is fully absorbed.
func (s *Service) HandleStageStatus(ctx context.Context, ev StageStatusChanged) error {
	o, err := s.orders.Get(ctx, ev.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		// Order deleted or archived concurrently; nothing to apply.
		return nil
	}
	if err != nil {
		return err
	}

	st, err := s.stages.Transition(ctx, stage.TransitionCommand{
		OrderID:    ev.OrderID,
		Seq:        ev.Seq,
		To:         ev.NewStatus,
		ExecutorID: ev.ExecutorID,
	})
	if errors.Is(err, stage.ErrInvalidState) || errors.Is(err, stage.ErrConflict) {
		// Duplicate or racing delivery: accept it only if the stage
		// already sits in the reported status.
		st, err = s.stages.Get(ctx, ev.OrderID, ev.Seq)
		if err != nil {
			return err
		}
		if st.Status != ev.NewStatus {
			return stage.ErrInvalidState
		}
	} else if err != nil {
		return err
	}

	switch ev.NewStatus {
	case stage.StatusCompleted:
		return s.stageCompleted(ctx, o, st)
	case stage.StatusFailed:
		return s.stageFailed(ctx, o, st)
	default:
		// accepted / in_progress: stage record updated, no escrow action.
		return nil
	}
}

// PaymentCaptured is the inbound signal from the payment gateway that
// funds were captured for an order.
type PaymentCaptured struct {
	OrderID  types.ID
	Amount   int64
	Currency string
}

// HandlePaymentCaptured records the escrow hold for a captured
// payment. The order must exist and not be terminal.
func (s *Service) HandlePaymentCaptured(ctx context.Context, ev PaymentCaptured) (*escrow.Transaction, error) {
	o, err := s.orders.Get(ctx, ev.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Terminal(o.Status) {
		return nil, order.ErrInvalidState
	}
	tx, err := s.ledger.Hold(ctx, escrow.HoldCommand{
		OrderID:  o.ID,
		Amount:   ev.Amount,
		Currency: ev.Currency,
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, o, "escrow", string(escrow.StatusHeld), map[string]any{
		"order_id": o.ID,
		"amount":   ev.Amount,
		"currency": ev.Currency,
	})
	return tx, nil
}

func (s *Service) stageCompleted(ctx context.Context, o *order.Order, st *stage.Stage) error {
	if _, err := s.ledger.ReleaseForStage(ctx, escrow.ReleaseCommand{
		OrderID: o.ID,
		StageID: st.ID,
		Seq:     st.Seq,
	}); err != nil {
		// The stage transition stands; the caller re-delivers the
		// event so the release is not skipped.
		return err
	}

	done, err := s.stages.AllCompleted(ctx, o.ID)
	if err != nil {
		return err
	}
	status := order.StatusInProgress
	if done {
		if err := s.orders.Complete(ctx, o.ID); err != nil {
			return err
		}
		status = order.StatusCompleted
	}

	s.emit(ctx, o, "order_status", string(status), map[string]any{
		"order_id":  o.ID,
		"stage_seq": st.Seq,
		"status":    status,
	})
	return nil
}

func (s *Service) stageFailed(ctx context.Context, o *order.Order, st *stage.Stage) error {
	// Whole-order refund of the remaining balance, unconditional on
	// other stages' progress.
	if _, err := s.ledger.Refund(ctx, o.ID); err != nil {
		return err
	}
	if err := s.orders.Fail(ctx, o.ID, "stage_failed"); err != nil {
		return err
	}

	s.emit(ctx, o, "order_status", string(order.StatusFailed), map[string]any{
		"order_id":  o.ID,
		"stage_seq": st.Seq,
		"status":    order.StatusFailed,
	})
	return nil
}

func (s *Service) emit(ctx context.Context, o *order.Order, typ, body string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, notify.Notification{
		UserID: o.CustomerID,
		Title:  "Order update",
		Body:   body,
		Type:   typ,
		Data:   data,
	})
	if err != nil {
		log.Printf("fulfillment: notify order %s: %v", o.ID, err)
	}
}
