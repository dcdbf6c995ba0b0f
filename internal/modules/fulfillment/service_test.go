// README: Orchestrator tests with faked order, stage, escrow, and notify surfaces.
package fulfillment

import (
	"context"
	"errors"
	"testing"

	"gofer/internal/modules/escrow"
	"gofer/internal/modules/notify"
	"gofer/internal/modules/order"
	"gofer/internal/modules/stage"
	"gofer/internal/types"
)

type fakeOrders struct {
	orders    map[types.ID]*order.Order
	completed []types.ID
	failed    []types.ID
}

func (f *fakeOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) Complete(_ context.Context, id types.ID) error {
	o, ok := f.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != order.StatusCompleted {
		if !order.CanTransition(o.Status, order.StatusCompleted) {
			return order.ErrInvalidState
		}
		o.Status = order.StatusCompleted
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeOrders) Fail(_ context.Context, id types.ID, _ string) error {
	o, ok := f.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != order.StatusFailed {
		if !order.CanTransition(o.Status, order.StatusFailed) {
			return order.ErrInvalidState
		}
		o.Status = order.StatusFailed
	}
	f.failed = append(f.failed, id)
	return nil
}

type fakeSequencer struct {
	stages  map[int]*stage.Stage
	allDone bool
}

func (f *fakeSequencer) Get(_ context.Context, _ types.ID, seq int) (*stage.Stage, error) {
	st, ok := f.stages[seq]
	if !ok {
		return nil, stage.ErrNotFound
	}
	return st, nil
}

func (f *fakeSequencer) Transition(_ context.Context, cmd stage.TransitionCommand) (*stage.Stage, error) {
	st, ok := f.stages[cmd.Seq]
	if !ok {
		return nil, stage.ErrNotFound
	}
	if !stage.CanTransition(st.Status, cmd.To) {
		return nil, stage.ErrInvalidState
	}
	st.Status = cmd.To
	return st, nil
}

func (f *fakeSequencer) AllCompleted(_ context.Context, _ types.ID) (bool, error) {
	return f.allDone, nil
}

type fakeLedger struct {
	holds      []escrow.HoldCommand
	releases   []escrow.ReleaseCommand
	refunds    []types.ID
	releaseErr error
	refundErr  error
}

func (f *fakeLedger) Hold(_ context.Context, cmd escrow.HoldCommand) (*escrow.Transaction, error) {
	f.holds = append(f.holds, cmd)
	return &escrow.Transaction{ID: "tx_hold", OrderID: cmd.OrderID, Type: escrow.TxHold, Amount: cmd.Amount}, nil
}

func (f *fakeLedger) ReleaseForStage(_ context.Context, cmd escrow.ReleaseCommand) (*escrow.Transaction, error) {
	if f.releaseErr != nil {
		return nil, f.releaseErr
	}
	f.releases = append(f.releases, cmd)
	return &escrow.Transaction{ID: "tx_release", OrderID: cmd.OrderID, Type: escrow.TxRelease}, nil
}

func (f *fakeLedger) Refund(_ context.Context, orderID types.ID) (*escrow.Transaction, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, orderID)
	return &escrow.Transaction{ID: "tx_refund", OrderID: orderID, Type: escrow.TxRefund}, nil
}

type fakeNotifier struct {
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func newFixture(stageStatus stage.Status, allDone bool) (*Service, *fakeOrders, *fakeSequencer, *fakeLedger, *fakeNotifier) {
	orders := &fakeOrders{orders: map[types.ID]*order.Order{
		"o1": {ID: "o1", CustomerID: "c1", Status: order.StatusInProgress},
	}}
	stages := &fakeSequencer{
		stages: map[int]*stage.Stage{
			1: {ID: "s1", OrderID: "o1", Seq: 1, Status: stageStatus},
			2: {ID: "s2", OrderID: "o1", Seq: 2, Status: stage.StatusAccepted},
		},
		allDone: allDone,
	}
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	return NewService(orders, stages, ledger, notifier), orders, stages, ledger, notifier
}

func TestStageCompletedReleasesShare(t *testing.T) {
	svc, orders, _, ledger, notifier := newFixture(stage.StatusInProgress, false)
	ctx := context.Background()

	err := svc.HandleStageStatus(ctx, StageStatusChanged{OrderID: "o1", Seq: 1, NewStatus: stage.StatusCompleted})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ledger.releases) != 1 {
		t.Fatalf("expected 1 release, got %d", len(ledger.releases))
	}
	rel := ledger.releases[0]
	if rel.OrderID != "o1" || rel.StageID != "s1" || rel.Seq != 1 {
		t.Fatalf("unexpected release command: %+v", rel)
	}
	// Other stages still open: the order stays in progress.
	if len(orders.completed) != 0 {
		t.Fatalf("expected no completion yet, got %v", orders.completed)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
}

func TestLastStageCompletesOrder(t *testing.T) {
	svc, orders, _, ledger, notifier := newFixture(stage.StatusInProgress, true)
	ctx := context.Background()

	err := svc.HandleStageStatus(ctx, StageStatusChanged{OrderID: "o1", Seq: 1, NewStatus: stage.StatusCompleted})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ledger.releases) != 1 {
		t.Fatalf("expected 1 release, got %d", len(ledger.releases))
	}
	if len(orders.completed) != 1 || orders.completed[0] != "o1" {
		t.Fatalf("expected order completed, got %v", orders.completed)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Body != string(order.StatusCompleted) {
		t.Fatalf("expected completion notification, got %+v", notifier.sent)
	}
}

func TestStageFailedRefundsAndFailsOrder(t *testing.T) {
	svc, orders, _, ledger, _ := newFixture(stage.StatusInProgress, false)
	ctx := context.Background()

	err := svc.HandleStageStatus(ctx, StageStatusChanged{OrderID: "o1", Seq: 1, NewStatus: stage.StatusFailed})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ledger.refunds) != 1 || ledger.refunds[0] != "o1" {
		t.Fatalf("expected refund for o1, got %v", ledger.refunds)
	}
	if len(orders.failed) != 1 || orders.failed[0] != "o1" {
		t.Fatalf("expected order failed, got %v", orders.failed)
	}
	if len(ledger.releases) != 0 {
		t.Fatalf("expected no releases, got %v", ledger.releases)
	}
}

func TestPreAcceptStageFailureFailsOrder(t *testing.T) {
	// An executor can report a stage failure before the intake gate
	// ran. The order must still terminalize, or the event poisons the
	// queue: every redelivery refunds and then trips on the order
	// transition again.
	svc, orders, _, ledger, _ := newFixture(stage.StatusPending, false)
	orders.orders["o1"].Status = order.StatusPending

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "o1", Seq: 1, NewStatus: stage.StatusFailed,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ledger.refunds) != 1 || ledger.refunds[0] != "o1" {
		t.Fatalf("expected refund for o1, got %v", ledger.refunds)
	}
	if orders.orders["o1"].Status != order.StatusFailed {
		t.Fatalf("expected order failed, got %s", orders.orders["o1"].Status)
	}
}

func TestUnknownOrderIsAbsorbed(t *testing.T) {
	svc, _, _, ledger, _ := newFixture(stage.StatusInProgress, false)

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "missing", Seq: 1, NewStatus: stage.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("expected nil for unknown order, got %v", err)
	}
	if len(ledger.releases) != 0 {
		t.Fatalf("expected no ledger activity, got %v", ledger.releases)
	}
}

func TestDuplicateCompletionStillReleases(t *testing.T) {
	// Stage already completed: the transition is rejected, but the
	// event matches the current status, so the escrow step runs again.
	svc, _, _, ledger, _ := newFixture(stage.StatusCompleted, true)

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "o1", Seq: 1, NewStatus: stage.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("duplicate event: %v", err)
	}
	if len(ledger.releases) != 1 {
		t.Fatalf("expected release retried, got %d", len(ledger.releases))
	}
}

func TestMismatchedDuplicateRejected(t *testing.T) {
	// Stage sits in completed but the event claims accepted: neither a
	// legal transition nor a duplicate.
	svc, _, _, ledger, _ := newFixture(stage.StatusCompleted, false)

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "o1", Seq: 1, NewStatus: stage.StatusAccepted,
	})
	if !errors.Is(err, stage.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(ledger.releases) != 0 {
		t.Fatalf("expected no releases, got %v", ledger.releases)
	}
}

func TestReleaseErrorPropagates(t *testing.T) {
	svc, orders, _, ledger, _ := newFixture(stage.StatusInProgress, true)
	ledger.releaseErr = errors.New("ledger down")

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "o1", Seq: 1, NewStatus: stage.StatusCompleted,
	})
	if err == nil {
		t.Fatal("expected error so the event gets re-delivered")
	}
	if len(orders.completed) != 0 {
		t.Fatalf("order must not complete when the release failed, got %v", orders.completed)
	}
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	svc, orders, _, _, notifier := newFixture(stage.StatusInProgress, true)
	notifier.err = errors.New("push service down")

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "o1", Seq: 1, NewStatus: stage.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("notification failure must not fail the event: %v", err)
	}
	if len(orders.completed) != 1 {
		t.Fatalf("expected order completed, got %v", orders.completed)
	}
}

func TestIntermediateStatusHasNoEscrowAction(t *testing.T) {
	svc, orders, stages, ledger, _ := newFixture(stage.StatusAccepted, false)

	err := svc.HandleStageStatus(context.Background(), StageStatusChanged{
		OrderID: "o1", Seq: 1, NewStatus: stage.StatusInProgress,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if stages.stages[1].Status != stage.StatusInProgress {
		t.Fatalf("expected stage in progress, got %s", stages.stages[1].Status)
	}
	if len(ledger.releases) != 0 || len(ledger.refunds) != 0 {
		t.Fatal("expected no ledger activity for intermediate status")
	}
	if len(orders.completed) != 0 || len(orders.failed) != 0 {
		t.Fatal("expected no order status change")
	}
}

func TestHandlePaymentCaptured(t *testing.T) {
	svc, _, _, ledger, notifier := newFixture(stage.StatusPending, false)
	ctx := context.Background()

	tx, err := svc.HandlePaymentCaptured(ctx, PaymentCaptured{OrderID: "o1", Amount: 30000, Currency: "TWD"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if tx == nil || tx.Type != escrow.TxHold {
		t.Fatalf("expected hold transaction, got %+v", tx)
	}
	if len(ledger.holds) != 1 || ledger.holds[0].Amount != 30000 {
		t.Fatalf("unexpected hold commands: %+v", ledger.holds)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}

	if _, err := svc.HandlePaymentCaptured(ctx, PaymentCaptured{OrderID: "missing", Amount: 1, Currency: "TWD"}); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("unknown order: expected ErrNotFound, got %v", err)
	}
}

func TestPaymentCapturedOnTerminalOrder(t *testing.T) {
	svc, orders, _, ledger, _ := newFixture(stage.StatusPending, false)
	orders.orders["o1"].Status = order.StatusCancelled

	_, err := svc.HandlePaymentCaptured(context.Background(), PaymentCaptured{OrderID: "o1", Amount: 30000, Currency: "TWD"})
	if !errors.Is(err, order.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(ledger.holds) != 0 {
		t.Fatalf("expected no hold on a cancelled order, got %+v", ledger.holds)
	}
}
