// README: Order service; finalizes drafts into orders and runs the executor gate.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gofer/internal/modules/intent"
	"gofer/internal/modules/stage"
	"gofer/internal/types"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrInvalidState     = errors.New("invalid order transition")
	ErrConflict         = errors.New("order state conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrPriceCapRequired = errors.New("trial order requires a price cap")
)

// Planner is the stage sequencer surface the order service needs.
type Planner interface {
	CreatePlan(ctx context.Context, orderID types.ID, entries []stage.PlanEntry) ([]*stage.Stage, error)
	AcceptAll(ctx context.Context, orderID, executorID types.ID) (int64, error)
	RejectAll(ctx context.Context, orderID types.ID) (int64, error)
}

// Pricer estimates the order total used for the escrow hold and the
// trial price-cap check.
type Pricer interface {
	EstimateOrder(ctx context.Context, entries []stage.PlanEntry) (types.Money, error)
}

// Geocoder resolves a stage address to a coordinate. May be nil when
// no maps key is configured.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Service struct {
	store   *Store
	stages  Planner
	pricing Pricer
	geo     Geocoder
}

func NewService(store *Store, stages Planner, pricing Pricer, geo Geocoder) *Service {
	return &Service{store: store, stages: stages, pricing: pricing, geo: geo}
}

// CreateFromDraft finalizes a draft: derives the structure type,
// validates trial constraints, generates the immutable stage plan, and
// opens the order in pending status awaiting the executor gate.
func (s *Service) CreateFromDraft(ctx context.Context, d *intent.Draft) (types.ID, error) {
	if d == nil || d.CustomerID == "" {
		return "", ErrBadRequest
	}
	if !d.Intent.Actionable() {
		return "", ErrBadRequest
	}
	snap := d.Snapshot()
	structure := snap.OrderType()

	entries, err := planEntries(d, structure)
	if err != nil {
		return "", err
	}
	if d.Intent == intent.IntentTry {
		c := intent.TryOrderConstraints()
		if len(entries) > c.StagesMax || d.Recurring != c.Recurring {
			return "", ErrBadRequest
		}
		if c.RequirePriceCap && d.PriceCap == nil {
			return "", ErrPriceCapRequired
		}
	}

	// Address resolution and pricing are best-effort: a missing
	// coordinate or estimate never blocks finalization.
	if s.geo != nil {
		for i := range entries {
			if entries[i].Coord == nil && entries[i].Address != "" {
				if p, err := s.geo.Geocode(ctx, entries[i].Address); err == nil {
					entries[i].Coord = &p
				}
			}
		}
	}
	total := types.Money{}
	if s.pricing != nil {
		if m, err := s.pricing.EstimateOrder(ctx, entries); err == nil {
			total = m
		}
	}

	id := newID()
	now := time.Now()
	o := &Order{
		ID:            id,
		CustomerID:    d.CustomerID,
		Intent:        d.Intent,
		StructureType: structure,
		RecipientType: d.RecipientType,
		Status:        StatusPending,
		Recurring:     d.Recurring,
		Experiment:    d.Experiment,
		Total:         total,
		PriceCap:      d.PriceCap,
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return "", err
	}
	if _, err := s.stages.CreatePlan(ctx, id, entries); err != nil {
		return "", err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    id,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "customer",
		ActorID:    &d.CustomerID,
		CreatedAt:  now,
	})
	return id, nil
}

// planEntries returns the draft's explicit plan, or generates the
// default plan for the structure when the draft has none. Chains have
// no meaningful default and must be spelled out.
func planEntries(d *intent.Draft, structure intent.OrderStructureType) ([]stage.PlanEntry, error) {
	if len(d.Stages) > 0 {
		entries := make([]stage.PlanEntry, len(d.Stages))
		for i, sp := range d.Stages {
			t := stage.Type(sp.Type)
			if !stage.ValidType(t) {
				return nil, ErrBadRequest
			}
			entries[i] = stage.PlanEntry{Type: t, Address: sp.Address, Coord: sp.Coord}
		}
		return entries, nil
	}
	switch structure {
	case intent.StructureDirect:
		return []stage.PlanEntry{{Type: stage.TypePickup}, {Type: stage.TypeDropoff}}, nil
	case intent.StructurePurchaseDeliver:
		return []stage.PlanEntry{{Type: stage.TypePurchase}, {Type: stage.TypeDropoff}}, nil
	default:
		return nil, ErrBadRequest
	}
}

type AcceptCommand struct {
	OrderID    types.ID
	ExecutorID types.ID
}

// Accept is the all-or-nothing intake gate: the order moves to
// in_progress and every pending stage becomes accepted.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) error {
	if cmd.ExecutorID == "" {
		return ErrBadRequest
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusInProgress) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusInProgress, o.StatusVersion, &cmd.ExecutorID, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	if _, err := s.stages.AcceptAll(ctx, o.ID, cmd.ExecutorID); err != nil {
		return err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   StatusInProgress,
		ActorType:  "executor",
		ActorID:    &cmd.ExecutorID,
		CreatedAt:  time.Now(),
	})
	return nil
}

type RejectCommand struct {
	OrderID    types.ID
	ExecutorID types.ID
	Reason     string
}

// Reject cancels the whole order at intake: every stage fails and the
// order is cancelled. Partial rejection is not supported.
func (s *Service) Reject(ctx context.Context, cmd RejectCommand) error {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return ErrInvalidState
	}
	reason := cmd.Reason
	if reason == "" {
		reason = "executor_reject"
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCancelled, o.StatusVersion, nil, &reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	if _, err := s.stages.RejectAll(ctx, o.ID); err != nil {
		return err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   StatusCancelled,
		ActorType:  "executor",
		ActorID:    &cmd.ExecutorID,
		CreatedAt:  time.Now(),
	})
	return nil
}

// Complete marks the order done once every stage has completed.
// Re-delivery safe: an already completed order is a no-op.
func (s *Service) Complete(ctx context.Context, orderID types.ID) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status == StatusCompleted {
		return nil
	}
	if !CanTransition(o.Status, StatusCompleted) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCompleted, o.StatusVersion, nil, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   StatusCompleted,
		ActorType:  "system",
		CreatedAt:  time.Now(),
	})
	return nil
}

// Fail terminates the order after a failed stage and closes the rest
// of the plan. Re-delivery safe like Complete.
func (s *Service) Fail(ctx context.Context, orderID types.ID, reason string) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status == StatusFailed {
		return nil
	}
	if !CanTransition(o.Status, StatusFailed) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusFailed, o.StatusVersion, nil, &reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	if _, err := s.stages.RejectAll(ctx, o.ID); err != nil {
		return err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   StatusFailed,
		ActorType:  "system",
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
