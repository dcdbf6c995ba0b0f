// README: Draft lifecycle service; evaluates reclassification rules before forward navigation.
package intent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gofer/internal/types"
)

var (
	ErrNotFound      = errors.New("draft not found")
	ErrBadRequest    = errors.New("bad request")
	ErrNotActionable = errors.New("intent does not produce an order")
)

// DraftStore is the persistence contract for drafts and the analytics
// buffer. Implemented by the Redis-backed Store.
type DraftStore interface {
	SaveDraft(ctx context.Context, d *Draft) error
	GetDraft(ctx context.Context, id types.ID) (*Draft, error)
	DeleteDraft(ctx context.Context, id types.ID) error
	AppendAnalytics(ctx context.Context, e AnalyticsEvent) error
}

type Service struct {
	store DraftStore
}

func NewService(store DraftStore) *Service {
	return &Service{store: store}
}

type CreateDraftCommand struct {
	CustomerID    types.ID
	Intent        Intent
	RecipientType RecipientType
}

type UpdateDraftCommand struct {
	DraftID       types.ID
	RecipientType RecipientType
	HasPurchase   bool
	Recurring     bool
	PriceCap      *types.Money
	Stages        []StagePlan
}

// CreateDraft opens a new draft for an actionable intent. Discover and
// rate never produce an order and are rejected here.
func (s *Service) CreateDraft(ctx context.Context, cmd CreateDraftCommand) (*Draft, error) {
	if cmd.CustomerID == "" {
		return nil, ErrBadRequest
	}
	if !cmd.Intent.Actionable() {
		return nil, ErrNotActionable
	}
	recipient := cmd.RecipientType
	if recipient == "" {
		recipient = RecipientSelf
	}
	now := time.Now()
	d := &Draft{
		ID:            newID(),
		CustomerID:    cmd.CustomerID,
		Intent:        cmd.Intent,
		RecipientType: recipient,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cmd.Intent == IntentTry {
		d.Experiment = true
	}
	if err := s.store.SaveDraft(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDraft applies edits and returns the draft together with the
// rules-engine verdict for the new state. The caller decides whether
// to surface the prompt now or at the next forward navigation.
func (s *Service) UpdateDraft(ctx context.Context, cmd UpdateDraftCommand) (*Draft, PromptResult, error) {
	d, err := s.store.GetDraft(ctx, cmd.DraftID)
	if err != nil {
		return nil, PromptResult{}, err
	}
	if cmd.RecipientType != "" {
		d.RecipientType = cmd.RecipientType
	}
	d.HasPurchase = cmd.HasPurchase
	d.Recurring = cmd.Recurring
	if cmd.PriceCap != nil {
		d.PriceCap = cmd.PriceCap
	}
	if cmd.Stages != nil {
		d.Stages = cmd.Stages
	}
	d.UpdatedAt = time.Now()
	if err := s.store.SaveDraft(ctx, d); err != nil {
		return nil, PromptResult{}, err
	}
	return d, ShouldShowPrompt(d.Snapshot()), nil
}

// Advance is the forward-navigation gate. A non-auto suggestion is
// returned for the customer to confirm or dismiss; an auto-convert
// suggestion is applied immediately and reported as a notice.
func (s *Service) Advance(ctx context.Context, draftID types.ID) (*Draft, PromptResult, error) {
	d, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, PromptResult{}, err
	}
	res := ShouldShowPrompt(d.Snapshot())
	if !res.Show {
		return d, res, nil
	}
	if res.AutoConvert {
		d, err = s.convert(ctx, d, res)
		if err != nil {
			return nil, PromptResult{}, err
		}
	}
	return d, res, nil
}

// Convert applies a suggested reclassification the customer confirmed.
func (s *Service) Convert(ctx context.Context, draftID types.ID, suggested Intent) (*Draft, error) {
	if !suggested.Actionable() {
		return nil, ErrNotActionable
	}
	d, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	res := PromptResult{SuggestedIntent: suggested}
	if r := ShouldShowPrompt(d.Snapshot()); r.Show && r.SuggestedIntent == suggested {
		res = r
	}
	return s.convert(ctx, d, res)
}

// convert rewrites the draft's intent and records an analytics event.
// Applying the same suggestion twice leaves the draft unchanged.
func (s *Service) convert(ctx context.Context, d *Draft, res PromptResult) (*Draft, error) {
	from := d.Intent
	d.Intent = res.SuggestedIntent
	if res.SuggestedIntent == IntentTry {
		c := TryOrderConstraints()
		if len(d.Stages) > c.StagesMax {
			d.Stages = d.Stages[:c.StagesMax]
		}
		d.Recurring = c.Recurring
		d.Experiment = c.ExperimentFlag
	}
	d.UpdatedAt = time.Now()
	if err := s.store.SaveDraft(ctx, d); err != nil {
		return nil, err
	}
	// Analytics are advisory; a buffer write failure never blocks the
	// customer flow.
	_ = s.store.AppendAnalytics(ctx, AnalyticsEvent{
		DraftID:    d.ID,
		CustomerID: d.CustomerID,
		FromIntent: from,
		ToIntent:   d.Intent,
		Reason:     res.Reason,
		Auto:       res.AutoConvert,
		CreatedAt:  time.Now(),
	})
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Draft, error) {
	return s.store.GetDraft(ctx, id)
}

func (s *Service) Discard(ctx context.Context, id types.ID) error {
	return s.store.DeleteDraft(ctx, id)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
