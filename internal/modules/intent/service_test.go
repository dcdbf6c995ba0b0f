// README: Draft service tests with an in-memory store.
package intent

import (
	"context"
	"sync"
	"testing"

	"gofer/internal/types"
)

type memDraftStore struct {
	mu        sync.Mutex
	drafts    map[types.ID]*Draft
	analytics []AnalyticsEvent
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: make(map[types.ID]*Draft)}
}

func (m *memDraftStore) SaveDraft(_ context.Context, d *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.drafts[d.ID] = &cp
	return nil
}

func (m *memDraftStore) GetDraft(_ context.Context, id types.ID) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDraftStore) DeleteDraft(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

func (m *memDraftStore) AppendAnalytics(_ context.Context, e AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analytics = append(m.analytics, e)
	return nil
}

func TestCreateDraft(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == "" {
		t.Fatal("expected generated id")
	}
	if d.RecipientType != RecipientSelf {
		t.Fatalf("expected default recipient self, got %s", d.RecipientType)
	}

	got, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Intent != IntentTask {
		t.Fatalf("expected task, got %s", got.Intent)
	}
}

func TestCreateDraftNonActionable(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	for _, in := range []Intent{IntentDiscover, IntentRate} {
		if _, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: in}); err != ErrNotActionable {
			t.Errorf("intent %s: expected ErrNotActionable, got %v", in, err)
		}
	}
	if _, err := svc.CreateDraft(ctx, CreateDraftCommand{Intent: IntentTask}); err != ErrBadRequest {
		t.Errorf("missing customer: expected ErrBadRequest, got %v", err)
	}
}

func TestCreateTryDraftSetsExperiment(t *testing.T) {
	svc := NewService(newMemDraftStore())
	d, err := svc.CreateDraft(context.Background(), CreateDraftCommand{CustomerID: "c1", Intent: IntentTry})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !d.Experiment {
		t.Fatal("expected experiment flag on trial draft")
	}
}

func TestUpdateDraftReturnsPrompt(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, prompt, err := svc.UpdateDraft(ctx, UpdateDraftCommand{DraftID: d.ID, HasPurchase: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !prompt.Show || prompt.SuggestedIntent != IntentBuy || prompt.Reason != ReasonHasPurchase {
		t.Fatalf("expected has_purchase prompt suggesting buy, got %+v", prompt)
	}

	// Adding a purchase stage to the plan is equivalent to the flag.
	d2, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, prompt, err = svc.UpdateDraft(ctx, UpdateDraftCommand{
		DraftID: d2.ID,
		Stages:  []StagePlan{{Type: "purchase"}, {Type: "dropoff"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !prompt.Show || prompt.Reason != ReasonHasPurchase {
		t.Fatalf("expected has_purchase prompt from plan, got %+v", prompt)
	}
}

func TestAdvanceAutoConverts(t *testing.T) {
	store := newMemDraftStore()
	svc := NewService(store)
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{
		CustomerID:    "c1",
		Intent:        IntentBuy,
		RecipientType: RecipientThirdParty,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, prompt, err := svc.Advance(ctx, d.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !prompt.AutoConvert {
		t.Fatalf("expected auto-convert prompt, got %+v", prompt)
	}
	if got.Intent != IntentCoordinate {
		t.Fatalf("expected draft converted to coordinate, got %s", got.Intent)
	}

	if len(store.analytics) != 1 {
		t.Fatalf("expected 1 analytics event, got %d", len(store.analytics))
	}
	ev := store.analytics[0]
	if ev.FromIntent != IntentBuy || ev.ToIntent != IntentCoordinate || !ev.Auto {
		t.Fatalf("unexpected analytics event: %+v", ev)
	}
}

func TestAdvanceWithoutPromptLeavesDraft(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, prompt, err := svc.Advance(ctx, d.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if prompt.Show {
		t.Fatalf("expected no prompt, got %+v", prompt)
	}
	if got.Intent != IntentTask {
		t.Fatalf("expected intent unchanged, got %s", got.Intent)
	}
}

func TestAdvanceBlocksOnNonAutoPrompt(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.UpdateDraft(ctx, UpdateDraftCommand{DraftID: d.ID, HasPurchase: true}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, prompt, err := svc.Advance(ctx, d.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !prompt.Show || prompt.AutoConvert {
		t.Fatalf("expected blocking prompt, got %+v", prompt)
	}
	// Non-auto suggestions wait for the customer's confirmation.
	if got.Intent != IntentTask {
		t.Fatalf("expected intent unchanged until confirmed, got %s", got.Intent)
	}
}

func TestConvertToTryTrimsPlan(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.UpdateDraft(ctx, UpdateDraftCommand{
		DraftID:   d.ID,
		Recurring: true,
		Stages: []StagePlan{
			{Type: "pickup"}, {Type: "dropoff"}, {Type: "handover"}, {Type: "dropoff"},
		},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.Convert(ctx, d.ID, IntentTry)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Intent != IntentTry {
		t.Fatalf("expected try, got %s", got.Intent)
	}
	if len(got.Stages) != 2 {
		t.Fatalf("expected plan trimmed to 2 stages, got %d", len(got.Stages))
	}
	if got.Recurring {
		t.Error("expected recurring cleared")
	}
	if !got.Experiment {
		t.Error("expected experiment flag set")
	}

	// Converting again is a no-op on the draft state.
	again, err := svc.Convert(ctx, d.ID, IntentTry)
	if err != nil {
		t.Fatalf("second convert: %v", err)
	}
	if again.Intent != IntentTry || len(again.Stages) != 2 {
		t.Fatalf("expected unchanged draft, got %+v", again)
	}
}

func TestConvertRejectsNonActionable(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Convert(ctx, d.ID, IntentDiscover); err != ErrNotActionable {
		t.Fatalf("expected ErrNotActionable, got %v", err)
	}
}

func TestDiscardDraft(t *testing.T) {
	svc := NewService(newMemDraftStore())
	ctx := context.Background()

	d, err := svc.CreateDraft(ctx, CreateDraftCommand{CustomerID: "c1", Intent: IntentTask})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Discard(ctx, d.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := svc.Get(ctx, d.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after discard, got %v", err)
	}
}
