// README: Intent vocabulary, order structure types, and draft state snapshot.
package intent

import (
    "time"

    "gofer/internal/types"
)

// Intent is the customer-declared purpose of an order.
type Intent string

const (
    IntentTask       Intent = "task"
    IntentBuy        Intent = "buy"
    IntentCoordinate Intent = "coordinate"
    IntentDiscover   Intent = "discover"
    IntentRate       Intent = "rate"
    IntentTry        Intent = "try"
)

// Actionable reports whether the intent produces an order.
// Discover and rate only navigate elsewhere.
func (i Intent) Actionable() bool {
    switch i {
    case IntentTask, IntentBuy, IntentCoordinate, IntentTry:
        return true
    }
    return false
}

// OrderStructureType is the internal fulfillment shape derived from
// intent and context. It is never set directly by a user.
type OrderStructureType string

const (
    StructureDirect          OrderStructureType = "direct"
    StructurePurchaseDeliver OrderStructureType = "purchase_deliver"
    StructureChain           OrderStructureType = "chain"
)

type RecipientType string

const (
    RecipientSelf       RecipientType = "self"
    RecipientThirdParty RecipientType = "third_party"
)

// OrderState is the snapshot the rules engine evaluates. It is
// re-derived from the evolving draft on every navigation step and
// never persisted on its own.
type OrderState struct {
    Intent         Intent
    HasPurchase    bool
    RecipientType  RecipientType
    StagesCount    int
    HasHandover    bool
    Recurring      bool
    ExperimentFlag bool
}

// OrderType returns the structure type derived from the snapshot.
func (s OrderState) OrderType() OrderStructureType {
    return DetermineOrderType(s.Intent, s.HasPurchase, s.RecipientType, s.StagesCount)
}

// Reason identifies which reclassification rule fired.
type Reason string

const (
    ReasonHasPurchase  Reason = "has_purchase"
    ReasonThirdParty   Reason = "third_party"
    ReasonAutoConvert  Reason = "auto_convert"
    ReasonComplexChain Reason = "complex_chain"
)

// PromptResult is the outcome of evaluating the reclassification rules.
// When AutoConvert is set the caller applies the conversion and shows a
// notice instead of a blocking choice.
type PromptResult struct {
    Show            bool
    SuggestedIntent Intent
    Reason          Reason
    AutoConvert     bool
}

// TryConstraints is the fixed policy applied to trial orders. The
// price cap itself is enforced at order finalization, not here.
type TryConstraints struct {
    StagesMax       int
    Recurring       bool
    RequirePriceCap bool
    ExperimentFlag  bool
}

// StagePlan is one planned fulfillment step inside a draft. Stage type
// values match the stage module vocabulary.
type StagePlan struct {
    Type    string       `json:"type"`
    Address string       `json:"address"`
    Coord   *types.Point `json:"coord,omitempty"`
    Note    string       `json:"note,omitempty"`
}

// Draft is an order under construction. It lives in Redis until the
// customer finalizes it into an order or abandons it.
type Draft struct {
    ID            types.ID      `json:"id"`
    CustomerID    types.ID      `json:"customer_id"`
    Intent        Intent        `json:"intent"`
    RecipientType RecipientType `json:"recipient_type"`
    HasPurchase   bool          `json:"has_purchase"`
    Recurring     bool          `json:"recurring"`
    Experiment    bool          `json:"experiment"`
    PriceCap      *types.Money  `json:"price_cap,omitempty"`
    Stages        []StagePlan   `json:"stages"`
    CreatedAt     time.Time     `json:"created_at"`
    UpdatedAt     time.Time     `json:"updated_at"`
}

// Snapshot derives the rules-engine input from the draft.
func (d *Draft) Snapshot() OrderState {
    hasPurchase := d.HasPurchase
    hasHandover := false
    for _, sp := range d.Stages {
        switch sp.Type {
        case "purchase":
            hasPurchase = true
        case "handover":
            hasHandover = true
        }
    }
    return OrderState{
        Intent:         d.Intent,
        HasPurchase:    hasPurchase,
        RecipientType:  d.RecipientType,
        StagesCount:    len(d.Stages),
        HasHandover:    hasHandover,
        Recurring:      d.Recurring,
        ExperimentFlag: d.Experiment,
    }
}

// AnalyticsEvent is one entry in the bounded intent analytics buffer.
type AnalyticsEvent struct {
    DraftID    types.ID  `json:"draft_id"`
    CustomerID types.ID  `json:"customer_id"`
    FromIntent Intent    `json:"from_intent"`
    ToIntent   Intent    `json:"to_intent"`
    Reason     Reason    `json:"reason"`
    Auto       bool      `json:"auto"`
    CreatedAt  time.Time `json:"created_at"`
}
