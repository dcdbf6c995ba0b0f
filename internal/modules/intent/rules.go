// README: Pure intent classification and reclassification rules.
package intent

// DetermineOrderType maps a declared intent plus draft context onto the
// structure type that fulfillment will use. Total over its domain:
// every input combination resolves, first matching rule wins.
func DetermineOrderType(in Intent, hasPurchase bool, recipient RecipientType, stagesCount int) OrderStructureType {
    switch {
    case in == IntentCoordinate:
        return StructureChain
    case in == IntentBuy && recipient == RecipientThirdParty:
        return StructureChain
    case in == IntentBuy:
        return StructurePurchaseDeliver
    case in == IntentTask && !hasPurchase && recipient == RecipientSelf:
        return StructureDirect
    case in == IntentTask && hasPurchase:
        return StructurePurchaseDeliver
    case in == IntentTry && hasPurchase:
        return StructurePurchaseDeliver
    case in == IntentTry:
        return StructureDirect
    case stagesCount >= 3:
        return StructureChain
    default:
        return StructureDirect
    }
}

// promptRule is one predicate→suggestion pair. Rules are evaluated in
// slice order and the first match wins, so a state satisfying several
// rules always surfaces exactly one suggestion.
type promptRule struct {
    reason  Reason
    auto    bool
    suggest Intent
    match   func(OrderState) bool
}

var promptRules = []promptRule{
    {
        reason:  ReasonHasPurchase,
        suggest: IntentBuy,
        match: func(s OrderState) bool {
            return s.Intent == IntentTask && s.HasPurchase && s.RecipientType == RecipientSelf
        },
    },
    {
        reason:  ReasonThirdParty,
        suggest: IntentCoordinate,
        match: func(s OrderState) bool {
            return s.Intent == IntentTask && s.RecipientType == RecipientThirdParty
        },
    },
    {
        reason:  ReasonAutoConvert,
        suggest: IntentCoordinate,
        auto:    true,
        match: func(s OrderState) bool {
            return s.Intent == IntentBuy && s.RecipientType == RecipientThirdParty
        },
    },
    {
        reason:  ReasonComplexChain,
        suggest: IntentCoordinate,
        match: func(s OrderState) bool {
            if s.Intent != IntentTask && s.Intent != IntentBuy {
                return false
            }
            return s.StagesCount >= 3 || s.HasHandover
        },
    },
}

// ShouldShowPrompt checks whether the customer's in-progress choices no
// longer match the declared intent. Evaluated before every forward
// navigation step.
func ShouldShowPrompt(s OrderState) PromptResult {
    for _, r := range promptRules {
        if r.match(s) {
            return PromptResult{
                Show:            true,
                SuggestedIntent: r.suggest,
                Reason:          r.reason,
                AutoConvert:     r.auto,
            }
        }
    }
    return PromptResult{}
}

// ApplyConversion replaces the declared intent on the snapshot.
// Converting to a trial order additionally applies the trial
// constraints. Idempotent: applying the same suggestion twice yields
// the same state as applying it once.
func ApplyConversion(s OrderState, suggested Intent) OrderState {
    s.Intent = suggested
    if suggested == IntentTry {
        c := TryOrderConstraints()
        if s.StagesCount > c.StagesMax {
            s.StagesCount = c.StagesMax
        }
        s.Recurring = c.Recurring
        s.ExperimentFlag = c.ExperimentFlag
    }
    return s
}

// TryOrderConstraints is the fixed policy consulted whenever the
// intent is try: at most two stages, non-recurring, mandatory price
// cap before finalization.
func TryOrderConstraints() TryConstraints {
    return TryConstraints{
        StagesMax:       2,
        Recurring:       false,
        RequirePriceCap: true,
        ExperimentFlag:  true,
    }
}
