// README: Pricing rate definition for each stage type.
package pricing

// Rate prices one stage type: a flat base fee plus a per-km charge for
// the leg leading into the stage. Amounts are minor currency units.
type Rate struct {
    StageType string
    Base      int64
    PerKm     int64
    Currency  string
}

// defaultRates back the estimator when no rates are configured in the
// database yet.
var defaultRates = map[string]Rate{
    "purchase": {StageType: "purchase", Base: 6000, PerKm: 800},
    "pickup":   {StageType: "pickup", Base: 3000, PerKm: 800},
    "dropoff":  {StageType: "dropoff", Base: 3000, PerKm: 800},
    "handover": {StageType: "handover", Base: 4000, PerKm: 800},
    "onsite":   {StageType: "onsite", Base: 8000, PerKm: 800},
}
