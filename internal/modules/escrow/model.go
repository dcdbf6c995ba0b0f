// README: Escrow transaction log entries and derived order escrow status.
package escrow

import (
    "time"

    "gofer/internal/types"
)

// TxType is the kind of ledger entry. The log is append-only; balances
// are always derived from sums, never stored counters.
type TxType string

const (
    TxHold    TxType = "hold"
    TxRelease TxType = "release"
    TxRefund  TxType = "refund"
)

type TxStatus string

const (
    TxPending   TxStatus = "pending"
    TxCompleted TxStatus = "completed"
)

// Transaction is one ledger entry. StageID is set only for per-stage
// releases; holds and refunds are order-level.
type Transaction struct {
    ID          types.ID
    OrderID     types.ID
    StageID     *types.ID
    Type        TxType
    Amount      int64
    Currency    string
    Status      TxStatus
    CreatedAt   time.Time
    CompletedAt *time.Time
}

// Status is the order-level escrow status. It is a cached projection of
// the transaction sums, recomputed after every ledger mutation.
type Status string

const (
    StatusNone     Status = "none"
    StatusHeld     Status = "held"
    StatusPartial  Status = "partial"
    StatusReleased Status = "released"
    StatusRefunded Status = "refunded"
)

// Sums are the per-order transaction totals in minor currency units.
type Sums struct {
    Held     int64
    Released int64
    Refunded int64
    Currency string
}

// Remaining is the balance still locked: held - released - refunded.
func (s Sums) Remaining() int64 {
    return s.Held - s.Released - s.Refunded
}

// Derive computes the order escrow status from the sums.
func (s Sums) Derive() Status {
    switch {
    case s.Held == 0:
        return StatusNone
    case s.Refunded > 0:
        return StatusRefunded
    case s.Released >= s.Held:
        return StatusReleased
    case s.Released > 0:
        return StatusPartial
    default:
        return StatusHeld
    }
}
