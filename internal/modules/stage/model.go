// README: Fulfillment stage aggregate and per-stage status machine.
package stage

import (
    "time"

    "gofer/internal/types"
)

// Type is the kind of fulfillment step.
type Type string

const (
    TypePurchase Type = "purchase"
    TypePickup   Type = "pickup"
    TypeDropoff  Type = "dropoff"
    TypeHandover Type = "handover"
    TypeOnsite   Type = "onsite"
)

func ValidType(t Type) bool {
    switch t {
    case TypePurchase, TypePickup, TypeDropoff, TypeHandover, TypeOnsite:
        return true
    }
    return false
}

type Status string

const (
    StatusPending    Status = "pending"
    StatusAccepted   Status = "accepted"
    StatusInProgress Status = "in_progress"
    StatusCompleted  Status = "completed"
    StatusFailed     Status = "failed"
)

// Stage is one discrete fulfillment step. Seq is 1-based, unique and
// contiguous within an order, and is the only ordering key. The set of
// stages is immutable once the order's plan is finalized; only status,
// executor, and timestamps change afterwards.
type Stage struct {
    ID          types.ID
    OrderID     types.ID
    Seq         int
    Type        Type
    Status      Status
    Address     string
    Coord       *types.Point
    ExecutorID  *types.ID
    StartedAt   *time.Time
    CompletedAt *time.Time
}

// AllowedTransitions represents the stage state flow as code. Failed is
// reachable from every non-terminal state.
var AllowedTransitions = map[Status][]Status{
    StatusPending:    {StatusAccepted, StatusFailed},
    StatusAccepted:   {StatusInProgress, StatusFailed},
    StatusInProgress: {StatusCompleted, StatusFailed},
}

func CanTransition(from, to Status) bool {
    next, ok := AllowedTransitions[from]
    if !ok {
        return false
    }
    for _, s := range next {
        if s == to {
            return true
        }
    }
    return false
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(s Status) bool {
    return s == StatusCompleted || s == StatusFailed
}
