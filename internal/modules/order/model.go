// README: Order aggregate and status definitions.
package order

import (
    "time"

    "gofer/internal/modules/escrow"
    "gofer/internal/modules/intent"
    "gofer/internal/types"
)

type Status string

const (
    StatusNone       Status = "none"
    StatusPending    Status = "pending"
    StatusInProgress Status = "in_progress"
    StatusCompleted  Status = "completed"
    StatusCancelled  Status = "cancelled"
    StatusFailed     Status = "failed"
)

// Order is a finalized errand. Intent and structure type are fixed at
// finalization; only status, executor, and timestamps move afterwards.
type Order struct {
    ID            types.ID
    CustomerID    types.ID
    ExecutorID    *types.ID
    Intent        intent.Intent
    StructureType intent.OrderStructureType
    RecipientType intent.RecipientType
    Status        Status
    StatusVersion int
    EscrowStatus  escrow.Status
    Recurring     bool
    Experiment    bool
    Total         types.Money
    PriceCap      *types.Money
    CreatedAt     time.Time
    AcceptedAt    *time.Time
    CompletedAt   *time.Time
    CancelledAt   *time.Time
    CancelReason  *string
}

type Event struct {
    ID         int64
    OrderID    types.ID
    FromStatus Status
    ToStatus   Status
    ActorType  string
    ActorID    *types.ID
    CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow as code. The
// pending→in_progress edge is the all-or-nothing executor gate. A
// stage can fail before the gate ran, so pending orders fail too.
var AllowedTransitions = map[Status][]Status{
    StatusPending:    {StatusInProgress, StatusCancelled, StatusFailed},
    StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled},
}

// Terminal reports whether the order can no longer move.
func Terminal(s Status) bool {
    switch s {
    case StatusCompleted, StatusCancelled, StatusFailed:
        return true
    }
    return false
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
