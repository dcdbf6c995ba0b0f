// README: Order store backed by PostgreSQL with optimistic status versioning.
package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gofer/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	var capAmount *int64
	if o.PriceCap != nil {
		capAmount = &o.PriceCap.Amount
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, executor_id, intent, structure_type, recipient_type,
			status, status_version, escrow_status, recurring, experiment,
			total_amount, currency, price_cap, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, 'none', $9, $10,
			$11, $12, $13, $14
		)`,
		string(o.ID), string(o.CustomerID), toStringPtr(o.ExecutorID),
		string(o.Intent), string(o.StructureType), string(o.RecipientType),
		string(o.Status), o.StatusVersion, o.Recurring, o.Experiment,
		o.Total.Amount, o.Total.Currency, capAmount, o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, executor_id, intent, structure_type, recipient_type,
		       status, status_version, escrow_status, recurring, experiment,
		       total_amount, currency, price_cap,
		       created_at, accepted_at, completed_at, cancelled_at, cancellation_reason
		FROM orders
		WHERE id = $1`, string(id),
	)

	var o Order
	var executorID, cancelReason *string
	var capAmount *int64
	err := row.Scan(
		&o.ID, &o.CustomerID, &executorID, &o.Intent, &o.StructureType, &o.RecipientType,
		&o.Status, &o.StatusVersion, &o.EscrowStatus, &o.Recurring, &o.Experiment,
		&o.Total.Amount, &o.Total.Currency, &capAmount,
		&o.CreatedAt, &o.AcceptedAt, &o.CompletedAt, &o.CancelledAt, &cancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if executorID != nil {
		e := types.ID(*executorID)
		o.ExecutorID = &e
	}
	if capAmount != nil {
		o.PriceCap = &types.Money{Amount: *capAmount, Currency: o.Total.Currency}
	}
	o.CancelReason = cancelReason
	return &o, nil
}

// UpdateStatus performs a compare-and-set keyed on (status, version)
// so racing writers cannot both transition the order.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, executorID *types.ID, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    executor_id = COALESCE($2, executor_id),
		    cancellation_reason = COALESCE($3, cancellation_reason),
		    accepted_at = CASE WHEN $1 = 'in_progress' THEN NOW() ELSE accepted_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 IN ('cancelled', 'failed') THEN NOW() ELSE cancelled_at END
		WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(to), toStringPtr(executorID), reason,
		string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, toStringPtr(e.ActorID), e.CreatedAt,
	)
	return err
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
