// README: Escrow transaction store backed by PostgreSQL; conditional insert for releases.
package escrow

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

func (s *Store) Append(ctx context.Context, tx *Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO escrow_transactions (
			id, order_id, stage_id, tx_type, amount, currency, status, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(tx.ID), string(tx.OrderID), toStringPtr(tx.StageID),
		string(tx.Type), tx.Amount, tx.Currency, string(tx.Status),
		tx.CreatedAt, tx.CompletedAt,
	)
	return err
}

// InsertReleaseIfAbsent appends a release unless one already exists for
// the (order, stage) pair. The uniqueness is enforced by a partial
// unique index, so concurrent duplicates collapse to a single row and
// the loser reads back the winner.
func (s *Store) InsertReleaseIfAbsent(ctx context.Context, tx *Transaction) (*Transaction, bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO escrow_transactions (
			id, order_id, stage_id, tx_type, amount, currency, status, created_at, completed_at
		) VALUES ($1, $2, $3, 'release', $4, $5, $6, $7, $8)
		ON CONFLICT (order_id, stage_id) WHERE tx_type = 'release' DO NOTHING`,
		string(tx.ID), string(tx.OrderID), toStringPtr(tx.StageID),
		tx.Amount, tx.Currency, string(tx.Status), tx.CreatedAt, tx.CompletedAt,
	)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 1 {
		return tx, true, nil
	}
	existing, err := s.GetRelease(ctx, tx.OrderID, *tx.StageID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetRelease returns the release transaction for the (order, stage)
// pair, or nil when none exists.
func (s *Store) GetRelease(ctx context.Context, orderID, stageID types.ID) (*Transaction, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, order_id, stage_id, tx_type, amount, currency, status, created_at, completed_at
		FROM escrow_transactions
		WHERE order_id = $1 AND stage_id = $2 AND tx_type = 'release'`,
		string(orderID), string(stageID),
	)
	tx, err := scanTx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tx, err
}

func (s *Store) SumByOrder(ctx context.Context, orderID types.ID) (Sums, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE tx_type = 'hold'), 0),
			COALESCE(SUM(amount) FILTER (WHERE tx_type = 'release'), 0),
			COALESCE(SUM(amount) FILTER (WHERE tx_type = 'refund'), 0),
			COALESCE(MAX(currency), '')
		FROM escrow_transactions
		WHERE order_id = $1`, string(orderID),
	)
	var sums Sums
	if err := row.Scan(&sums.Held, &sums.Released, &sums.Refunded, &sums.Currency); err != nil {
		return Sums{}, err
	}
	return sums, nil
}

func (s *Store) ListByOrder(ctx context.Context, orderID types.ID) ([]*Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, stage_id, tx_type, amount, currency, status, created_at, completed_at
		FROM escrow_transactions
		WHERE order_id = $1
		ORDER BY created_at, id`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) SetOrderEscrowStatus(ctx context.Context, orderID types.ID, status Status) error {
	_, err := s.db.Exec(ctx, `
		UPDATE orders SET escrow_status = $1 WHERE id = $2`,
		string(status), string(orderID),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTx(row rowScanner) (*Transaction, error) {
	var tx Transaction
	var stageID *string
	err := row.Scan(
		&tx.ID, &tx.OrderID, &stageID, &tx.Type, &tx.Amount,
		&tx.Currency, &tx.Status, &tx.CreatedAt, &tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if stageID != nil {
		id := types.ID(*stageID)
		tx.StageID = &id
	}
	return &tx, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
