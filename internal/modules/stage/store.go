// README: Stage store backed by PostgreSQL with CAS status updates.
package stage

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

// CreateAll inserts a finalized stage plan in one transaction so the
// plan appears atomically or not at all.
func (s *Store) CreateAll(ctx context.Context, stages []*Stage) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, st := range stages {
		var lat, lng *float64
		if st.Coord != nil {
			lat, lng = &st.Coord.Lat, &st.Coord.Lng
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO stages (id, order_id, seq, stage_type, status, address, lat, lng)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			string(st.ID), string(st.OrderID), st.Seq, string(st.Type), string(st.Status),
			st.Address, lat, lng,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetBySeq(ctx context.Context, orderID types.ID, seq int) (*Stage, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, order_id, seq, stage_type, status, address, lat, lng,
		       executor_id, started_at, completed_at
		FROM stages
		WHERE order_id = $1 AND seq = $2`, string(orderID), seq,
	)
	return scanStage(row)
}

func (s *Store) ListByOrder(ctx context.Context, orderID types.ID) ([]*Stage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, seq, stage_type, status, address, lat, lng,
		       executor_id, started_at, completed_at
		FROM stages
		WHERE order_id = $1
		ORDER BY seq`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateStatus performs a compare-and-set on one stage's status so
// concurrent writers cannot both win.
func (s *Store) UpdateStatus(ctx context.Context, orderID types.ID, seq int, from, to Status, executorID *types.ID) (bool, error) {
	var exec *string
	if executorID != nil {
		v := string(*executorID)
		exec = &v
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE stages
		SET status = $1,
		    executor_id = COALESCE($2, executor_id),
		    started_at = CASE WHEN $1 = 'in_progress' THEN NOW() ELSE started_at END,
		    completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN NOW() ELSE completed_at END
		WHERE order_id = $3 AND seq = $4 AND status = $5`,
		string(to), exec, string(orderID), seq, string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AcceptAllPending flips every pending stage to accepted in one
// statement. Returns how many stages were flipped.
func (s *Store) AcceptAllPending(ctx context.Context, orderID types.ID, executorID types.ID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE stages
		SET status = 'accepted', executor_id = $1
		WHERE order_id = $2 AND status = 'pending'`,
		string(executorID), string(orderID),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FailAllOpen fails every non-terminal stage in one statement.
func (s *Store) FailAllOpen(ctx context.Context, orderID types.ID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE stages
		SET status = 'failed', completed_at = NOW()
		WHERE order_id = $1 AND status NOT IN ('completed', 'failed')`,
		string(orderID),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountOpen returns the number of stages not yet completed.
func (s *Store) CountOpen(ctx context.Context, orderID types.ID) (int, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM stages
		WHERE order_id = $1 AND status != 'completed'`, string(orderID),
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByOrder returns the total number of stages for an order.
func (s *Store) CountByOrder(ctx context.Context, orderID types.ID) (int, error) {
	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM stages WHERE order_id = $1`, string(orderID))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (*Stage, error) {
	var st Stage
	var lat, lng *float64
	var exec *string
	err := row.Scan(
		&st.ID, &st.OrderID, &st.Seq, &st.Type, &st.Status, &st.Address,
		&lat, &lng, &exec, &st.StartedAt, &st.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		st.Coord = &types.Point{Lat: *lat, Lng: *lng}
	}
	if exec != nil {
		e := types.ID(*exec)
		st.ExecutorID = &e
	}
	return &st, nil
}
