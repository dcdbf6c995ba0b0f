// README: Pricing store backed by PostgreSQL.
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Rates returns the configured stage rates keyed by stage type.
func (s *Store) Rates(ctx context.Context) (map[string]Rate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT stage_type, base_fee, per_km, currency FROM pricing_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]Rate{}
	for rows.Next() {
		var r Rate
		if err := rows.Scan(&r.StageType, &r.Base, &r.PerKm, &r.Currency); err != nil {
			return nil, err
		}
		out[r.StageType] = r
	}
	return out, rows.Err()
}
