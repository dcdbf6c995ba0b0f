// README: Pricing service computes stage and order fee estimates.
package pricing

import (
	"context"
	"math"

	"gofer/internal/modules/stage"
	"gofer/internal/types"
)

type Service struct {
	store    *Store
	currency string
}

// NewService creates a pricing service. store may be nil, in which
// case the built-in default rates are used.
func NewService(store *Store, currency string) *Service {
	return &Service{store: store, currency: currency}
}

// EstimateOrder sums the stage fees for a finalized plan. The per-km
// component charges the leg from the previous located stage; stages
// without coordinates contribute only their base fee.
func (s *Service) EstimateOrder(ctx context.Context, entries []stage.PlanEntry) (types.Money, error) {
	rates := s.rates(ctx)
	var total int64
	var prev *types.Point
	for _, e := range entries {
		r, ok := rates[string(e.Type)]
		if !ok {
			r = defaultRates[string(e.Type)]
		}
		total += r.Base
		if e.Coord != nil {
			if prev != nil {
				total += int64(math.Round(distanceKm(*prev, *e.Coord))) * r.PerKm
			}
			prev = e.Coord
		}
	}
	return types.Money{Amount: total, Currency: s.currency}, nil
}

func (s *Service) rates(ctx context.Context) map[string]Rate {
	if s.store == nil {
		return defaultRates
	}
	rates, err := s.store.Rates(ctx)
	if err != nil || len(rates) == 0 {
		return defaultRates
	}
	return rates
}

func distanceKm(a, b types.Point) float64 {
	const R = 6371.0
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dlat := (b.Lat - a.Lat) * math.Pi / 180.0
	dlng := (b.Lng - a.Lng) * math.Pi / 180.0
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return 2 * R * math.Asin(math.Sqrt(h))
}
