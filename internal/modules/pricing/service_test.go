// README: Pricing estimator tests against the built-in default rates.
package pricing

import (
	"context"
	"math"
	"testing"

	"gofer/internal/modules/stage"
	"gofer/internal/types"
)

func TestEstimateOrderBaseFeesOnly(t *testing.T) {
	svc := NewService(nil, "TWD")

	m, err := svc.EstimateOrder(context.Background(), []stage.PlanEntry{
		{Type: stage.TypePickup},
		{Type: stage.TypeDropoff},
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if m.Amount != 6000 {
		t.Fatalf("expected 6000, got %d", m.Amount)
	}
	if m.Currency != "TWD" {
		t.Fatalf("expected TWD, got %s", m.Currency)
	}
}

func TestEstimateOrderChargesLegs(t *testing.T) {
	svc := NewService(nil, "TWD")

	// One degree of latitude is about 111 km.
	a := types.Point{Lat: 0, Lng: 0}
	b := types.Point{Lat: 1, Lng: 0}
	m, err := svc.EstimateOrder(context.Background(), []stage.PlanEntry{
		{Type: stage.TypePickup, Coord: &a},
		{Type: stage.TypeDropoff, Coord: &b},
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	want := int64(6000 + 111*800)
	if m.Amount != want {
		t.Fatalf("expected %d, got %d", want, m.Amount)
	}
}

func TestEstimateOrderSkipsUnlocatedLegs(t *testing.T) {
	svc := NewService(nil, "TWD")

	// The purchase stage has no coordinate, so the dropoff has no
	// preceding located stage and contributes only its base fee.
	b := types.Point{Lat: 25.033, Lng: 121.565}
	m, err := svc.EstimateOrder(context.Background(), []stage.PlanEntry{
		{Type: stage.TypePurchase},
		{Type: stage.TypeDropoff, Coord: &b},
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if m.Amount != 9000 {
		t.Fatalf("expected 9000, got %d", m.Amount)
	}
}

func TestDistanceKm(t *testing.T) {
	a := types.Point{Lat: 0, Lng: 0}
	b := types.Point{Lat: 1, Lng: 0}
	d := distanceKm(a, b)
	if math.Abs(d-111.2) > 0.5 {
		t.Fatalf("expected about 111.2 km, got %f", d)
	}
	if distanceKm(a, a) != 0 {
		t.Fatalf("expected zero distance, got %f", distanceKm(a, a))
	}
}
