package geo

import (
	"math"
	"testing"

	"charterhub/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: -34.77, Lng: -58.39},
			b:         types.Point{Lat: -34.77, Lng: -58.39},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Temperley to La Plata (~43.5km)",
			a:         types.Point{Lat: -34.77, Lng: -58.39},
			b:         types.Point{Lat: -34.92, Lng: -57.95},
			wantKm:    43.48,
			tolerance: 0.001,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_SymmetryAndIdentity(t *testing.T) {
	points := []types.Point{
		{Lat: -34.76, Lng: -58.40},
		{Lat: -34.92, Lng: -57.95},
		{Lat: 25.0, Lng: 121.0},
		{Lat: 89.9, Lng: 179.9},
		{Lat: -89.9, Lng: -179.9},
		{Lat: 0, Lng: 0},
	}
	for _, a := range points {
		if d := DistanceKm(a, a); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %f, want 0", a, a, d)
		}
		for _, b := range points {
			if DistanceKm(a, b) != DistanceKm(b, a) {
				t.Errorf("distance not symmetric for %v / %v: %f vs %f", a, b, DistanceKm(a, b), DistanceKm(b, a))
			}
		}
	}
}

func TestDistanceKm_RoundsToTwoDecimals(t *testing.T) {
	got := DistanceKm(types.Point{Lat: -34.76, Lng: -58.40}, types.Point{Lat: -34.77, Lng: -58.39})
	if got != 1.44 {
		t.Fatalf("expected 1.44, got %v", got)
	}
}

func TestTravel(t *testing.T) {
	origin := types.Point{Lat: -34.76, Lng: -58.40}
	pickup := types.Point{Lat: -34.77, Lng: -58.39}
	dest := types.Point{Lat: -34.92, Lng: -57.95}

	d := Travel(origin, pickup, dest)
	if d.ToPickup != 1.44 || d.ToDestination != 43.48 || d.Total != 44.92 {
		t.Fatalf("unexpected travel distances: %+v", d)
	}
}

func TestWithinRadius(t *testing.T) {
	center := types.Point{Lat: -34.77, Lng: -58.39}
	if !WithinRadius(center, types.Point{Lat: -34.76, Lng: -58.40}, 30) {
		t.Error("1.44km point should be within 30km")
	}
	if WithinRadius(center, types.Point{Lat: -34.92, Lng: -57.95}, 30) {
		t.Error("43km point should not be within 30km")
	}
	if !WithinRadius(center, types.Point{Lat: -34.76, Lng: -58.40}, 1.44) {
		t.Error("radius boundary must be inclusive")
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("-34.7700", " -58.3936 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat != -34.77 || p.Lng != -58.3936 {
		t.Fatalf("unexpected point: %+v", p)
	}

	bad := [][2]string{{"abc", "1"}, {"1", ""}, {"91", "0"}, {"0", "-181"}, {"NaN", "0"}}
	for _, b := range bad {
		if _, err := ParsePoint(b[0], b[1]); err == nil {
			t.Errorf("ParsePoint(%q, %q) expected error", b[0], b[1])
		}
	}
}

type ranked struct {
	id   string
	dist float64
}

func TestSortByDistance(t *testing.T) {
	items := []ranked{{"c", 5.0}, {"a", 1.0}, {"b", 3.0}}
	SortByDistance(items, func(r ranked) float64 { return r.dist })
	if items[0].id != "a" || items[1].id != "b" || items[2].id != "c" {
		t.Errorf("unexpected sort order: %v", items)
	}
}

func TestSortByDistance_StableOnTies(t *testing.T) {
	items := []ranked{{"x", 2.0}, {"y", 1.0}, {"z", 2.0}, {"w", 1.0}}
	SortByDistance(items, func(r ranked) float64 { return r.dist })
	want := []string{"y", "w", "x", "z"}
	for i, id := range want {
		if items[i].id != id {
			t.Fatalf("position %d: got %s, want %s (%v)", i, items[i].id, id, items)
		}
	}
}

func TestSortByDistance_EmptyAndSingle(t *testing.T) {
	var none []ranked
	SortByDistance(none, func(r ranked) float64 { return r.dist })

	one := []ranked{{"a", 2.0}}
	SortByDistance(one, func(r ranked) float64 { return r.dist })
	if one[0].id != "a" {
		t.Errorf("single element sort failed")
	}
}
