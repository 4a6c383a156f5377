package spawn

import (
	"math/rand"
	"testing"
)

func newTestAllocator(t *testing.T, cfg Config, seed int64) *Allocator {
	t.Helper()
	return New(cfg, WithRand(rand.New(rand.NewSource(seed))))
}

func TestPlace_EmptyRoomWithinMargin(t *testing.T) {
	a := newTestAllocator(t, DefaultConfig(), 1)

	for i := 0; i < 100; i++ {
		p := a.Place(nil)
		if p.X < 0.12 || p.X > 0.88 || p.Y < 0.12 || p.Y > 0.88 {
			t.Fatalf("spawn %v outside [0.12, 0.88]²", p)
		}
	}
}

func TestPlace_KeepsMinDistance(t *testing.T) {
	cfg := DefaultConfig()

	// Statistical property: across many seeds and densities, an accepted
	// placement either clears MinDist to every occupant or the allocator
	// exhausted its try budget.
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		a := New(cfg, WithRand(rand.New(rand.NewSource(seed + 1000))))

		for _, density := range []int{1, 5, 20, 60} {
			others := make([]Point, density)
			for i := range others {
				others[i] = Point{
					X: cfg.Margin + rng.Float64()*(1-2*cfg.Margin),
					Y: cfg.Margin + rng.Float64()*(1-2*cfg.Margin),
				}
			}

			p := a.Place(others)

			clear := true
			for _, o := range others {
				if p.Dist(o) < cfg.MinDist {
					clear = false
					break
				}
			}
			if !clear && density < 20 {
				// With few occupants the budget of 40 tries should
				// essentially never be exhausted.
				t.Errorf("seed %d density %d: placement %v overlaps", seed, density, p)
			}
			if p.X < cfg.Margin || p.X > 1-cfg.Margin || p.Y < cfg.Margin || p.Y > 1-cfg.Margin {
				t.Errorf("placement %v outside margin bounds", p)
			}
		}
	}
}

func TestPlace_CrowdedRoomStillReturns(t *testing.T) {
	cfg := Config{Margin: 0.12, MinDist: 0.5, MaxTries: 10}
	a := newTestAllocator(t, cfg, 7)

	// Occupants blanket the room so the distance constraint is
	// unsatisfiable; the allocator must degrade to overlap, not fail.
	var others []Point
	for x := 0.0; x <= 1.0; x += 0.1 {
		for y := 0.0; y <= 1.0; y += 0.1 {
			others = append(others, Point{X: x, Y: y})
		}
	}

	p := a.Place(others)
	if p.X < cfg.Margin || p.X > 1-cfg.Margin || p.Y < cfg.Margin || p.Y > 1-cfg.Margin {
		t.Errorf("fallback placement %v outside margin bounds", p)
	}
}

func TestNew_ConfigFallbacks(t *testing.T) {
	a := New(Config{})
	if a.cfg != DefaultConfig() {
		t.Errorf("zero config should fall back to defaults, got %+v", a.cfg)
	}

	a = New(Config{Margin: 0.7, MinDist: -1, MaxTries: 0})
	if a.cfg != DefaultConfig() {
		t.Errorf("out-of-range config should fall back to defaults, got %+v", a.cfg)
	}
}

func TestDist(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	if got := a.Dist(b); got != 5 {
		t.Errorf("Dist = %v, want 5", got)
	}
}
