// Package spawn picks starting positions for players joining a room.
package spawn

import (
	"math"
	"math/rand"
	"sync"
)

// Config holds the placement parameters.
type Config struct {
	// Margin keeps spawns away from the room edges; candidates are
	// sampled inside [Margin, 1-Margin] on both axes.
	Margin float64
	// MinDist is the minimum euclidean distance to any active player.
	MinDist float64
	// MaxTries bounds the candidate sampling before giving up on the
	// distance constraint.
	MaxTries int
}

// DefaultConfig returns the standard placement parameters.
func DefaultConfig() Config {
	return Config{
		Margin:   0.12,
		MinDist:  0.10,
		MaxTries: 40,
	}
}

// Point is a normalized position within the room.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between two points.
func (p Point) Dist(o Point) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Allocator samples spawn positions. Safe for concurrent use.
type Allocator struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithRand sets the random source (for deterministic tests).
func WithRand(rng *rand.Rand) Option {
	return func(a *Allocator) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// New creates an Allocator with the given config. Zero or negative config
// values fall back to the defaults.
func New(cfg Config, opts ...Option) *Allocator {
	def := DefaultConfig()
	if cfg.Margin <= 0 || cfg.Margin >= 0.5 {
		cfg.Margin = def.Margin
	}
	if cfg.MinDist <= 0 {
		cfg.MinDist = def.MinDist
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = def.MaxTries
	}

	a := &Allocator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Place returns a spawn position that keeps MinDist from every point in
// others. When the try budget runs out (a crowded room), the last sampled
// candidate is returned unconditionally; accepted overlap beats failure.
func (a *Allocator) Place(others []Point) Point {
	var candidate Point
	for i := 0; i < a.cfg.MaxTries; i++ {
		candidate = a.sample()
		if a.clear(candidate, others) {
			return candidate
		}
	}
	return candidate
}

func (a *Allocator) sample() Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	span := 1 - 2*a.cfg.Margin
	return Point{
		X: a.cfg.Margin + a.rng.Float64()*span,
		Y: a.cfg.Margin + a.rng.Float64()*span,
	}
}

func (a *Allocator) clear(c Point, others []Point) bool {
	for _, o := range others {
		if c.Dist(o) < a.cfg.MinDist {
			return false
		}
	}
	return true
}
