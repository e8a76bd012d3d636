// Package estimator turns felt-report perception scores into a rough
// earthquake magnitude. Two strategies exist side by side and are selected
// by name: a fixed weighted formula and a small random-forest regression
// fitted once on a fixed training table.
package estimator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
)

// Strategy names an estimation method.
type Strategy string

const (
	StrategyFormula    Strategy = "formula"
	StrategyRegression Strategy = "regression"
)

// ParseStrategy validates a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyFormula:
		return StrategyFormula, nil
	case StrategyRegression:
		return StrategyRegression, nil
	default:
		return "", fmt.Errorf("unknown estimation strategy %q", s)
	}
}

// Estimator predicts a magnitude from perception scores.
type Estimator interface {
	Name() Strategy
	Estimate(p domain.Perception) (float64, error)
}

// Set holds the available estimators by name. It is built once at startup
// and read-only afterwards.
type Set struct {
	byName map[Strategy]Estimator
}

// NewSet indexes the given estimators by name. Later duplicates win.
func NewSet(estimators ...Estimator) *Set {
	s := &Set{byName: make(map[Strategy]Estimator, len(estimators))}
	for _, e := range estimators {
		s.byName[e.Name()] = e
	}
	return s
}

// Get returns the estimator registered under name.
func (s *Set) Get(name Strategy) (Estimator, error) {
	e, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("estimation strategy %q not configured", name)
	}
	return e, nil
}

// Names lists the registered strategies in sorted order.
func (s *Set) Names() []Strategy {
	names := make([]Strategy, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// round1 rounds to one decimal place, halves away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
