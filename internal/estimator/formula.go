package estimator

import "github.com/couchcryptid/quake-felt-service/internal/domain"

// Clamp bounds applied by Formula when clamping is enabled.
const (
	MinClampedMagnitude = 3.0
	MaxClampedMagnitude = 10.0
)

// Formula converts scores into an intensity index and then a magnitude:
//
//	intensity = round1((2*shaking + duration + 1.5*objects + reaction + 2*damage) / 6)
//	magnitude = round1(1.5 + 0.5*intensity)
//
// Both steps round to one decimal. The result is unbounded unless Clamp is
// set, in which case it is held to [MinClampedMagnitude, MaxClampedMagnitude].
type Formula struct {
	Clamp bool
}

func (Formula) Name() Strategy { return StrategyFormula }

// Intensity returns the rounded weighted intensity index for p.
func (Formula) Intensity(p domain.Perception) float64 {
	sum := 2*float64(p.Shaking) +
		float64(p.Duration) +
		1.5*float64(p.Objects) +
		float64(p.Reaction) +
		2*float64(p.Damage)
	return round1(sum / 6)
}

func (f Formula) Estimate(p domain.Perception) (float64, error) {
	m := round1(1.5 + 0.5*f.Intensity(p))
	if f.Clamp {
		m = min(max(m, MinClampedMagnitude), MaxClampedMagnitude)
	}
	return m, nil
}
