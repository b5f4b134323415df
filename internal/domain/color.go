package domain

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// gradient is the logit color ramp in HSL (degrees, percent, percent), from
// the highest logit to the lowest.
var gradient = [...][3]float64{
	{246, 16, 24},
	{258, 83, 50},
	{212, 55, 60},
	{92, 92, 70},
	{5, 87, 94},
}

// Scale is the logit range used to normalize word colors. It only ever
// widens. The zero value is empty.
type Scale struct {
	Min float64
	Max float64
	set bool
}

// NewScale returns a scale covering exactly [lo, hi].
func NewScale(lo, hi float64) Scale {
	return Scale{Min: lo, Max: hi, set: true}
}

// Empty reports whether no value has been observed yet.
func (s Scale) Empty() bool { return !s.set }

// Observe widens the scale to include v and reports whether it changed.
func (s *Scale) Observe(v float64) bool {
	if !s.set {
		s.Min, s.Max, s.set = v, v, true
		return true
	}
	changed := false
	if v < s.Min {
		s.Min = v
		changed = true
	}
	if v > s.Max {
		s.Max = v
		changed = true
	}
	return changed
}

// ObserveAll widens the scale with every candidate logit and reports whether
// it changed.
func (s *Scale) ObserveAll(candidates []Logit) bool {
	changed := false
	for _, c := range candidates {
		if s.Observe(c.Value) {
			changed = true
		}
	}
	return changed
}

// Color maps v onto the gradient and returns a hex color.
func (s Scale) Color(v float64) string {
	h, sat, l := s.HSL(v)
	return colorful.Hsl(h, sat/100, l/100).Clamped().Hex()
}

// HSL maps v onto the gradient. The maximum maps to the first stop and the
// minimum to the last; a degenerate scale maps everything to the first stop.
func (s Scale) HSL(v float64) (h, sat, l float64) {
	last := len(gradient) - 1
	n := 0.0
	if s.set && s.Min != s.Max {
		n = (v - s.Max) * float64(last) / (s.Min - s.Max)
	}
	n = math.Max(0, math.Min(float64(last), n))
	i := min(last-1, int(math.Floor(n)))
	frac := n - float64(i)
	a, b := gradient[i], gradient[i+1]
	h = math.Round(a[0] + frac*(b[0]-a[0]))
	sat = math.Round(a[1] + frac*(b[1]-a[1]))
	l = math.Round(a[2] + frac*(b[2]-a[2]))
	return h, sat, l
}

// CandidateTemperature softens candidate logits before they are compared.
const CandidateTemperature = 10.0

// CandidateWeights returns, per candidate, its softmax weight at
// CandidateTemperature relative to the heaviest candidate, in [0, 1].
func CandidateWeights(candidates []Logit) []float64 {
	out := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}
	peak := math.Inf(-1)
	for _, c := range candidates {
		peak = math.Max(peak, c.Value)
	}
	for i, c := range candidates {
		out[i] = math.Exp((c.Value - peak) / CandidateTemperature)
	}
	return out
}
