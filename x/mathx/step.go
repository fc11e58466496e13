package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// SnapStep rounds v to the nearest multiple of step measured from base.
// Halves round away from base. step <= 0 returns v unchanged.
func SnapStep(v, base, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := math.Round((v - base) / step)
	return base + n*step
}

// WithinPct reports whether got is within pct percent of want.
// The band is never narrower than one unit.
func WithinPct[T constraints.Signed](got, want T, pct uint8) bool {
	tol := Abs(want) * T(pct) / 100
	if tol < 1 {
		tol = 1
	}
	return Abs(got-want) <= tol
}
