package recipe

import "math"

// starterSplit returns the flour and water fractions of the starter for a
// starter hydration given in percent.
func starterSplit(starterHydrationPct float64) (cFlour, cWater float64) {
	sH := starterHydrationPct / 100
	return 1 / (1 + sH), sH / (1 + sH)
}

// Hydration is the dough hydration in percent implied by the ingredient
// masses, counting the starter's own flour and water.
func Hydration(s State, starterHydrationPct float64) float64 {
	cFlour, cWater := starterSplit(starterHydrationPct)
	return (s.Water.Value + s.Starter.Value*cWater) / (s.Flour.Value + s.Starter.Value*cFlour) * 100
}

// SolveFlour solves the hydration equation for flour, holding water,
// starter and s.Hydration fixed.
func SolveFlour(s State, starterHydrationPct float64) float64 {
	cFlour, cWater := starterSplit(starterHydrationPct)
	H := s.Hydration.Value / 100
	return (s.Water.Value + s.Starter.Value*cWater - s.Starter.Value*cFlour*H) / H
}

// SolveWater solves the hydration equation for water.
func SolveWater(s State, starterHydrationPct float64) float64 {
	cFlour, cWater := starterSplit(starterHydrationPct)
	H := s.Hydration.Value / 100
	return H*s.Flour.Value + H*s.Starter.Value*cFlour - s.Starter.Value*cWater
}

// SolveStarter solves the hydration equation for starter. The denominator
// vanishes when the target hydration equals the starter hydration.
func SolveStarter(s State, starterHydrationPct float64) float64 {
	cFlour, cWater := starterSplit(starterHydrationPct)
	H := s.Hydration.Value / 100
	return (H*s.Flour.Value - s.Water.Value) / (cWater - H*cFlour)
}

// Solve dispatches to the solver of the given ingredient kind.
func Solve(kind Kind, s State, starterHydrationPct float64) float64 {
	switch kind {
	case KindFlour:
		return SolveFlour(s, starterHydrationPct)
	case KindWater:
		return SolveWater(s, starterHydrationPct)
	case KindStarter:
		return SolveStarter(s, starterHydrationPct)
	}
	return math.NaN()
}

// Salt is 2% of the total flour, including the flour share of the starter.
func Salt(s State, starterHydrationPct float64) float64 {
	cFlour, _ := starterSplit(starterHydrationPct)
	return SaltRatio * (s.Flour.Value + s.Starter.Value*cFlour)
}

// TotalDough is the finished dough mass: ingredients plus salt.
func TotalDough(s State, starterHydrationPct float64) float64 {
	return s.Flour.Value + s.Water.Value + s.Starter.Value + Salt(s, starterHydrationPct)
}

// DisplaySalt is the whole-gram salt for the state's own starter hydration.
func DisplaySalt(s State) float64 {
	return round(Salt(s, s.StarterHydration.Value))
}

// round rounds half up, matching how the values are shown to bakers.
// NaN and infinities pass through.
func round(v float64) float64 {
	return math.Floor(v + 0.5)
}
