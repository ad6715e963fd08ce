package buywatch

import "math"

// Calculator maps a spent SOL amount to a reward token amount. It is a pure
// function of its configuration and input.
type Calculator struct {
	TokensPerSOL    float64
	MinimumBuySOL   float64
	Ratio           float64
	MinDistribution int64
	MaxDistribution int64
}

// Calculate returns the integer token amount owed for the given SOL spent.
// Purchases below the minimum buy threshold earn nothing; everything else is
// rate*ratio scaled, clamped to [MinDistribution, MaxDistribution], and
// rounded half away from zero.
func (c Calculator) Calculate(solSpent float64) int64 {
	if solSpent < c.MinimumBuySOL {
		return 0
	}

	raw := solSpent * c.TokensPerSOL * c.Ratio
	if raw < float64(c.MinDistribution) {
		raw = float64(c.MinDistribution)
	}
	if raw > float64(c.MaxDistribution) {
		raw = float64(c.MaxDistribution)
	}
	return int64(math.Round(raw))
}
