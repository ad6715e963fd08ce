package buywatch

import "testing"

func defaultCalculator() Calculator {
	return Calculator{
		TokensPerSOL:    7000,
		MinimumBuySOL:   0.2,
		Ratio:           1.0,
		MinDistribution: 1400,
		MaxDistribution: 1_000_000,
	}
}

func TestCalculateExamples(t *testing.T) {
	t.Parallel()

	calc := defaultCalculator()

	tests := []struct {
		name     string
		solSpent float64
		want     int64
	}{
		{name: "one sol at base rate", solSpent: 1.0, want: 7000},
		{name: "below minimum buy", solSpent: 0.05, want: 0},
		{name: "clamped to max", solSpent: 1000, want: 1_000_000},
		{name: "clamped to min", solSpent: 0.2, want: 1400},
		{name: "exactly minimum buy qualifies", solSpent: 0.2, want: 1400},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := calc.Calculate(tt.solSpent); got != tt.want {
				t.Fatalf("Calculate(%v) = %d, want %d", tt.solSpent, got, tt.want)
			}
		})
	}
}

func TestCalculateAppliesRatio(t *testing.T) {
	t.Parallel()

	calc := defaultCalculator()
	calc.Ratio = 0.5

	if got := calc.Calculate(1.0); got != 3500 {
		t.Fatalf("Calculate(1.0) with ratio 0.5 = %d, want 3500", got)
	}
}

func TestCalculateStaysWithinBounds(t *testing.T) {
	t.Parallel()

	calc := defaultCalculator()

	for spent := calc.MinimumBuySOL; spent < 2000; spent += 7.3 {
		got := calc.Calculate(spent)
		if got < calc.MinDistribution || got > calc.MaxDistribution {
			t.Fatalf("Calculate(%v) = %d, outside [%d, %d]", spent, got, calc.MinDistribution, calc.MaxDistribution)
		}
	}
}

func TestCalculateMonotonic(t *testing.T) {
	t.Parallel()

	calc := defaultCalculator()

	var prev int64
	for spent := 0.0; spent < 500; spent += 0.7 {
		got := calc.Calculate(spent)
		if got < prev {
			t.Fatalf("Calculate(%v) = %d decreased below previous %d", spent, got, prev)
		}
		prev = got
	}
}
