package marketdata

// SimulatedDataset is a fixed five-asset B3 universe with pre-computed
// annualized moments, used when live market data is unavailable or when a
// deterministic universe is wanted (tests, demos).
type SimulatedDataset struct {
	Assets          []string
	ExpectedReturns []float64   // Annualized, percent
	Covariance      [][]float64 // Annualized
	Prices          []float64   // Last close, BRL
}

// Simulated returns the fallback dataset. A fresh copy is returned on every
// call so callers can't mutate the shared fixture.
func Simulated() *SimulatedDataset {
	return &SimulatedDataset{
		Assets:          []string{"PETR4", "VALE3", "ITUB4", "BBDC4", "MGLU3"},
		ExpectedReturns: []float64{15.2, 18.5, 12.3, 11.8, 8.5},
		Covariance: [][]float64{
			{0.0625, 0.0312, 0.0156, 0.0125, 0.0094},
			{0.0312, 0.0900, 0.0200, 0.0180, 0.0120},
			{0.0156, 0.0200, 0.0400, 0.0300, 0.0100},
			{0.0125, 0.0180, 0.0300, 0.0361, 0.0090},
			{0.0094, 0.0120, 0.0100, 0.0090, 0.0484},
		},
		Prices: []float64{28.50, 65.30, 24.80, 14.20, 3.15},
	}
}
