// Package statistics builds the per-asset return and covariance estimates
// that feed the optimization pipeline.
package statistics

import (
	"math"
	"sort"
	"time"

	montstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/quantfolio/internal/domain"
)

// Annualization constants. Daily simple returns are scaled by the trading
// days in a year; expected returns are expressed in percent.
const (
	TradingDaysPerYear = 252

	// MinObservations is the minimum number of aligned daily returns
	// needed for a covariance estimate worth trusting (about one
	// calendar month of trading days).
	MinObservations = 20

	symmetryTolerance = 1e-12
)

// Statistics holds the per-asset moments for one optimization run.
// Built once per run and read-only afterward.
type Statistics struct {
	Assets          []string
	ExpectedReturns []float64 // Annualized, percent
	Covariance      *mat.SymDense
	Prices          []float64 // Last close per asset, informational only
	Observations    int       // Aligned daily return rows used (0 for direct moments)
}

// N returns the number of assets in the universe.
func (s *Statistics) N() int {
	return len(s.Assets)
}

// NewFromHistory builds statistics from per-asset daily close series.
// Series are aligned by date intersection; any date missing for any asset is
// dropped rather than imputed. Asset order is alphabetical so runs are
// deterministic regardless of map iteration order.
func NewFromHistory(history map[string][]domain.PricePoint) (*Statistics, error) {
	// Drop assets with fewer than two bars; they cannot produce a return
	assets := make([]string, 0, len(history))
	for ticker, points := range history {
		if len(points) >= 2 {
			assets = append(assets, ticker)
		}
	}
	sort.Strings(assets)

	if len(assets) < 2 {
		return nil, &domain.InsufficientDataError{
			Assets: len(assets),
			Reason: "fewer than 2 assets with usable data",
		}
	}

	// Index closes by date per asset, then intersect the date sets
	byDate := make([]map[time.Time]float64, len(assets))
	for i, ticker := range assets {
		m := make(map[time.Time]float64, len(history[ticker]))
		for _, p := range history[ticker] {
			m[p.Date] = p.Close
		}
		byDate[i] = m
	}

	var dates []time.Time
	for date := range byDate[0] {
		shared := true
		for _, m := range byDate[1:] {
			if _, ok := m[date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	obs := len(dates) - 1
	if obs < MinObservations {
		return nil, &domain.InsufficientDataError{
			Assets:       len(assets),
			Observations: max(obs, 0),
			Reason:       "aligned return series too short for a stable covariance estimate",
		}
	}

	// Day-over-day simple returns on the aligned closes
	returns := mat.NewDense(obs, len(assets), nil)
	for j := range assets {
		prev := byDate[j][dates[0]]
		for t := 1; t < len(dates); t++ {
			cur := byDate[j][dates[t]]
			returns.Set(t-1, j, cur/prev-1)
			prev = cur
		}
	}

	// Annualized expected returns in percent
	expectedReturns := make([]float64, len(assets))
	for j := range assets {
		mean, err := montstats.Mean(mat.Col(nil, j, returns))
		if err != nil {
			return nil, &domain.InsufficientDataError{
				Assets:       len(assets),
				Observations: obs,
				Reason:       "failed to compute mean daily return",
			}
		}
		expectedReturns[j] = mean * TradingDaysPerYear * 100
	}

	// Annualized sample covariance
	cov := mat.NewSymDense(len(assets), nil)
	stat.CovarianceMatrix(cov, returns, nil)
	for i := 0; i < len(assets); i++ {
		for j := i; j < len(assets); j++ {
			cov.SetSym(i, j, cov.At(i, j)*TradingDaysPerYear)
		}
	}

	// Current price is the last close of each raw series
	prices := make([]float64, len(assets))
	for i, ticker := range assets {
		series := history[ticker]
		prices[i] = series[len(series)-1].Close
	}

	return &Statistics{
		Assets:          assets,
		ExpectedReturns: expectedReturns,
		Covariance:      cov,
		Prices:          prices,
		Observations:    obs,
	}, nil
}

// NewFromMoments builds statistics directly from supplied moments, bypassing
// price-history processing. The inputs must satisfy the data model
// invariants: matching dimensions, symmetric covariance, non-negative
// variances.
func NewFromMoments(assets []string, expectedReturns []float64, covariance [][]float64, prices []float64) (*Statistics, error) {
	n := len(assets)
	if n == 0 {
		return nil, &domain.ConfigurationError{Field: "assets", Reason: "universe is empty"}
	}
	if len(expectedReturns) != n {
		return nil, &domain.ConfigurationError{Field: "expected_returns", Reason: "length does not match asset count"}
	}
	if len(prices) != n {
		return nil, &domain.ConfigurationError{Field: "prices", Reason: "length does not match asset count"}
	}
	if len(covariance) != n {
		return nil, &domain.ConfigurationError{Field: "covariance", Reason: "row count does not match asset count"}
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(covariance[i]) != n {
			return nil, &domain.ConfigurationError{Field: "covariance", Reason: "matrix is not square"}
		}
		if covariance[i][i] < 0 {
			return nil, &domain.ConfigurationError{Field: "covariance", Reason: "negative variance on diagonal"}
		}
		for j := i; j < n; j++ {
			if math.Abs(covariance[i][j]-covariance[j][i]) > symmetryTolerance {
				return nil, &domain.ConfigurationError{Field: "covariance", Reason: "matrix is not symmetric"}
			}
			cov.SetSym(i, j, covariance[i][j])
		}
	}

	return &Statistics{
		Assets:          append([]string(nil), assets...),
		ExpectedReturns: append([]float64(nil), expectedReturns...),
		Covariance:      cov,
		Prices:          append([]float64(nil), prices...),
	}, nil
}

// PortfolioReturn computes dot(weights, expectedReturns) for any weight
// vector of matching dimension. Pure function.
func (s *Statistics) PortfolioReturn(weights []float64) float64 {
	return floats.Dot(weights, s.ExpectedReturns)
}

// PortfolioRisk computes sqrt(wᵀΣw) for any weight vector of matching
// dimension. The covariance is PSD so the quadratic form is clamped at zero
// before the square root to absorb floating point noise.
func (s *Statistics) PortfolioRisk(weights []float64) float64 {
	w := mat.NewVecDense(len(weights), weights)
	var tmp mat.VecDense
	tmp.MulVec(s.Covariance, w)
	variance := mat.Dot(w, &tmp)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
