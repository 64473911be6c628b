package qubo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/statistics"
)

func threeAssetStats(t *testing.T) *statistics.Statistics {
	t.Helper()
	stats, err := statistics.NewFromMoments(
		[]string{"A", "B", "C"},
		[]float64{10, 20, 5},
		[][]float64{
			{0.04, 0, 0},
			{0, 0.09, 0},
			{0, 0, 0.01},
		},
		[]float64{30, 60, 20},
	)
	require.NoError(t, err)
	return stats
}

// enumerate yields every bit vector of the given length in integer order.
func enumerate(bits int, visit func([]int)) {
	vec := make([]int, bits)
	for k := 0; k < 1<<bits; k++ {
		for i := range vec {
			vec[i] = (k >> i) & 1
		}
		visit(vec)
	}
}

func TestBuildExactCardinality(t *testing.T) {
	f := NewFormulator(Config{RiskAversion: 0, MinAssets: 2, MaxAssets: 2})
	p, err := f.Build(threeAssetStats(t))
	require.NoError(t, err)

	assert.Equal(t, 3, p.N)
	assert.Equal(t, 0, p.SlackBits)
	assert.Equal(t, 3, p.TotalBits())

	// With zero risk aversion the best pair is the two highest returns
	best := []int{1, 1, 0}
	bestValue := p.Evaluate(best)
	enumerate(p.TotalBits(), func(bits []int) {
		if p.Evaluate(bits) < bestValue {
			t.Fatalf("found lower energy than expected optimum: bits=%v", bits)
		}
	})
	assert.InDelta(t, -30, bestValue, 1e-9)
	assert.True(t, p.Feasible(best))
	assert.Equal(t, 2, p.Cardinality(best))
}

func TestBuildSlackEncodesObjective(t *testing.T) {
	stats, err := statistics.NewFromMoments(
		[]string{"A", "B", "C", "D"},
		[]float64{8, 12, 6, 4},
		[][]float64{
			{0.04, 0.01, 0, 0},
			{0.01, 0.09, 0.02, 0},
			{0, 0.02, 0.01, 0},
			{0, 0, 0, 0.05},
		},
		[]float64{10, 20, 30, 40},
	)
	require.NoError(t, err)

	riskAversion := 0.5
	f := NewFormulator(Config{RiskAversion: riskAversion, MinAssets: 1, MaxAssets: 3})
	p, err := f.Build(stats)
	require.NoError(t, err)

	// Range max-min = 2 needs two slack bits summing to 2
	assert.Equal(t, 2, p.SlackBits)
	coeffs := p.SlackCoefficients()
	assert.Equal(t, 2, coeffs[0]+coeffs[1])

	// Selecting A and B with slack filled to max cardinality must recover
	// the raw objective: penalty term vanishes
	bits := []int{1, 1, 0, 0, 1, 0}
	if coeffs[0] != 1 {
		bits = []int{1, 1, 0, 0, 0, 1}
	}
	want := -(8.0 + 12.0) + riskAversion*(0.04+0.09+2*0.01)
	assert.InDelta(t, want, p.Evaluate(bits), 1e-9)
}

func TestAutoPenaltyKeepsMinimumFeasible(t *testing.T) {
	stats, err := statistics.NewFromMoments(
		[]string{"A", "B", "C", "D"},
		[]float64{15, 25, 10, 30},
		[][]float64{
			{0.04, 0.02, 0.01, 0},
			{0.02, 0.09, 0.03, 0.01},
			{0.01, 0.03, 0.01, 0},
			{0, 0.01, 0, 0.16},
		},
		[]float64{1, 1, 1, 1},
	)
	require.NoError(t, err)

	for _, cfg := range []Config{
		{RiskAversion: 0, MinAssets: 2, MaxAssets: 2},
		{RiskAversion: 0.5, MinAssets: 1, MaxAssets: 3},
		{RiskAversion: 2, MinAssets: 2, MaxAssets: 4},
	} {
		p, err := NewFormulator(cfg).Build(stats)
		require.NoError(t, err)

		var bestBits []int
		bestValue := 0.0
		first := true
		enumerate(p.TotalBits(), func(bits []int) {
			v := p.Evaluate(bits)
			if first || v < bestValue {
				bestValue = v
				bestBits = append([]int(nil), bits...)
				first = false
			}
		})
		assert.True(t, p.Feasible(bestBits),
			"global minimum violates cardinality for config %+v", cfg)
	}
}

func TestBuildDeterministic(t *testing.T) {
	f := NewFormulator(Config{RiskAversion: 0.5, MinAssets: 1, MaxAssets: 3})
	a, err := f.Build(threeAssetStats(t))
	require.NoError(t, err)
	b, err := f.Build(threeAssetStats(t))
	require.NoError(t, err)

	assert.Equal(t, a.Offset, b.Offset)
	assert.Equal(t, a.Penalty, b.Penalty)
	for i := 0; i < a.TotalBits(); i++ {
		for j := 0; j < a.TotalBits(); j++ {
			assert.Equal(t, a.Q.At(i, j), b.Q.At(i, j))
		}
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"negative risk aversion", Config{RiskAversion: -1, MinAssets: 1, MaxAssets: 2}, "risk_aversion"},
		{"min below one", Config{MinAssets: 0, MaxAssets: 2}, "min_assets"},
		{"max below min", Config{MinAssets: 3, MaxAssets: 2}, "max_assets"},
		{"max above universe", Config{MinAssets: 1, MaxAssets: 4}, "max_assets"},
		{"negative penalty", Config{MinAssets: 1, MaxAssets: 2, Penalty: -5}, "penalty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormulator(tt.cfg).Build(threeAssetStats(t))
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSlackCoefficients(t *testing.T) {
	tests := []struct {
		bound int
		want  []int
	}{
		{0, nil},
		{1, []int{1}},
		{2, []int{1, 1}},
		{3, []int{1, 2}},
		{5, []int{1, 2, 2}},
		{7, []int{1, 2, 4}},
	}

	for _, tt := range tests {
		got := slackCoefficients(tt.bound)
		assert.Equal(t, tt.want, got, "bound %d", tt.bound)

		// Every value in [0, bound] must be representable
		reachable := map[int]bool{0: true}
		for _, c := range got {
			next := map[int]bool{}
			for v := range reachable {
				next[v] = true
				next[v+c] = true
			}
			reachable = next
		}
		for v := 0; v <= tt.bound; v++ {
			assert.True(t, reachable[v], "bound %d cannot represent %d", tt.bound, v)
		}
	}
}
