package rating

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"ammQuote/internal/opt"
)

func TestPriceImpact(t *testing.T) {
	tests := []struct {
		pct  float64
		want Color
	}{
		{pct: -1, want: Green},
		{pct: 0, want: Green},
		{pct: 0.2, want: Green},
		{pct: 0.2000001, want: Yellow},
		{pct: 0.35, want: Yellow},
		{pct: 0.5, want: Yellow},
		{pct: 0.5000001, want: Red},
		{pct: 12, want: Red},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PriceImpact(tt.pct), "pct=%v", tt.pct)
	}
}

func TestDeviation(t *testing.T) {
	th := DefaultThresholds()
	rate := func(ratio float64) opt.Value[Color] {
		return Deviation(Params{Ratio: ratio, Price: 1, RedPct: th.RedPct, YellowPct: th.YellowPct})
	}

	got, ok := rate(0.005).Get()
	require.True(t, ok)
	require.Equal(t, Green, got)

	got, _ = rate(0.01).Get()
	require.Equal(t, Green, got, "exactly 1% stays green")

	got, _ = rate(-0.015).Get()
	require.Equal(t, Yellow, got, "negative deviation uses magnitude")

	got, _ = rate(0.02).Get()
	require.Equal(t, Yellow, got, "exactly 2% stays yellow")

	got, _ = rate(0.25).Get()
	require.Equal(t, Red, got)

	got, ok = rate(0).Get()
	require.True(t, ok, "zero deviation is a rating, not absent")
	require.Equal(t, Green, got)
}

func TestDeviationAbsent(t *testing.T) {
	require.False(t, Deviation(Params{Ratio: math.NaN(), Price: 1, RedPct: 2, YellowPct: 1}).Present())
	require.False(t, Deviation(Params{Ratio: 0.1, Price: 0, RedPct: 2, YellowPct: 1}).Present())
	require.False(t, Deviation(Params{Ratio: 0.1, Price: math.Inf(1), RedPct: 2, YellowPct: 1}).Present())
}

func TestDeviationRatio(t *testing.T) {
	ratio, ok := DeviationRatio(opt.Some(2.0), 1.9, opt.Some(100.0), 0.5).Get()
	require.True(t, ok)
	require.InDelta(t, 0.05, ratio, 1e-12, "input reference takes precedence")

	ratio, ok = DeviationRatio(opt.None[float64](), 1.9, opt.Some(0.5), 0.51).Get()
	require.True(t, ok)
	require.InDelta(t, 0.02, ratio, 1e-12)

	require.False(t, DeviationRatio(opt.None[float64](), 1, opt.None[float64](), 1).Present())
}

func TestFeeInReference(t *testing.T) {
	fee, ok := FeeInReference(0.003, opt.Some(1500.0)).Get()
	require.True(t, ok)
	require.InDelta(t, 4.5, fee, 1e-9)
	require.False(t, FeeInReference(0.003, opt.None[float64]()).Present())
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	require.Error(t, Thresholds{RedPct: 1, YellowPct: 2}.Validate())
	require.Error(t, Thresholds{RedPct: -1, YellowPct: -2}.Validate())
}

func TestColorJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Color{"rating": Yellow})
	require.NoError(t, err)
	require.JSONEq(t, `{"rating":"YELLOW"}`, string(data))

	var decoded struct {
		Rating Color `json:"rating"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"rating":"red"}`), &decoded))
	require.Equal(t, Red, decoded.Rating)

	_, err = ParseColor("blue")
	require.Error(t, err)
}
