package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func disposalOn(day, gain string) *DisposalRecord {
	tx := mkTx("s-"+day, "VOD", SELL, day, "1", "1")
	return &DisposalRecord{Disposal: tx, TaxYear: TaxYearOf(tx.Date), GainOrLossGBP: dec(gain)}
}

func TestRateChangeFeature(t *testing.T) {
	f := NewRateChangeFeature()
	require.Equal(t, RateChangeFeatureID, f.ID())
	require.True(t, f.Applies("2024/25"))
	require.False(t, f.Applies("2023/24"))

	disposals := []*DisposalRecord{
		disposalOn("2024-05-01", "1500"),
		disposalOn("2024-10-29", "-300"),
		disposalOn("2024-10-30", "2000"),
		disposalOn("2025-01-10", "-100"),
	}
	summary := &TaxYearSummary{TaxYear: "2024/25", NetGainOrLossGBP: dec("3100"),
		AnnualExemptAmount: dec("3000")}
	out, ok := f.Calculate(summary, disposals)
	require.True(t, ok)
	data := out.(*RateChangeData)

	require.Equal(t, "2024-10-30", data.CutoffDate.String())
	require.Equal(t, 2, data.Before.NumberOfDisposals)
	requireDecEqual(t, "1500", data.Before.GainsGBP)
	requireDecEqual(t, "-300", data.Before.LossesGBP)
	requireDecEqual(t, "1200", data.Before.NetGainOrLossGBP)
	requireDecEqual(t, "10", data.Before.BasicRatePercent)
	requireDecEqual(t, "20", data.Before.HigherRatePercent)

	require.Equal(t, 2, data.After.NumberOfDisposals)
	requireDecEqual(t, "1900", data.After.NetGainOrLossGBP)
	requireDecEqual(t, "18", data.After.BasicRatePercent)
	requireDecEqual(t, "24", data.After.HigherRatePercent)
	require.True(t, data.RequiresAdjustment)
}

func TestRateChangeFeatureNoAdjustment(t *testing.T) {
	f := NewRateChangeFeature()

	// Under the exempt amount.
	summary := &TaxYearSummary{TaxYear: "2024/25", NetGainOrLossGBP: dec("2000"),
		AnnualExemptAmount: dec("3000")}
	out, _ := f.Calculate(summary, []*DisposalRecord{disposalOn("2024-11-01", "2000")})
	require.False(t, out.(*RateChangeData).RequiresAdjustment)

	// Nothing after the cutoff.
	summary.NetGainOrLossGBP = dec("5000")
	out, _ = f.Calculate(summary, []*DisposalRecord{disposalOn("2024-06-01", "5000")})
	require.False(t, out.(*RateChangeData).RequiresAdjustment)
}

type stubFeature struct {
	id    string
	years []string
	seen  *int
}

func (f stubFeature) ID() string { return f.id }

func (f stubFeature) Applies(taxYear string) bool {
	for _, y := range f.years {
		if y == taxYear {
			return true
		}
	}
	return false
}

func (f stubFeature) Calculate(summary *TaxYearSummary, disposals []*DisposalRecord) (any, bool) {
	*f.seen = len(disposals)
	return len(disposals), len(disposals) > 0
}

func TestFeatureRegistryApply(t *testing.T) {
	seen := -1
	registry := NewFeatureRegistry(stubFeature{id: "count", years: []string{"2023/24"}, seen: &seen})
	require.Len(t, registry.Features(), 1)

	disposals := []*DisposalRecord{
		disposalOn("2023-05-01", "1"),
		disposalOn("2023-06-01", "1"),
		disposalOn("2024-06-01", "1"),
	}
	s := &TaxYearSummary{TaxYear: "2023/24"}
	registry.Apply(s, disposals)
	require.Equal(t, 2, seen)
	require.Equal(t, map[string]any{"count": 2}, s.Features)

	seen = -1
	other := &TaxYearSummary{TaxYear: "2022/23", Features: map[string]any{}}
	registry.Apply(other, disposals)
	require.Equal(t, -1, seen)
	require.Empty(t, other.Features)

	require.Len(t, DefaultFeatureRegistry().Features(), 1)
	require.Equal(t, RateChangeFeatureID, DefaultFeatureRegistry().Features()[0].ID())
}
