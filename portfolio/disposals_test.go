package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDisposalRecords(t *testing.T) {
	txs := []*Tx{
		mkTx("s2", "VOD", SELL, "2024-08-01", "30", "3"),
		mkTx("b1", "VOD", BUY, "2024-05-01", "50", "2"),
		withFee(mkTx("s1", "VOD", SELL, "2024-07-01", "40", "2.5"), "4"),
	}
	ctx := RunPipeline(txs, DefaultStages())
	records, err := BuildDisposalRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	require.Equal(t, "s1", first.Disposal.ID)
	requireDecEqual(t, "96", first.ProceedsGBP)
	requireDecEqual(t, "80", first.AllowableCostsGBP)
	requireDecEqual(t, "16", first.GainOrLossGBP)
	require.False(t, first.IsIncomplete)

	second := records[1]
	require.Equal(t, "s2", second.Disposal.ID)
	require.True(t, second.IsIncomplete)
	requireDecEqual(t, "10", second.QuantityMatched)
	requireDecEqual(t, "20", second.UnmatchedQuantity)
	requireDecEqual(t, "30", second.ProceedsGBP)
	requireDecEqual(t, "20", second.AllowableCostsGBP)
	requireDecEqual(t, "10", second.GainOrLossGBP)
	require.Equal(t, "2024/25", second.TaxYear)
}

func TestBuildDisposalRecordsWithoutMatchings(t *testing.T) {
	sell := mkTx("s1", "VOD", SELL, "2024-08-01", "30", "3")
	records, err := BuildDisposalRecords(NewMatchingContext([]*Tx{sell}))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].IsIncomplete)
	requireDecEqual(t, "30", records[0].UnmatchedQuantity)
	require.Empty(t, records[0].Rules())
}
