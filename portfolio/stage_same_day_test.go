package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameDayStage(t *testing.T) {
	buy := mkTx("b1", "AAPL", BUY, "2024-06-03", "10", "180")
	sell := mkTx("s1", "AAPL", SELL, "2024-06-03", "10", "185")

	ctx := NewSameDayStage().Apply(NewMatchingContext([]*Tx{sell, buy}))
	require.Len(t, ctx.Matchings, 1)
	m := ctx.Matchings[0]
	require.Equal(t, RULE_SAME_DAY, m.Rule)
	require.Equal(t, sell, m.Disposal)
	require.Len(t, m.Acquisitions, 1)
	require.Equal(t, buy, m.Acquisitions[0].Tx)
	requireDecEqual(t, "10", m.QuantityMatched)
	requireDecEqual(t, "1800", m.TotalCostBasisGBP)
}

func TestSameDayStageAggregatesDay(t *testing.T) {
	txs := []*Tx{
		mkTx("s1", "VOD", SELL, "2024-06-03", "15", "1.10"),
		mkTx("b1", "VOD", BUY, "2024-06-03", "10", "1.00"),
		mkTx("b2", "VOD", BUY, "2024-06-03", "10", "1.20"),
		// Different day and different symbol never match.
		mkTx("b3", "VOD", BUY, "2024-06-04", "10", "1.00"),
		mkTx("b4", "BP", BUY, "2024-06-03", "10", "1.00"),
	}
	ctx := NewSameDayStage().Apply(NewMatchingContext(txs))
	require.Len(t, ctx.Matchings, 1)
	m := ctx.Matchings[0]
	require.Len(t, m.Acquisitions, 2)
	requireDecEqual(t, "10", m.Acquisitions[0].QuantityMatched)
	requireDecEqual(t, "5", m.Acquisitions[1].QuantityMatched)
	requireDecEqual(t, "15", m.QuantityMatched)
	requireDecEqual(t, "16", m.TotalCostBasisGBP)

	remaining := ctx.RemainingQuantities()
	requireDecEqual(t, "0", remaining.Remaining(txs[0]))
	requireDecEqual(t, "5", remaining.Remaining(txs[2]))
	requireDecEqual(t, "10", remaining.Remaining(txs[3]))
}

func TestSameDayStageNoMatchReturnsContext(t *testing.T) {
	ctx := NewMatchingContext([]*Tx{mkTx("s1", "VOD", SELL, "2024-06-03", "15", "1.10")})
	require.Same(t, ctx, NewSameDayStage().Apply(ctx))
}
