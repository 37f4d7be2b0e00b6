package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wwade/ukcgt/date"
)

var readIndex uint32

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

// mkTx builds a GBP-enriched trade with no fee.
func mkTx(id, sym string, typ TxType, day, qty, price string) *Tx {
	readIndex++
	return &Tx{
		ID:        id,
		Symbol:    sym,
		Date:      date.MustParse(day),
		Type:      typ,
		Quantity:  dec(qty),
		Price:     dec(price),
		Currency:  "GBP",
		PriceGBP:  nullDec(price),
		ReadIndex: readIndex,
	}
}

func withFee(tx *Tx, fee string) *Tx {
	tx.Fee = dec(fee)
	tx.FeeGBP = nullDec(fee)
	return tx
}

func requireDecEqual(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func findDisposal(t *testing.T, records []*DisposalRecord, id string) *DisposalRecord {
	t.Helper()
	for _, r := range records {
		if r.Disposal.ID == id {
			return r
		}
	}
	require.FailNow(t, "no disposal record", "id %s", id)
	return nil
}

func matchingsFor(ctx *MatchingContext, rule MatchingRule) []*MatchingResult {
	var ms []*MatchingResult
	for _, m := range ctx.Matchings {
		if m.Rule == rule {
			ms = append(ms, m)
		}
	}
	return ms
}
