package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/util"
)

// Days after a disposal during which a covering acquisition is left to the
// 30-day rule rather than being matched as a short sale cover.
const shortSellThirtyDayWindow = 30

type shortLot struct {
	disposal    *Tx
	outstanding decimal.Decimal
}

type tradeAmount struct {
	tx  *Tx
	qty decimal.Decimal
}

type shortSellStage struct{}

// NewShortSellStage matches disposals made without sufficient holdings against
// the acquisitions that later cover them.
//
// The symbol's position is replayed one day at a time. A day's acquisitions
// and disposals are first netted against each other (they belong to the
// same-day rule), leftover acquisitions then cover outstanding short lots
// FIFO, and leftover disposals draw down the long position, with any excess
// opening a new short lot. Only covers that land more than 30 days after the
// short disposal are matched here. Nearer covers are left to the 30-day stage.
func NewShortSellStage() Stage {
	return shortSellStage{}
}

func (shortSellStage) Name() string { return "short-sell" }

func (shortSellStage) Apply(ctx *MatchingContext) *MatchingContext {
	remaining := ctx.RemainingQuantities()
	symbols, timelines := ctx.symbolTimelines()

	var results []*MatchingResult
	for _, sym := range symbols {
		results = append(results, matchShortSells(timelines[sym], remaining)...)
	}
	if len(results) == 0 {
		return ctx
	}
	return ctx.WithMatchings(results...)
}

func matchShortSells(txs []*Tx, remaining *QuantityTracker) []*MatchingResult {
	var (
		position   decimal.Decimal
		shorts     []*shortLot
		results    []*MatchingResult
		resultsFor = map[string]*MatchingResult{}
	)

	record := func(lot *shortLot, acq *Tx, qty decimal.Decimal) {
		m, ok := resultsFor[lot.disposal.ID]
		if !ok {
			m = newMatchingResult(lot.disposal, RULE_SHORT_SELL)
			resultsFor[lot.disposal.ID] = m
			results = append(results, m)
		}
		m.addAcquisition(acq, qty, qty.Mul(mustUnitCostGBP(acq)))
		remaining.consume(lot.disposal, qty)
		remaining.consume(acq, qty)
	}

	for _, day := range groupByDate(txs) {
		var acqs, disps []*tradeAmount
		var acqTotal, dispTotal decimal.Decimal
		for _, tx := range day {
			qty := remaining.Remaining(tx)
			if !qty.IsPositive() {
				continue
			}
			if tx.IsAcquisition() {
				acqs = append(acqs, &tradeAmount{tx, qty})
				acqTotal = acqTotal.Add(qty)
			} else {
				disps = append(disps, &tradeAmount{tx, qty})
				dispTotal = dispTotal.Add(qty)
			}
		}

		sameDay := util.MinDecimal(acqTotal, dispTotal)
		drainAmounts(acqs, sameDay)
		drainAmounts(disps, sameDay)

		for _, acq := range acqs {
			for _, lot := range shorts {
				if !acq.qty.IsPositive() {
					break
				}
				if !lot.outstanding.IsPositive() {
					continue
				}
				covered := util.MinDecimal(acq.qty, lot.outstanding)
				if acq.tx.Date.DaysSince(lot.disposal.Date) > shortSellThirtyDayWindow {
					record(lot, acq.tx, covered)
				}
				lot.outstanding = lot.outstanding.Sub(covered)
				acq.qty = acq.qty.Sub(covered)
			}
			position = position.Add(acq.qty)
		}

		for _, disp := range disps {
			fromLong := util.MinDecimal(disp.qty, position)
			position = position.Sub(fromLong)
			if short := disp.qty.Sub(fromLong); short.IsPositive() {
				shorts = append(shorts, &shortLot{disposal: disp.tx, outstanding: short})
			}
		}
	}
	return results
}

// drainAmounts removes total from the amounts, first to last.
func drainAmounts(amounts []*tradeAmount, total decimal.Decimal) {
	for _, a := range amounts {
		if !total.IsPositive() {
			return
		}
		taken := util.MinDecimal(a.qty, total)
		a.qty = a.qty.Sub(taken)
		total = total.Sub(taken)
	}
}

// groupByDate splits chronologically sorted txs into runs sharing a date.
func groupByDate(txs []*Tx) [][]*Tx {
	var days [][]*Tx
	for i, tx := range txs {
		if i == 0 || !tx.Date.Equal(txs[i-1].Date) {
			days = append(days, []*Tx{})
		}
		days[len(days)-1] = append(days[len(days)-1], tx)
	}
	return days
}

func mustUnitCostGBP(tx *Tx) decimal.Decimal {
	cost, err := tx.UnitCostGBP()
	util.Assertf(err == nil, "unvalidated acquisition reached the pipeline: %v", err)
	return cost
}

func mustUnitProceedsGBP(tx *Tx) decimal.Decimal {
	proceeds, err := tx.UnitProceedsGBP()
	util.Assertf(err == nil, "unvalidated disposal reached the pipeline: %v", err)
	return proceeds
}
