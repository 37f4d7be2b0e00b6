package portfolio

import (
	"github.com/wwade/ukcgt/date"
	"github.com/wwade/ukcgt/util"
)

const bedAndBreakfastDays = 30

type thirtyDayStage struct{}

// NewThirtyDayStage implements the "bed and breakfast" rule, TCGA92/S106A(5).
// A disposal is matched FIFO with acquisitions of the same symbol made in the
// 30 days after it (day 30 inclusive). Acquisitions on the disposal day belong
// to the same-day rule and never qualify.
func NewThirtyDayStage() Stage {
	return thirtyDayStage{}
}

func (thirtyDayStage) Name() string { return "30-day" }

func GetLastDayInBedAndBreakfastPeriod(disposalDate date.Date) date.Date {
	return disposalDate.AddDays(bedAndBreakfastDays)
}

func (thirtyDayStage) Apply(ctx *MatchingContext) *MatchingContext {
	remaining := ctx.RemainingQuantities()
	symbols, timelines := ctx.symbolTimelines()

	var results []*MatchingResult
	for _, sym := range symbols {
		results = append(results, matchThirtyDay(timelines[sym], remaining)...)
	}
	if len(results) == 0 {
		return ctx
	}
	return ctx.WithMatchings(results...)
}

func matchThirtyDay(txs []*Tx, remaining *QuantityTracker) []*MatchingResult {
	var results []*MatchingResult
	for idx, disposal := range txs {
		if !disposal.IsDisposal() || !remaining.Remaining(disposal).IsPositive() {
			continue
		}
		lastDay := GetLastDayInBedAndBreakfastPeriod(disposal.Date)

		var m *MatchingResult
		for i := idx + 1; i < len(txs); i++ {
			acq := txs[i]
			if acq.Date.After(lastDay) {
				break
			}
			if !acq.IsAcquisition() || !acq.Date.After(disposal.Date) {
				continue
			}
			qty := util.MinDecimal(remaining.Remaining(disposal), remaining.Remaining(acq))
			if !qty.IsPositive() {
				continue
			}
			if m == nil {
				m = newMatchingResult(disposal, RULE_30_DAY)
			}
			m.addAcquisition(acq, qty, qty.Mul(mustUnitCostGBP(acq)))
			remaining.consume(disposal, qty)
			remaining.consume(acq, qty)
			if !remaining.Remaining(disposal).IsPositive() {
				break
			}
		}
		if m != nil {
			results = append(results, m)
		}
	}
	return results
}
