package portfolio

import (
	"github.com/wwade/ukcgt/util"
)

type sameDayStage struct{}

// NewSameDayStage implements TCGA92/S105(1): disposals are matched with
// acquisitions of the same symbol made on the same day. All of a day's
// acquisitions are treated as a single one, so order within the day does not
// change the outcome.
func NewSameDayStage() Stage {
	return sameDayStage{}
}

func (sameDayStage) Name() string { return "same-day" }

func (sameDayStage) Apply(ctx *MatchingContext) *MatchingContext {
	remaining := ctx.RemainingQuantities()
	symbols, timelines := ctx.symbolTimelines()

	var results []*MatchingResult
	for _, sym := range symbols {
		for _, day := range groupByDate(timelines[sym]) {
			results = append(results, matchSameDay(day, remaining)...)
		}
	}
	if len(results) == 0 {
		return ctx
	}
	return ctx.WithMatchings(results...)
}

func matchSameDay(day []*Tx, remaining *QuantityTracker) []*MatchingResult {
	var results []*MatchingResult
	for _, disposal := range day {
		if !disposal.IsDisposal() {
			continue
		}
		var m *MatchingResult
		for _, acq := range day {
			if !acq.IsAcquisition() {
				continue
			}
			qty := util.MinDecimal(remaining.Remaining(disposal), remaining.Remaining(acq))
			if !qty.IsPositive() {
				continue
			}
			if m == nil {
				m = newMatchingResult(disposal, RULE_SAME_DAY)
			}
			m.addAcquisition(acq, qty, qty.Mul(mustUnitCostGBP(acq)))
			remaining.consume(disposal, qty)
			remaining.consume(acq, qty)
		}
		if m != nil {
			results = append(results, m)
		}
	}
	return results
}
