package portfolio

import (
	"github.com/shopspring/decimal"
)

// DisposalRecord is the CGT outcome of one disposal transaction, combining
// every matching made for it.
//
// Only the matched quantity contributes proceeds and costs. If a disposal is
// not fully matched, the remainder is reported as UnmatchedQuantity rather
// than estimated.
type DisposalRecord struct {
	Disposal          *Tx
	Matchings         []*MatchingResult
	QuantityMatched   decimal.Decimal
	ProceedsGBP       decimal.Decimal
	AllowableCostsGBP decimal.Decimal
	GainOrLossGBP     decimal.Decimal
	TaxYear           string
	IsIncomplete      bool
	UnmatchedQuantity decimal.Decimal
}

func (r *DisposalRecord) Rules() []MatchingRule {
	var rules []MatchingRule
	for _, m := range r.Matchings {
		if m.QuantityMatched.IsPositive() {
			rules = append(rules, m.Rule)
		}
	}
	return rules
}

// BuildDisposalRecords groups the context's matchings by disposal. Disposals
// that no stage matched at all are included as fully unmatched. The result is
// sorted by disposal date, keeping input order for equal dates.
func BuildDisposalRecords(ctx *MatchingContext) ([]*DisposalRecord, error) {
	byDisposal := map[string][]*MatchingResult{}
	for _, m := range ctx.Matchings {
		byDisposal[m.Disposal.ID] = append(byDisposal[m.Disposal.ID], m)
	}

	var records []*DisposalRecord
	for _, tx := range SortTxs(ctx.Transactions) {
		if tx.Ignored || !tx.IsDisposal() {
			continue
		}
		record, err := buildDisposalRecord(tx, byDisposal[tx.ID])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func buildDisposalRecord(tx *Tx, matchings []*MatchingResult) (*DisposalRecord, error) {
	unitProceeds, err := tx.UnitProceedsGBP()
	if err != nil {
		return nil, err
	}

	var matched, costs decimal.Decimal
	for _, m := range matchings {
		matched = matched.Add(m.QuantityMatched)
		costs = costs.Add(m.TotalCostBasisGBP)
	}
	proceeds := unitProceeds.Mul(matched)
	unmatched := tx.EffectiveQuantity().Sub(matched)

	return &DisposalRecord{
		Disposal:          tx,
		Matchings:         matchings,
		QuantityMatched:   matched,
		ProceedsGBP:       proceeds,
		AllowableCostsGBP: costs,
		GainOrLossGBP:     proceeds.Sub(costs),
		TaxYear:           tx.TaxYearOrDerived(),
		IsIncomplete:      unmatched.IsPositive(),
		UnmatchedQuantity: unmatched,
	}, nil
}
