package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/util"
)

type CumulativeCapitalGains struct {
	CapitalGainsTotal      decimal.Decimal
	CapitalGainsYearTotals map[string]decimal.Decimal
	ProceedsTotal          decimal.Decimal
	ProceedsByYear         map[string]decimal.Decimal
}

func newCumulativeCapitalGains() *CumulativeCapitalGains {
	return &CumulativeCapitalGains{
		CapitalGainsYearTotals: map[string]decimal.Decimal{},
		ProceedsByYear:         map[string]decimal.Decimal{},
	}
}

// CapitalGainsYearTotalsKeysSorted returns the tax years, oldest first.
func (g *CumulativeCapitalGains) CapitalGainsYearTotalsKeysSorted() []string {
	years := util.MapKeys(g.CapitalGainsYearTotals)
	sort.Strings(years)
	return years
}

func CalcSymbolCumulativeCapitalGains(disposals []*DisposalRecord) *CumulativeCapitalGains {
	cc := newCumulativeCapitalGains()
	for _, d := range disposals {
		cc.CapitalGainsTotal = cc.CapitalGainsTotal.Add(d.GainOrLossGBP)
		cc.CapitalGainsYearTotals[d.TaxYear] = cc.CapitalGainsYearTotals[d.TaxYear].Add(d.GainOrLossGBP)
		cc.ProceedsTotal = cc.ProceedsTotal.Add(d.ProceedsGBP)
		cc.ProceedsByYear[d.TaxYear] = cc.ProceedsByYear[d.TaxYear].Add(d.ProceedsGBP)
	}
	return cc
}

func CalcCumulativeCapitalGains(symGains map[string]*CumulativeCapitalGains) *CumulativeCapitalGains {
	cc := newCumulativeCapitalGains()
	for _, gains := range symGains {
		cc.CapitalGainsTotal = cc.CapitalGainsTotal.Add(gains.CapitalGainsTotal)
		cc.ProceedsTotal = cc.ProceedsTotal.Add(gains.ProceedsTotal)
		for year, yearGains := range gains.CapitalGainsYearTotals {
			cc.CapitalGainsYearTotals[year] = cc.CapitalGainsYearTotals[year].Add(yearGains)
		}
		for year, proceeds := range gains.ProceedsByYear {
			cc.ProceedsByYear[year] = cc.ProceedsByYear[year].Add(proceeds)
		}
	}
	return cc
}

func SplitDisposalsBySymbol(disposals []*DisposalRecord) map[string][]*DisposalRecord {
	bySym := make(map[string][]*DisposalRecord)
	for _, d := range disposals {
		bySym[d.Disposal.Symbol] = append(bySym[d.Disposal.Symbol], d)
	}
	return bySym
}
