package portfolio

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wwade/ukcgt/util"
)

type PrintHelper struct {
	PrintAllDecimals bool
}

func humanizeDecimalStr(val string) string {
	if os.Getenv("HUMANIZE") == "" {
		return val
	}
	negative := ""
	if strings.HasPrefix(val, "-") {
		negative, val = val[:1], val[1:]
	}
	before, after, found := strings.Cut(val, ".")
	suffix := ""
	if found {
		suffix = fmt.Sprintf(".%s", after)
	}
	i, err := strconv.ParseInt(before, 10, 64)
	if err != nil {
		panic(err)
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s%d%s", negative, i, suffix)
}

func (h PrintHelper) CurrStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return humanizeDecimalStr(val.String())
	}
	return humanizeDecimalStr(val.StringFixed(2))
}

func (h PrintHelper) PoundStr(val decimal.Decimal) string {
	return "£" + h.CurrStr(val)
}

func (h PrintHelper) PlusMinusPound(val decimal.Decimal, showPlus bool) string {
	if val.IsNegative() {
		return fmt.Sprintf("-£%s", h.CurrStr(val.Neg()))
	}
	plus := ""
	if showPlus && val.IsPositive() {
		plus = "+"
	}
	return fmt.Sprintf("%s£%s", plus, h.CurrStr(val))
}

func (h PrintHelper) QtyStr(val decimal.Decimal) string {
	return humanizeDecimalStr(val.String())
}

func strOrDash(useStr bool, str string) string {
	if useStr {
		return str
	}
	return "-"
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

func rulesStr(rules []MatchingRule) string {
	strs := make([]string, 0, len(rules))
	for _, r := range rules {
		strs = append(strs, string(r))
	}
	return strings.Join(strs, "\n")
}

// RenderSymbolTableModel renders every trade of one symbol, with the outcome
// of each disposal and the disposals each row is matched into.
func RenderSymbolTableModel(
	txs []*AnnotatedTx, disposals []*DisposalRecord, gains *CumulativeCapitalGains,
	renderFullValues bool) *RenderTable {

	table := &RenderTable{}
	table.Header = []string{"Date", "Tax Year", "TX", "Quantity", "Price", "Fee",
		"Rules", "Proceeds", "Allowable Cost", "Gain/Loss", "Match Groups", "Memo"}

	ph := PrintHelper{PrintAllDecimals: renderFullValues}

	recordFor := map[string]*DisposalRecord{}
	for _, d := range disposals {
		recordFor[d.Disposal.ID] = d
	}

	sawIncomplete := false
	sawIncompleteTx := false
	for _, atx := range txs {
		tx := atx.Tx
		if !tx.IsAcquisition() && !tx.IsDisposal() {
			continue
		}
		// Ignored rows may lack GBP values; those render as "-".
		price, priceErr := tx.EffectivePriceGBP()
		fee, feeErr := tx.FeeGBPOrZero()
		row := []string{tx.Date.String(), tx.TaxYearOrDerived(), tx.Type.String(),
			ph.QtyStr(tx.EffectiveQuantity()),
			strOrDash(priceErr == nil, ph.PoundStr(price)),
			strOrDash(feeErr == nil && !fee.IsZero(), ph.PoundStr(fee)),
		}
		rec, isDisposal := recordFor[tx.ID]
		if isDisposal {
			gainStr := ph.PlusMinusPound(rec.GainOrLossGBP, false)
			if rec.IsIncomplete {
				gainStr += fmt.Sprintf(" *\n(%s unmatched)", ph.QtyStr(rec.UnmatchedQuantity))
				sawIncomplete = true
			}
			row = append(row,
				rulesStr(rec.Rules()),
				ph.PoundStr(rec.ProceedsGBP),
				ph.PoundStr(rec.AllowableCostsGBP),
				gainStr,
			)
		} else {
			row = append(row, "-", "-", "-", "-")
		}
		memo := tx.Memo
		if tx.Incomplete {
			memo = "(incomplete) " + memo
			sawIncompleteTx = true
		}
		if tx.Ignored {
			memo = "(ignored) " + memo
		}
		row = append(row, strings.Join(atx.MatchGroups, "\n"), strings.TrimSpace(memo))
		table.Rows = append(table.Rows, row)
	}

	years := gains.CapitalGainsYearTotalsKeysSorted()
	yearStrs := []string{}
	yearValsStrs := []string{}
	for _, year := range years {
		yearStrs = append(yearStrs, year)
		yearValsStrs = append(yearValsStrs, ph.PlusMinusPound(gains.CapitalGainsYearTotals[year], false))
	}
	totalFooterLabel := "Total"
	totalFooterValsStr := ph.PlusMinusPound(gains.CapitalGainsTotal, false)
	if len(years) > 0 {
		totalFooterLabel += "\n" + strings.Join(yearStrs, "\n")
		totalFooterValsStr += "\n" + strings.Join(yearValsStrs, "\n")
	}
	table.Footer = []string{"", "", "", "", "", "", "", "",
		totalFooterLabel, totalFooterValsStr, "", ""}

	if sawIncomplete {
		table.Notes = append(table.Notes,
			" * Disposal is incomplete: no acquisition could be matched to part of it.\n"+
				"   The unmatched quantity contributes no proceeds, cost or gain.")
	}
	if sawIncompleteTx {
		table.Notes = append(table.Notes,
			" (incomplete) The importer flagged this transaction as incomplete. Check it against\n"+
				"   the broker statement before filing.")
	}
	return table
}

func RenderPoolTableModel(pool *Section104Pool, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Date", "Op", "TX", "Quantity", "Cost", "Proceeds",
		"Pool Quantity", "Pool Cost", "Average Cost"}
	ph := PrintHelper{PrintAllDecimals: renderFullValues}

	for _, e := range pool.History {
		table.Rows = append(table.Rows, []string{
			strOrDash(!e.Date.IsZero(), e.Date.String()),
			string(e.Op),
			strOrDash(e.TxID != "", e.TxID),
			ph.QtyStr(e.Quantity),
			ph.PoundStr(e.CostGBP),
			strOrDash(e.Op == POOL_SELL, ph.PoundStr(e.ProceedsGBP)),
			ph.QtyStr(e.BalanceQuantity),
			ph.PoundStr(e.BalanceCostGBP),
			ph.PoundStr(e.AverageCostGBP),
		})
	}
	table.Footer = []string{"", "", "", "", "", "",
		ph.QtyStr(pool.Quantity), ph.PoundStr(pool.TotalCostGBP), ph.PoundStr(pool.AverageCostGBP())}
	return table
}

// RenderTaxYearSummaries generates one row per tax year, newest first.
func RenderTaxYearSummaries(summaries []*TaxYearSummary, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Tax Year", "Disposals", "Proceeds", "Costs", "Gains", "Losses",
		"Net", "Exempt Amount", "Taxable Gain", "Dividends\n(gross / net)", "Interest\n(gross / net)",
		"Incomplete"}
	ph := PrintHelper{PrintAllDecimals: renderFullValues}

	for _, s := range summaries {
		table.Rows = append(table.Rows, []string{
			s.TaxYear,
			strconv.Itoa(s.NumberOfDisposals),
			ph.PoundStr(s.TotalProceedsGBP),
			ph.PoundStr(s.TotalAllowableCostsGBP),
			ph.PlusMinusPound(s.TotalGainsGBP, false),
			ph.PlusMinusPound(s.TotalLossesGBP, false),
			ph.PlusMinusPound(s.NetGainOrLossGBP, false),
			ph.PoundStr(s.AnnualExemptAmount),
			ph.PoundStr(s.TaxableGainGBP),
			fmt.Sprintf("%s / %s", ph.PoundStr(s.Dividends.GrossGBP), ph.PoundStr(s.Dividends.NetGBP)),
			fmt.Sprintf("%s / %s", ph.PoundStr(s.Interest.GrossGBP), ph.PoundStr(s.Interest.NetGBP)),
			util.Tern(s.IncompleteDisposals > 0, strconv.Itoa(s.IncompleteDisposals), "-"),
		})
		table.Notes = append(table.Notes, renderFeatureNotes(s, ph)...)
	}
	return table
}

func renderFeatureNotes(s *TaxYearSummary, ph PrintHelper) []string {
	var notes []string
	ids := util.MapKeys(s.Features)
	sort.Strings(ids)
	for _, id := range ids {
		switch data := s.Features[id].(type) {
		case *RateChangeData:
			note := fmt.Sprintf(
				" %s: CGT rates changed on %s. Net %s before (%s%%/%s%%), %s on or after (%s%%/%s%%).",
				s.TaxYear, data.CutoffDate,
				ph.PlusMinusPound(data.Before.NetGainOrLossGBP, false),
				data.Before.BasicRatePercent, data.Before.HigherRatePercent,
				ph.PlusMinusPound(data.After.NetGainOrLossGBP, false),
				data.After.BasicRatePercent, data.After.HigherRatePercent)
			if data.RequiresAdjustment {
				note += "\n   An adjustment for the rate change is required on the return."
			}
			notes = append(notes, note)
		default:
			notes = append(notes, fmt.Sprintf(" %s: %s: %v", s.TaxYear, id, data))
		}
	}
	return notes
}

// RenderAggregateCapitalGains generates a RenderTable that will render out to this:
//
//	| Tax Year         | Capital Gains |
//	+------------------+---------------+
//	| 2022/23          | xxxx.xx       |
//	| 2023/24          | xxxx.xx       |
//	| Since inception  | xxxx.xx       |
func RenderAggregateCapitalGains(
	gains *CumulativeCapitalGains, renderFullValues bool) *RenderTable {

	table := &RenderTable{}
	table.Header = []string{"Tax Year", "Capital Gains"}

	ph := PrintHelper{PrintAllDecimals: renderFullValues}

	for _, year := range gains.CapitalGainsYearTotalsKeysSorted() {
		table.Rows = append(table.Rows,
			[]string{year, ph.PlusMinusPound(gains.CapitalGainsYearTotals[year], false)})
	}
	table.Rows = append(table.Rows,
		[]string{"Since inception", ph.PlusMinusPound(gains.CapitalGainsTotal, false)})

	return table
}
