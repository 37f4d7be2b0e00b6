package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
	ptf "github.com/wwade/ukcgt/portfolio"
	"github.com/wwade/ukcgt/util"
)

type jsonAcquisition struct {
	TxID            string          `json:"tx_id"`
	Date            date.Date       `json:"date"`
	QuantityMatched decimal.Decimal `json:"quantity_matched"`
	CostBasisGBP    decimal.Decimal `json:"cost_basis_gbp"`
}

type jsonMatching struct {
	Rule              ptf.MatchingRule  `json:"rule"`
	QuantityMatched   decimal.Decimal   `json:"quantity_matched"`
	TotalCostBasisGBP decimal.Decimal   `json:"total_cost_basis_gbp"`
	Acquisitions      []jsonAcquisition `json:"acquisitions"`
}

type jsonDisposal struct {
	TxID              string          `json:"tx_id"`
	Symbol            string          `json:"symbol"`
	Date              date.Date       `json:"date"`
	TaxYear           string          `json:"tax_year"`
	QuantityMatched   decimal.Decimal `json:"quantity_matched"`
	ProceedsGBP       decimal.Decimal `json:"proceeds_gbp"`
	AllowableCostsGBP decimal.Decimal `json:"allowable_costs_gbp"`
	GainOrLossGBP     decimal.Decimal `json:"gain_or_loss_gbp"`
	IsIncomplete      bool            `json:"is_incomplete"`
	UnmatchedQuantity decimal.Decimal `json:"unmatched_quantity"`
	Matchings         []jsonMatching  `json:"matchings"`
}

type jsonPool struct {
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	TotalCostGBP   decimal.Decimal `json:"total_cost_gbp"`
	AverageCostGBP decimal.Decimal `json:"average_cost_gbp"`
}

type jsonTx struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Date        date.Date  `json:"date"`
	Type        ptf.TxType `json:"type"`
	Ignored     bool       `json:"ignored,omitempty"`
	Incomplete  bool       `json:"incomplete,omitempty"`
	MatchGroups []string   `json:"match_groups,omitempty"`
}

type jsonResult struct {
	CalculatedAt      time.Time             `json:"calculated_at"`
	TotalTransactions int                   `json:"total_transactions"`
	TotalBuys         int                   `json:"total_buys"`
	TotalSells        int                   `json:"total_sells"`
	Transactions      []jsonTx              `json:"transactions"`
	Disposals         []jsonDisposal        `json:"disposals"`
	Section104Pools   []jsonPool            `json:"section104_pools"`
	TaxYearSummaries  []*ptf.TaxYearSummary `json:"tax_year_summaries"`
}

func toJSONResult(res *ptf.CalculationResult, filter taxYearFilter) *jsonResult {
	out := &jsonResult{
		CalculatedAt:      res.Metadata.CalculatedAt,
		TotalTransactions: res.Metadata.TotalTransactions,
		TotalBuys:         res.Metadata.TotalBuys,
		TotalSells:        res.Metadata.TotalSells,
		Transactions:      []jsonTx{},
		Disposals:         []jsonDisposal{},
		Section104Pools:   []jsonPool{},
		TaxYearSummaries:  []*ptf.TaxYearSummary{},
	}
	for _, atx := range res.Transactions {
		if !filter.hasDate(atx.Date) {
			continue
		}
		out.Transactions = append(out.Transactions, jsonTx{
			ID: atx.ID, Symbol: atx.Symbol, Date: atx.Date, Type: atx.Type,
			Ignored: atx.Ignored, Incomplete: atx.Incomplete, MatchGroups: atx.MatchGroups,
		})
	}
	for _, d := range res.Disposals {
		if !filter.hasYear(d.TaxYear) {
			continue
		}
		jd := jsonDisposal{
			TxID: d.Disposal.ID, Symbol: d.Disposal.Symbol, Date: d.Disposal.Date,
			TaxYear: d.TaxYear, QuantityMatched: d.QuantityMatched,
			ProceedsGBP: d.ProceedsGBP, AllowableCostsGBP: d.AllowableCostsGBP,
			GainOrLossGBP: d.GainOrLossGBP, IsIncomplete: d.IsIncomplete,
			UnmatchedQuantity: d.UnmatchedQuantity, Matchings: []jsonMatching{},
		}
		for _, m := range d.Matchings {
			jm := jsonMatching{
				Rule: m.Rule, QuantityMatched: m.QuantityMatched,
				TotalCostBasisGBP: m.TotalCostBasisGBP, Acquisitions: []jsonAcquisition{},
			}
			for _, a := range m.Acquisitions {
				jm.Acquisitions = append(jm.Acquisitions, jsonAcquisition{
					TxID: a.Tx.ID, Date: a.Tx.Date,
					QuantityMatched: a.QuantityMatched, CostBasisGBP: a.CostBasisGBP,
				})
			}
			jd.Matchings = append(jd.Matchings, jm)
		}
		out.Disposals = append(out.Disposals, jd)
	}
	for _, sym := range util.SortedKeys(res.Section104Pools) {
		p := res.Section104Pools[sym]
		out.Section104Pools = append(out.Section104Pools, jsonPool{
			Symbol: sym, Quantity: p.Quantity, TotalCostGBP: p.TotalCostGBP,
			AverageCostGBP: p.AverageCostGBP(),
		})
	}
	for _, s := range res.TaxYearSummaries {
		if filter.hasYear(s.TaxYear) {
			out.TaxYearSummaries = append(out.TaxYearSummaries, s)
		}
	}
	return out
}

func WriteJSON(res *ptf.CalculationResult, taxYear string, w io.Writer) error {
	filter, err := newTaxYearFilter(taxYear)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSONResult(res, filter))
}

func WriteJSONFile(path string, res *ptf.CalculationResult, taxYear string) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Error opening output file %q: %v", path, err)
	}
	defer fp.Close()
	return WriteJSON(res, taxYear, fp)
}
