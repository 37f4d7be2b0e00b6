package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/util"
)

type IncomeSummary struct {
	Count          int             `json:"count"`
	GrossGBP       decimal.Decimal `json:"gross_gbp"`
	WithholdingGBP decimal.Decimal `json:"withholding_gbp"`
	NetGBP         decimal.Decimal `json:"net_gbp"`
	AllowanceGBP   decimal.Decimal `json:"allowance_gbp"`
}

type TaxYearSummary struct {
	TaxYear                string          `json:"tax_year"`
	NumberOfDisposals      int             `json:"number_of_disposals"`
	TotalProceedsGBP       decimal.Decimal `json:"total_proceeds_gbp"`
	TotalAllowableCostsGBP decimal.Decimal `json:"total_allowable_costs_gbp"`

	// Sum of the gains of disposals with a gain. Never negative.
	TotalGainsGBP decimal.Decimal `json:"total_gains_gbp"`
	// Sum of the losses of disposals with a loss. Never positive.
	TotalLossesGBP decimal.Decimal `json:"total_losses_gbp"`

	NetGainOrLossGBP    decimal.Decimal `json:"net_gain_or_loss_gbp"`
	AnnualExemptAmount  decimal.Decimal `json:"annual_exempt_amount"`
	TaxableGainGBP      decimal.Decimal `json:"taxable_gain_gbp"`
	IncompleteDisposals int             `json:"incomplete_disposals"`

	Dividends IncomeSummary `json:"dividends"`
	Interest  IncomeSummary `json:"interest"`

	// Feature id -> data from the TaxYearFeatures that apply to this year.
	Features map[string]any `json:"features"`
}

// GenerateTaxYearSummaries produces one summary per tax year in which there
// is a disposal or any other (non-ignored) transaction, newest year first.
func GenerateTaxYearSummaries(disposals []*DisposalRecord, txs []*Tx) ([]*TaxYearSummary, error) {
	summaries := map[string]*TaxYearSummary{}
	get := func(taxYear string) (*TaxYearSummary, error) {
		if s, ok := summaries[taxYear]; ok {
			return s, nil
		}
		s, err := newTaxYearSummary(taxYear)
		if err != nil {
			return nil, err
		}
		summaries[taxYear] = s
		return s, nil
	}

	for _, d := range disposals {
		s, err := get(d.TaxYear)
		if err != nil {
			return nil, err
		}
		s.addDisposal(d)
	}

	for _, tx := range txs {
		if tx.Ignored {
			continue
		}
		s, err := get(tx.TaxYearOrDerived())
		if err != nil {
			return nil, err
		}
		if err := s.addIncomeTx(tx); err != nil {
			return nil, err
		}
	}

	years := util.MapKeys(summaries)
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	result := make([]*TaxYearSummary, 0, len(years))
	for _, year := range years {
		s := summaries[year]
		s.finalize()
		result = append(result, s)
	}
	return result, nil
}

func newTaxYearSummary(taxYear string) (*TaxYearSummary, error) {
	start, err := TaxYearStart(taxYear)
	if err != nil {
		return nil, err
	}
	return &TaxYearSummary{
		TaxYear:            taxYear,
		AnnualExemptAmount: AnnualExemptAmount(start),
		Dividends:          IncomeSummary{AllowanceGBP: DividendAllowance(start)},
		Interest:           IncomeSummary{AllowanceGBP: PersonalSavingsAllowance(start)},
		Features:           map[string]any{},
	}, nil
}

func (s *TaxYearSummary) addDisposal(d *DisposalRecord) {
	s.NumberOfDisposals++
	s.TotalProceedsGBP = s.TotalProceedsGBP.Add(d.ProceedsGBP)
	s.TotalAllowableCostsGBP = s.TotalAllowableCostsGBP.Add(d.AllowableCostsGBP)
	if d.GainOrLossGBP.IsPositive() {
		s.TotalGainsGBP = s.TotalGainsGBP.Add(d.GainOrLossGBP)
	} else {
		s.TotalLossesGBP = s.TotalLossesGBP.Add(d.GainOrLossGBP)
	}
	if d.IsIncomplete {
		s.IncompleteDisposals++
	}
}

func (s *TaxYearSummary) addIncomeTx(tx *Tx) error {
	switch tx.Type {
	case DIVIDEND:
		return s.Dividends.addPayment(tx)
	case INTEREST:
		return s.Interest.addPayment(tx)
	case TAX_ON_DIVIDEND:
		return s.Dividends.addWithholding(tx)
	case TAX_ON_INTEREST:
		return s.Interest.addWithholding(tx)
	}
	return nil
}

func (s *TaxYearSummary) finalize() {
	s.NetGainOrLossGBP = s.TotalGainsGBP.Add(s.TotalLossesGBP)
	s.TaxableGainGBP = util.MaxDecimal(decimal.Zero, s.NetGainOrLossGBP.Sub(s.AnnualExemptAmount))
	s.Dividends.NetGBP = s.Dividends.GrossGBP.Sub(s.Dividends.WithholdingGBP)
	s.Interest.NetGBP = s.Interest.GrossGBP.Sub(s.Interest.WithholdingGBP)
}

func (i *IncomeSummary) addPayment(tx *Tx) error {
	gross, err := tx.IncomeValueGBP()
	if err != nil {
		return err
	}
	withholding, err := tx.WithholdingGBPOrZero()
	if err != nil {
		return err
	}
	i.Count++
	i.GrossGBP = i.GrossGBP.Add(gross)
	i.WithholdingGBP = i.WithholdingGBP.Add(withholding)
	return nil
}

// addWithholding adds a separately recorded tax transaction. Brokers report
// these with either sign.
func (i *IncomeSummary) addWithholding(tx *Tx) error {
	if !tx.ValueGBP.Valid {
		return tx.errorf(ErrMissingGBPValue, "value_gbp is not set")
	}
	i.WithholdingGBP = i.WithholdingGBP.Add(tx.ValueGBP.Decimal.Abs())
	return nil
}
