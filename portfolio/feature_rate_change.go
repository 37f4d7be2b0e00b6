package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
)

const RateChangeFeatureID = "rate-change-2024-25"

type RatePeriod struct {
	NumberOfDisposals int             `json:"number_of_disposals"`
	GainsGBP          decimal.Decimal `json:"gains_gbp"`
	LossesGBP         decimal.Decimal `json:"losses_gbp"`
	NetGainOrLossGBP  decimal.Decimal `json:"net_gain_or_loss_gbp"`

	// CGT rates on shares for basic and higher rate taxpayers, in percent.
	BasicRatePercent  decimal.Decimal `json:"basic_rate_percent"`
	HigherRatePercent decimal.Decimal `json:"higher_rate_percent"`
}

type RateChangeData struct {
	CutoffDate date.Date  `json:"cutoff_date"`
	Before     RatePeriod `json:"before"`
	After      RatePeriod `json:"after"`

	// Set when there are disposals on or after the cutoff and the year's net
	// gain exceeds the annual exempt amount.
	RequiresAdjustment bool `json:"requires_adjustment"`
}

// RateChangeFeature splits a tax year's disposals at the date its CGT rates
// changed. In 2024/25 the share rates went from 10%/20% to 18%/24% for
// disposals from 30 October 2024.
type RateChangeFeature struct {
	taxYear     string
	cutoff      date.Date
	ratesBefore [2]decimal.Decimal
	ratesAfter  [2]decimal.Decimal
}

func NewRateChangeFeature() *RateChangeFeature {
	return &RateChangeFeature{
		taxYear:     "2024/25",
		cutoff:      date.New(2024, time.October, 30),
		ratesBefore: [2]decimal.Decimal{decimal.NewFromInt(10), decimal.NewFromInt(20)},
		ratesAfter:  [2]decimal.Decimal{decimal.NewFromInt(18), decimal.NewFromInt(24)},
	}
}

func (f *RateChangeFeature) ID() string { return RateChangeFeatureID }

func (f *RateChangeFeature) Applies(taxYear string) bool {
	return taxYear == f.taxYear
}

func (f *RateChangeFeature) Calculate(summary *TaxYearSummary, disposals []*DisposalRecord) (any, bool) {
	data := &RateChangeData{
		CutoffDate: f.cutoff,
		Before:     RatePeriod{BasicRatePercent: f.ratesBefore[0], HigherRatePercent: f.ratesBefore[1]},
		After:      RatePeriod{BasicRatePercent: f.ratesAfter[0], HigherRatePercent: f.ratesAfter[1]},
	}
	for _, d := range disposals {
		period := &data.Before
		if !d.Disposal.Date.Before(f.cutoff) {
			period = &data.After
		}
		period.NumberOfDisposals++
		if d.GainOrLossGBP.IsPositive() {
			period.GainsGBP = period.GainsGBP.Add(d.GainOrLossGBP)
		} else {
			period.LossesGBP = period.LossesGBP.Add(d.GainOrLossGBP)
		}
	}
	data.Before.NetGainOrLossGBP = data.Before.GainsGBP.Add(data.Before.LossesGBP)
	data.After.NetGainOrLossGBP = data.After.GainsGBP.Add(data.After.LossesGBP)

	data.RequiresAdjustment = data.After.NumberOfDisposals > 0 &&
		summary.NetGainOrLossGBP.GreaterThan(summary.AnnualExemptAmount)
	return data, true
}
