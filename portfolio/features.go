package portfolio

// TaxYearFeature attaches year-specific derived data to a TaxYearSummary,
// keyed by ID, without changing the summary's shape.
type TaxYearFeature interface {
	ID() string
	Applies(taxYear string) bool
	// Calculate returns false if the feature has nothing to report.
	Calculate(summary *TaxYearSummary, disposals []*DisposalRecord) (any, bool)
}

type FeatureRegistry struct {
	features []TaxYearFeature
}

func NewFeatureRegistry(features ...TaxYearFeature) *FeatureRegistry {
	return &FeatureRegistry{features: features}
}

func DefaultFeatureRegistry() *FeatureRegistry {
	return NewFeatureRegistry(NewRateChangeFeature())
}

func (r *FeatureRegistry) Features() []TaxYearFeature {
	return r.features
}

// Apply runs every applicable feature against the summary, in registration
// order. disposals may span several tax years; each feature gets only those of
// the summary's year.
func (r *FeatureRegistry) Apply(summary *TaxYearSummary, disposals []*DisposalRecord) {
	var yearDisposals []*DisposalRecord
	for _, d := range disposals {
		if d.TaxYear == summary.TaxYear {
			yearDisposals = append(yearDisposals, d)
		}
	}
	if summary.Features == nil {
		summary.Features = map[string]any{}
	}
	for _, f := range r.features {
		if !f.Applies(summary.TaxYear) {
			continue
		}
		if data, ok := f.Calculate(summary, yearDisposals); ok {
			summary.Features[f.ID()] = data
		}
	}
}
