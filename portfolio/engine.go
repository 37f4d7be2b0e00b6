package portfolio

import (
	"time"

	"github.com/wwade/ukcgt/util"
)

// AnnotatedTx is an input transaction together with the ids of the disposals
// it takes part in, for highlighting related rows. The Tx itself is the
// caller's, unmodified.
type AnnotatedTx struct {
	*Tx
	MatchGroups []string
}

type CalculationMetadata struct {
	CalculatedAt      time.Time
	TotalTransactions int
	TotalBuys         int
	TotalSells        int
}

type CalculationResult struct {
	Transactions     []*AnnotatedTx
	Disposals        []*DisposalRecord
	Section104Pools  map[string]*Section104Pool
	TaxYearSummaries []*TaxYearSummary
	Metadata         CalculationMetadata
}

// Engine runs the matching pipeline and builds the reports. It holds no state
// between calls, so one Engine may be used from several goroutines.
type Engine struct {
	stages   []Stage
	opening  map[string]PoolOpeningBalance
	features *FeatureRegistry
	now      func() time.Time
}

type EngineOption func(*Engine)

func WithStages(stages ...Stage) EngineOption {
	return func(e *Engine) { e.stages = stages }
}

func WithFeatures(registry *FeatureRegistry) EngineOption {
	return func(e *Engine) { e.features = registry }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithOpeningPools starts the Section 104 stage from the given balances,
// whichever stages are in use.
func WithOpeningPools(opening map[string]PoolOpeningBalance) EngineOption {
	return func(e *Engine) { e.opening = opening }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		stages:   DefaultStages(),
		features: DefaultFeatureRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.opening != nil {
		stages := make([]Stage, len(e.stages))
		for i, st := range e.stages {
			if _, ok := st.(section104Stage); ok {
				st = NewSection104Stage(e.opening)
			}
			stages[i] = st
		}
		e.stages = stages
	}
	return e
}

// Calculate computes disposals, pools and tax year summaries from a complete
// snapshot of enriched transactions. Transactions flagged Ignored take no
// part, but are returned with the rest.
//
// A transaction lacking a GBP value the calculation needs is an error.
// Disposals that cannot be fully matched are not; they are flagged
// IsIncomplete.
func (e *Engine) Calculate(txs []*Tx) (*CalculationResult, error) {
	active := make([]*Tx, 0, len(txs))
	seenIDs := util.NewSet[string]()
	for _, tx := range txs {
		if tx.Ignored {
			continue
		}
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		if seenIDs.Contains(tx.ID) {
			return nil, tx.errorf(ErrInvalidTransaction, "duplicate transaction id")
		}
		seenIDs.Add(tx.ID)
		active = append(active, tx)
	}

	ctx := RunPipeline(active, e.stages)

	disposals, err := BuildDisposalRecords(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := GenerateTaxYearSummaries(disposals, active)
	if err != nil {
		return nil, err
	}
	if e.features != nil {
		for _, s := range summaries {
			e.features.Apply(s, disposals)
		}
	}

	return &CalculationResult{
		Transactions:     annotateTxs(txs, ctx.Matchings),
		Disposals:        disposals,
		Section104Pools:  ctx.Pools,
		TaxYearSummaries: summaries,
		Metadata:         e.metadata(txs),
	}, nil
}

func (e *Engine) metadata(txs []*Tx) CalculationMetadata {
	md := CalculationMetadata{
		CalculatedAt:      e.now(),
		TotalTransactions: len(txs),
	}
	for _, tx := range txs {
		if tx.Ignored {
			continue
		}
		if tx.IsAcquisition() {
			md.TotalBuys++
		} else if tx.IsDisposal() {
			md.TotalSells++
		}
	}
	return md
}

// annotateTxs derives each transaction's match groups from the matchings.
func annotateTxs(txs []*Tx, matchings []*MatchingResult) []*AnnotatedTx {
	groups := map[string]*util.Set[string]{}
	order := map[string][]string{}
	addGroup := func(txID, disposalID string) {
		set, ok := groups[txID]
		if !ok {
			set = util.NewSet[string]()
			groups[txID] = set
		}
		if !set.Contains(disposalID) {
			set.Add(disposalID)
			order[txID] = append(order[txID], disposalID)
		}
	}
	for _, m := range matchings {
		if !m.QuantityMatched.IsPositive() {
			continue
		}
		addGroup(m.Disposal.ID, m.Disposal.ID)
		for _, a := range m.Acquisitions {
			if !isSyntheticTx(a.Tx) {
				addGroup(a.Tx.ID, m.Disposal.ID)
			}
		}
	}

	annotated := make([]*AnnotatedTx, 0, len(txs))
	for _, tx := range txs {
		a := &AnnotatedTx{Tx: tx}
		if !tx.Ignored {
			a.MatchGroups = order[tx.ID]
		}
		annotated = append(annotated, a)
	}
	return annotated
}
