package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/util"
)

type MatchingRule string

const (
	RULE_SHORT_SELL  MatchingRule = "SHORT_SELL"
	RULE_SAME_DAY    MatchingRule = "SAME_DAY"
	RULE_30_DAY      MatchingRule = "30_DAY"
	RULE_SECTION_104 MatchingRule = "SECTION_104"
)

type AcquisitionMatch struct {
	Tx              *Tx
	QuantityMatched decimal.Decimal
	CostBasisGBP    decimal.Decimal
}

// MatchingResult allocates (part of) one disposal to one or more acquisitions
// under a single rule.
type MatchingResult struct {
	Disposal          *Tx
	Rule              MatchingRule
	Acquisitions      []AcquisitionMatch
	QuantityMatched   decimal.Decimal
	TotalCostBasisGBP decimal.Decimal
}

func newMatchingResult(disposal *Tx, rule MatchingRule) *MatchingResult {
	return &MatchingResult{Disposal: disposal, Rule: rule}
}

func (m *MatchingResult) addAcquisition(acq *Tx, qty, cost decimal.Decimal) {
	m.Acquisitions = append(m.Acquisitions, AcquisitionMatch{
		Tx: acq, QuantityMatched: qty, CostBasisGBP: cost,
	})
	m.QuantityMatched = m.QuantityMatched.Add(qty)
	m.TotalCostBasisGBP = m.TotalCostBasisGBP.Add(cost)
}

// MatchingContext is the value passed between pipeline stages. Stages treat it
// as immutable and return a new one.
type MatchingContext struct {
	Transactions []*Tx
	Matchings    []*MatchingResult
	Pools        map[string]*Section104Pool
}

func NewMatchingContext(txs []*Tx) *MatchingContext {
	ownTxs := make([]*Tx, len(txs))
	copy(ownTxs, txs)
	return &MatchingContext{
		Transactions: ownTxs,
		Pools:        map[string]*Section104Pool{},
	}
}

func (c *MatchingContext) WithMatchings(ms ...*MatchingResult) *MatchingContext {
	matchings := make([]*MatchingResult, 0, len(c.Matchings)+len(ms))
	matchings = append(matchings, c.Matchings...)
	matchings = append(matchings, ms...)
	return &MatchingContext{
		Transactions: c.Transactions,
		Matchings:    matchings,
		Pools:        c.Pools,
	}
}

func (c *MatchingContext) WithPools(pools map[string]*Section104Pool) *MatchingContext {
	return &MatchingContext{
		Transactions: c.Transactions,
		Matchings:    c.Matchings,
		Pools:        pools,
	}
}

// RemainingQuantities tracks how much of each transaction has not yet been
// matched, starting from the matchings already in the context.
func (c *MatchingContext) RemainingQuantities() *QuantityTracker {
	qt := &QuantityTracker{used: map[string]decimal.Decimal{}}
	for _, m := range c.Matchings {
		qt.consume(m.Disposal, m.QuantityMatched)
		for _, a := range m.Acquisitions {
			if a.Tx.IsAcquisition() && !isSyntheticTx(a.Tx) {
				qt.consume(a.Tx, a.QuantityMatched)
			}
		}
	}
	return qt
}

// symbolTimelines returns the acquisitions and disposals of each symbol in
// chronological order, and the symbols sorted.
func (c *MatchingContext) symbolTimelines() ([]string, map[string][]*Tx) {
	var trades []*Tx
	for _, tx := range c.Transactions {
		if !tx.Ignored && (tx.IsAcquisition() || tx.IsDisposal()) {
			trades = append(trades, tx)
		}
	}
	bySym := SplitTxsBySymbol(SortTxs(trades))
	return util.SortedKeys(bySym), bySym
}

type QuantityTracker struct {
	used map[string]decimal.Decimal
}

func (q *QuantityTracker) Remaining(tx *Tx) decimal.Decimal {
	return tx.EffectiveQuantity().Sub(q.used[tx.ID])
}

func (q *QuantityTracker) Matched(tx *Tx) decimal.Decimal {
	return q.used[tx.ID]
}

func (q *QuantityTracker) consume(tx *Tx, qty decimal.Decimal) {
	used := q.used[tx.ID].Add(qty)
	util.Assertf(!used.GreaterThan(tx.EffectiveQuantity()),
		"QuantityTracker: %s matched %v of %v", tx.ID, used, tx.EffectiveQuantity())
	q.used[tx.ID] = used
}

// Stage is one matching rule of the pipeline.
type Stage interface {
	Name() string
	Apply(ctx *MatchingContext) *MatchingContext
}

type stageFunc struct {
	name string
	fn   func(*MatchingContext) *MatchingContext
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Apply(ctx *MatchingContext) *MatchingContext { return s.fn(ctx) }

func NewStage(name string, fn func(*MatchingContext) *MatchingContext) Stage {
	return stageFunc{name: name, fn: fn}
}

// DefaultStages are the HMRC matching rules in priority order. Section 104
// pooling must be last, as it consumes everything left.
func DefaultStages() []Stage {
	return []Stage{
		NewShortSellStage(),
		NewSameDayStage(),
		NewThirtyDayStage(),
		NewSection104Stage(nil),
	}
}

func RunPipeline(txs []*Tx, stages []Stage) *MatchingContext {
	ctx := NewMatchingContext(txs)
	for _, stage := range stages {
		ctx = stage.Apply(ctx)
	}
	return ctx
}
