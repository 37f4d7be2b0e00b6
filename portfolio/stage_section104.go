package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
	"github.com/wwade/ukcgt/util"
)

const section104PoolTxIDPrefix = "section104-pool:"

type PoolOp string

const (
	POOL_OPENING PoolOp = "OPENING"
	POOL_BUY     PoolOp = "BUY"
	POOL_SELL    PoolOp = "SELL"
)

type PoolLedgerEntry struct {
	Date     date.Date
	Op       PoolOp
	TxID     string
	Quantity decimal.Decimal

	// Cost added to (BUY, OPENING) or removed from (SELL) the pool.
	CostGBP decimal.Decimal
	// Disposal proceeds of the matched quantity. SELL only.
	ProceedsGBP decimal.Decimal

	BalanceQuantity decimal.Decimal
	BalanceCostGBP  decimal.Decimal
	AverageCostGBP  decimal.Decimal
}

// Section104Pool is the average-cost holding of one symbol (TCGA92/S104).
type Section104Pool struct {
	Symbol       string
	Quantity     decimal.Decimal
	TotalCostGBP decimal.Decimal
	History      []PoolLedgerEntry
}

func NewSection104Pool(symbol string) *Section104Pool {
	return &Section104Pool{Symbol: symbol}
}

func (p *Section104Pool) AverageCostGBP() decimal.Decimal {
	return util.DivOrZero(p.TotalCostGBP, p.Quantity)
}

func (p *Section104Pool) clone() *Section104Pool {
	c := *p
	c.History = make([]PoolLedgerEntry, len(p.History))
	copy(c.History, p.History)
	return &c
}

func (p *Section104Pool) add(op PoolOp, d date.Date, txID string, qty, cost decimal.Decimal) {
	p.Quantity = p.Quantity.Add(qty)
	p.TotalCostGBP = p.TotalCostGBP.Add(cost)
	p.record(PoolLedgerEntry{Date: d, Op: op, TxID: txID, Quantity: qty, CostGBP: cost})
}

// remove takes up to qty out of the pool at the current average cost, and
// returns the quantity actually taken and its cost.
func (p *Section104Pool) remove(
	d date.Date, txID string, qty, unitProceeds decimal.Decimal) (taken, cost decimal.Decimal) {

	taken = util.MinDecimal(qty, p.Quantity)
	if !taken.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	if taken.Equal(p.Quantity) {
		// Emptying the pool takes all of its cost, leaving no rounding residue.
		cost = p.TotalCostGBP
	} else {
		cost = taken.Mul(p.AverageCostGBP())
	}
	p.Quantity = p.Quantity.Sub(taken)
	p.TotalCostGBP = p.TotalCostGBP.Sub(cost)
	util.Assertf(!p.Quantity.IsNegative(), "Section104Pool %s: negative quantity %v", p.Symbol, p.Quantity)

	p.record(PoolLedgerEntry{
		Date: d, Op: POOL_SELL, TxID: txID, Quantity: taken,
		CostGBP: cost, ProceedsGBP: taken.Mul(unitProceeds),
	})
	return taken, cost
}

func (p *Section104Pool) record(e PoolLedgerEntry) {
	e.BalanceQuantity = p.Quantity
	e.BalanceCostGBP = p.TotalCostGBP
	e.AverageCostGBP = p.AverageCostGBP()
	p.History = append(p.History, e)
}

// PoolOpeningBalance seeds a pool with holdings acquired before the first
// transaction in the input.
type PoolOpeningBalance struct {
	Quantity     decimal.Decimal
	TotalCostGBP decimal.Decimal
}

type section104Stage struct {
	opening map[string]PoolOpeningBalance
}

// NewSection104Stage is the terminal stage. Every acquisition quantity not yet
// matched enters the symbol's pool, and every disposal quantity not yet
// matched is matched against the pool as it stands at the disposal date.
//
// Each disposal reaching this stage yields exactly one SECTION_104 result,
// with zero quantity if the pool was empty, so that incomplete disposals can
// be reported.
func NewSection104Stage(opening map[string]PoolOpeningBalance) Stage {
	return section104Stage{opening: opening}
}

func (section104Stage) Name() string { return "section-104" }

func (s section104Stage) Apply(ctx *MatchingContext) *MatchingContext {
	remaining := ctx.RemainingQuantities()
	symbols, timelines := ctx.symbolTimelines()

	pools := make(map[string]*Section104Pool, len(ctx.Pools))
	for sym, pool := range ctx.Pools {
		pools[sym] = pool.clone()
	}
	for _, sym := range util.SortedKeys(s.opening) {
		bal := s.opening[sym]
		pool := getOrCreatePool(pools, sym)
		firstDate := date.Date{}
		if txs := timelines[sym]; len(txs) > 0 {
			firstDate = txs[0].Date
		}
		pool.add(POOL_OPENING, firstDate, "", bal.Quantity, bal.TotalCostGBP)
	}

	var results []*MatchingResult
	for _, sym := range symbols {
		pool := getOrCreatePool(pools, sym)
		for _, tx := range timelines[sym] {
			qty := remaining.Remaining(tx)
			if tx.IsAcquisition() {
				if qty.IsPositive() {
					pool.add(POOL_BUY, tx.Date, tx.ID, qty, qty.Mul(mustUnitCostGBP(tx)))
					remaining.consume(tx, qty)
				}
				continue
			}
			if !qty.IsPositive() {
				continue
			}
			avgCost := pool.AverageCostGBP()
			taken, cost := pool.remove(tx.Date, tx.ID, qty, mustUnitProceedsGBP(tx))
			m := newMatchingResult(tx, RULE_SECTION_104)
			if taken.IsPositive() {
				m.addAcquisition(syntheticPoolTx(tx, taken, avgCost), taken, cost)
				remaining.consume(tx, taken)
			}
			results = append(results, m)
		}
	}
	return ctx.WithMatchings(results...).WithPools(pools)
}

func getOrCreatePool(pools map[string]*Section104Pool, sym string) *Section104Pool {
	pool, ok := pools[sym]
	if !ok {
		pool = NewSection104Pool(sym)
		pools[sym] = pool
	}
	return pool
}

// syntheticPoolTx stands in for the pool as the acquisition side of a
// SECTION_104 match, for display.
func syntheticPoolTx(disposal *Tx, qty, avgCost decimal.Decimal) *Tx {
	return &Tx{
		ID:       section104PoolTxIDPrefix + disposal.ID,
		Symbol:   disposal.Symbol,
		Date:     disposal.Date,
		Type:     BUY,
		Quantity: qty,
		Price:    avgCost,
		Currency: "GBP",
		PriceGBP: decimal.NewNullDecimal(avgCost),
		TaxYear:  disposal.TaxYear,
		Memo:     "Section 104 pool",
	}
}

func isSyntheticTx(tx *Tx) bool {
	return strings.HasPrefix(tx.ID, section104PoolTxIDPrefix)
}
