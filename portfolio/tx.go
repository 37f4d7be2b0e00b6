package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
)

var (
	ErrMissingGBPValue    = errors.New("missing GBP value")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

type TxType int

const (
	NO_TYPE TxType = iota
	BUY
	SELL
	OPTIONS_BUY_TO_OPEN
	OPTIONS_SELL_TO_OPEN
	OPTIONS_BUY_TO_CLOSE
	OPTIONS_SELL_TO_CLOSE
	OPTIONS_ASSIGNED
	OPTIONS_EXPIRED
	DIVIDEND
	INTEREST
	TRANSFER
	TAX
	TAX_ON_DIVIDEND
	TAX_ON_INTEREST
	STOCK_SPLIT
)

var txTypeNames = map[TxType]string{
	NO_TYPE:               "NO_TYPE",
	BUY:                   "BUY",
	SELL:                  "SELL",
	OPTIONS_BUY_TO_OPEN:   "OPTIONS_BUY_TO_OPEN",
	OPTIONS_SELL_TO_OPEN:  "OPTIONS_SELL_TO_OPEN",
	OPTIONS_BUY_TO_CLOSE:  "OPTIONS_BUY_TO_CLOSE",
	OPTIONS_SELL_TO_CLOSE: "OPTIONS_SELL_TO_CLOSE",
	OPTIONS_ASSIGNED:      "OPTIONS_ASSIGNED",
	OPTIONS_EXPIRED:       "OPTIONS_EXPIRED",
	DIVIDEND:              "DIVIDEND",
	INTEREST:              "INTEREST",
	TRANSFER:              "TRANSFER",
	TAX:                   "TAX",
	TAX_ON_DIVIDEND:       "TAX_ON_DIVIDEND",
	TAX_ON_INTEREST:       "TAX_ON_INTEREST",
	STOCK_SPLIT:           "STOCK_SPLIT",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TxType(%d)", int(t))
}

func (t TxType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func ParseTxType(s string) (TxType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "_")
	for t, name := range txTypeNames {
		if t != NO_TYPE && name == norm {
			return t, nil
		}
	}
	return NO_TYPE, fmt.Errorf("Invalid transaction type '%s'", s)
}

// Tx is an enriched transaction. Native amounts are in Currency, the *GBP
// fields are the converted mirrors populated by enrichment.
// A Tx is never modified once handed to the Engine.
type Tx struct {
	ID       string
	Symbol   string
	Date     date.Date
	Type     TxType
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fee      decimal.Decimal
	Currency string

	PriceGBP decimal.NullDecimal
	ValueGBP decimal.NullDecimal
	FeeGBP   decimal.NullDecimal

	TaxYear string

	SplitMultiplier       decimal.NullDecimal
	SplitAdjustedQuantity decimal.NullDecimal
	SplitAdjustedPrice    decimal.NullDecimal
	SplitAdjustedPriceGBP decimal.NullDecimal

	ContractSize decimal.NullDecimal

	GrossDividend     decimal.NullDecimal
	GrossDividendGBP  decimal.NullDecimal
	WithholdingTax    decimal.NullDecimal
	WithholdingTaxGBP decimal.NullDecimal

	Ignored    bool
	Incomplete bool
	Memo       string

	// Position in the input, for stable ordering of same-day transactions.
	ReadIndex uint32
}

func (tx *Tx) IsAcquisition() bool {
	switch tx.Type {
	case BUY, OPTIONS_BUY_TO_OPEN, OPTIONS_BUY_TO_CLOSE:
		return true
	}
	return false
}

func (tx *Tx) IsDisposal() bool {
	switch tx.Type {
	case SELL, OPTIONS_SELL_TO_OPEN, OPTIONS_SELL_TO_CLOSE:
		return true
	}
	return false
}

func (tx *Tx) IsOption() bool {
	switch tx.Type {
	case OPTIONS_BUY_TO_OPEN, OPTIONS_SELL_TO_OPEN, OPTIONS_BUY_TO_CLOSE,
		OPTIONS_SELL_TO_CLOSE, OPTIONS_ASSIGNED, OPTIONS_EXPIRED:
		return true
	}
	return false
}

// EffectiveQuantity is the split-adjusted quantity if known, otherwise the
// raw quantity scaled by any split multiplier. Always non-negative.
func (tx *Tx) EffectiveQuantity() decimal.Decimal {
	if tx.SplitAdjustedQuantity.Valid {
		return tx.SplitAdjustedQuantity.Decimal.Abs()
	}
	if mult, ok := tx.splitMultiplier(); ok {
		return tx.Quantity.Mul(mult).Abs()
	}
	return tx.Quantity.Abs()
}

func (tx *Tx) splitMultiplier() (decimal.Decimal, bool) {
	if tx.SplitMultiplier.Valid && tx.SplitMultiplier.Decimal.IsPositive() {
		return tx.SplitMultiplier.Decimal, true
	}
	return decimal.Zero, false
}

func (tx *Tx) isSplitAdjusted() bool {
	return tx.SplitMultiplier.Valid || tx.SplitAdjustedQuantity.Valid ||
		tx.SplitAdjustedPrice.Valid || tx.SplitAdjustedPriceGBP.Valid
}

// EffectivePriceGBP is the GBP price of one unit of EffectiveQuantity.
// When a split applies and only the unadjusted GBP price is known, the
// adjusted price is derived from the multiplier or the quantity ratio.
func (tx *Tx) EffectivePriceGBP() (decimal.Decimal, error) {
	if tx.SplitAdjustedPriceGBP.Valid {
		return tx.SplitAdjustedPriceGBP.Decimal, nil
	}
	if !tx.PriceGBP.Valid {
		return decimal.Zero, tx.errorf(ErrMissingGBPValue, "price_gbp is not set")
	}
	if !tx.isSplitAdjusted() {
		return tx.PriceGBP.Decimal, nil
	}
	// The total value must survive the split, so the quantity ratio wins
	// over the multiplier when both are present.
	adjQty := tx.SplitAdjustedQuantity.Decimal.Abs()
	if tx.SplitAdjustedQuantity.Valid && !adjQty.IsZero() && !tx.Quantity.IsZero() {
		return tx.PriceGBP.Decimal.Mul(tx.Quantity.Abs()).Div(adjQty), nil
	}
	if mult, ok := tx.splitMultiplier(); ok {
		return tx.PriceGBP.Decimal.Div(mult), nil
	}
	return decimal.Zero, tx.errorf(ErrMissingGBPValue,
		"split-adjusted price has no GBP value and cannot be derived from price_gbp")
}

// ContractMultiplier is the number of underlying units per quantity unit.
// Only options have a contract size; it defaults to 1.
func (tx *Tx) ContractMultiplier() decimal.Decimal {
	if tx.IsOption() && tx.ContractSize.Valid && tx.ContractSize.Decimal.IsPositive() {
		return tx.ContractSize.Decimal
	}
	return decimal.NewFromInt(1)
}

func (tx *Tx) FeeGBPOrZero() (decimal.Decimal, error) {
	if tx.FeeGBP.Valid {
		return tx.FeeGBP.Decimal.Abs(), nil
	}
	if !tx.Fee.IsZero() {
		return decimal.Zero, tx.errorf(ErrMissingGBPValue, "fee of %s %s has no fee_gbp", tx.Fee, tx.Currency)
	}
	return decimal.Zero, nil
}

func (tx *Tx) feePerUnitGBP() (decimal.Decimal, error) {
	fee, err := tx.FeeGBPOrZero()
	if err != nil {
		return decimal.Zero, err
	}
	qty := tx.EffectiveQuantity()
	if qty.IsZero() {
		return decimal.Zero, nil
	}
	return fee.Div(qty), nil
}

// UnitCostGBP is the allowable cost of one unit of an acquisition:
// (price + fee/qty) x contract multiplier.
func (tx *Tx) UnitCostGBP() (decimal.Decimal, error) {
	price, err := tx.EffectivePriceGBP()
	if err != nil {
		return decimal.Zero, err
	}
	fee, err := tx.feePerUnitGBP()
	if err != nil {
		return decimal.Zero, err
	}
	return price.Add(fee).Mul(tx.ContractMultiplier()), nil
}

// UnitProceedsGBP is the net disposal proceeds of one unit:
// (price - fee/qty) x contract multiplier.
func (tx *Tx) UnitProceedsGBP() (decimal.Decimal, error) {
	price, err := tx.EffectivePriceGBP()
	if err != nil {
		return decimal.Zero, err
	}
	fee, err := tx.feePerUnitGBP()
	if err != nil {
		return decimal.Zero, err
	}
	return price.Sub(fee).Mul(tx.ContractMultiplier()), nil
}

// IncomeValueGBP is the gross GBP value of a dividend or interest payment.
// A native gross amount without a GBP mirror is an error rather than a
// fallback to the net value.
func (tx *Tx) IncomeValueGBP() (decimal.Decimal, error) {
	if tx.GrossDividendGBP.Valid {
		return tx.GrossDividendGBP.Decimal, nil
	}
	if tx.GrossDividend.Valid && !tx.GrossDividend.Decimal.IsZero() {
		return decimal.Zero, tx.errorf(ErrMissingGBPValue, "gross dividend of %s %s has no GBP value",
			tx.GrossDividend.Decimal, tx.Currency)
	}
	if tx.ValueGBP.Valid {
		return tx.ValueGBP.Decimal, nil
	}
	return decimal.Zero, tx.errorf(ErrMissingGBPValue, "value_gbp is not set")
}

func (tx *Tx) WithholdingGBPOrZero() (decimal.Decimal, error) {
	if tx.WithholdingTaxGBP.Valid {
		return tx.WithholdingTaxGBP.Decimal.Abs(), nil
	}
	if tx.WithholdingTax.Valid && !tx.WithholdingTax.Decimal.IsZero() {
		return decimal.Zero, tx.errorf(ErrMissingGBPValue, "withholding tax has no GBP value")
	}
	return decimal.Zero, nil
}

// TaxYearOrDerived returns the enriched tax year, deriving it from the date
// when enrichment left it empty.
func (tx *Tx) TaxYearOrDerived() string {
	if tx.TaxYear != "" {
		return tx.TaxYear
	}
	return TaxYearOf(tx.Date)
}

// Validate checks the fields that the calculation needs for this type of
// transaction. Rather than guessing at a missing GBP value, it fails.
func (tx *Tx) Validate() error {
	if tx.Ignored {
		return nil
	}
	if tx.ID == "" {
		return tx.errorf(ErrInvalidTransaction, "transaction has no id")
	}
	switch {
	case tx.IsAcquisition() || tx.IsDisposal():
		if tx.Symbol == "" {
			return tx.errorf(ErrInvalidTransaction, "no symbol")
		}
		if _, err := tx.EffectivePriceGBP(); err != nil {
			return err
		}
		if _, err := tx.FeeGBPOrZero(); err != nil {
			return err
		}
	case tx.Type == DIVIDEND || tx.Type == INTEREST:
		if _, err := tx.IncomeValueGBP(); err != nil {
			return err
		}
		if _, err := tx.WithholdingGBPOrZero(); err != nil {
			return err
		}
	case tx.Type == TAX_ON_DIVIDEND || tx.Type == TAX_ON_INTEREST:
		if !tx.ValueGBP.Valid {
			return tx.errorf(ErrMissingGBPValue, "value_gbp is not set")
		}
	}
	if tx.TaxYear != "" {
		if _, err := TaxYearStart(tx.TaxYear); err != nil {
			return tx.errorf(ErrInvalidTransaction, "%v", err)
		}
	}
	return nil
}

func (tx *Tx) errorf(sentinel error, fmtStr string, v ...interface{}) error {
	return fmt.Errorf("In transaction %s on %v of %v %s (%s), %s: %w",
		tx.ID, tx.Date, tx.Quantity, tx.Symbol, tx.Type,
		fmt.Sprintf(fmtStr, v...), sentinel)
}

func (tx *Tx) String() string {
	return fmt.Sprintf("%s %s %s %s x %s", tx.ID, tx.Date, tx.Type, tx.Symbol, tx.EffectiveQuantity())
}

// SortTxs orders by date, keeping input order within a day.
// Returns a new slice.
func SortTxs(txs []*Tx) []*Tx {
	sorted := make([]*Tx, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ReadIndex < sorted[j].ReadIndex
	})
	return sorted
}

func SplitTxsBySymbol(txs []*Tx) map[string][]*Tx {
	txsBySym := make(map[string][]*Tx)
	for _, tx := range txs {
		symTxs, ok := txsBySym[tx.Symbol]
		if !ok {
			symTxs = make([]*Tx, 0, 8)
		}
		symTxs = append(symTxs, tx)
		txsBySym[tx.Symbol] = symTxs
	}
	return txsBySym
}
