package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
)

type txCsvColumn int

const (
	colID txCsvColumn = iota
	colSymbol
	colDate
	colType
	colQuantity
	colPrice
	colFee
	colCurrency
	colPriceGBP
	colValueGBP
	colFeeGBP
	colTaxYear
	colSplitMultiplier
	colSplitAdjustedQuantity
	colSplitAdjustedPrice
	colSplitAdjustedPriceGBP
	colContractSize
	colGrossDividend
	colGrossDividendGBP
	colWithholdingTax
	colWithholdingTaxGBP
	colIgnored
	colIncomplete
	colMemo
)

// Header names are matched ignoring case, spaces and underscores.
var txCsvHeaders = map[string]txCsvColumn{
	"id":                    colID,
	"symbol":                colSymbol,
	"security":              colSymbol,
	"date":                  colDate,
	"type":                  colType,
	"action":                colType,
	"quantity":              colQuantity,
	"shares":                colQuantity,
	"price":                 colPrice,
	"fee":                   colFee,
	"commission":            colFee,
	"currency":              colCurrency,
	"pricegbp":              colPriceGBP,
	"valuegbp":              colValueGBP,
	"feegbp":                colFeeGBP,
	"taxyear":               colTaxYear,
	"splitmultiplier":       colSplitMultiplier,
	"splitadjustedquantity": colSplitAdjustedQuantity,
	"splitadjustedprice":    colSplitAdjustedPrice,
	"splitadjustedpricegbp": colSplitAdjustedPriceGBP,
	"contractsize":          colContractSize,
	"grossdividend":         colGrossDividend,
	"grossdividendgbp":      colGrossDividendGBP,
	"withholdingtax":        colWithholdingTax,
	"withholdingtaxgbp":     colWithholdingTaxGBP,
	"ignored":               colIgnored,
	"incomplete":            colIncomplete,
	"memo":                  colMemo,
}

var requiredTxCsvColumns = []txCsvColumn{colDate, colType}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "_", "")
	return strings.ReplaceAll(h, " ", "")
}

// ParseTxCsv reads enriched transactions from a CSV with a header row.
// Rows without an id are given a random one. readIndex values continue from
// initialGlobalReadIndex so that several files can be combined.
func ParseTxCsv(reader io.Reader, initialGlobalReadIndex uint32, csvDesc string) ([]*Tx, error) {
	csvR := csv.NewReader(reader)
	csvR.FieldsPerRecord = -1
	csvR.TrimLeadingSpace = true
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Error parsing %s: %v", csvDesc, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("Error parsing %s: no header row", csvDesc)
	}

	colIdx := map[txCsvColumn]int{}
	for i, h := range records[0] {
		col, ok := txCsvHeaders[normalizeHeader(h)]
		if !ok {
			return nil, fmt.Errorf("Error parsing %s: unrecognized column '%s'", csvDesc, h)
		}
		if _, dup := colIdx[col]; dup {
			return nil, fmt.Errorf("Error parsing %s: duplicate column '%s'", csvDesc, h)
		}
		colIdx[col] = i
	}
	for _, col := range requiredTxCsvColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("Error parsing %s: missing required column. date and type are required",
				csvDesc)
		}
	}

	txs := make([]*Tx, 0, len(records)-1)
	for i, record := range records[1:] {
		lineNo := i + 2
		tx, err := parseTxRecord(record, colIdx)
		if err != nil {
			return nil, fmt.Errorf("Error parsing %s at line:col %d:%v", csvDesc, lineNo, err)
		}
		tx.ReadIndex = initialGlobalReadIndex + uint32(i)
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseTxRecord(record []string, colIdx map[txCsvColumn]int) (*Tx, error) {
	get := func(col txCsvColumn) (string, int) {
		idx, ok := colIdx[col]
		if !ok || idx >= len(record) {
			return "", idx + 1
		}
		return strings.TrimSpace(record[idx]), idx + 1
	}
	dec := func(col txCsvColumn) (decimal.Decimal, error) {
		s, pos := get(col)
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%d: invalid number '%s'", pos, s)
		}
		return d, nil
	}
	nullDec := func(col txCsvColumn) (decimal.NullDecimal, error) {
		s, _ := get(col)
		if s == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := dec(col)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	}
	boolean := func(col txCsvColumn) (bool, error) {
		s, pos := get(col)
		if s == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("%d: invalid boolean '%s'", pos, s)
		}
		return b, nil
	}

	tx := &Tx{}
	var err error

	tx.ID, _ = get(colID)
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Symbol, _ = get(colSymbol)
	tx.Currency, _ = get(colCurrency)
	tx.TaxYear, _ = get(colTaxYear)
	tx.Memo, _ = get(colMemo)

	dateStr, pos := get(colDate)
	if tx.Date, err = date.Parse(dateStr); err != nil {
		return nil, fmt.Errorf("%d: %v", pos, err)
	}
	typeStr, pos := get(colType)
	if tx.Type, err = ParseTxType(typeStr); err != nil {
		return nil, fmt.Errorf("%d: %v", pos, err)
	}

	decFields := []struct {
		col txCsvColumn
		dst *decimal.Decimal
	}{
		{colQuantity, &tx.Quantity},
		{colPrice, &tx.Price},
		{colFee, &tx.Fee},
	}
	for _, f := range decFields {
		if *f.dst, err = dec(f.col); err != nil {
			return nil, err
		}
	}

	nullFields := []struct {
		col txCsvColumn
		dst *decimal.NullDecimal
	}{
		{colPriceGBP, &tx.PriceGBP},
		{colValueGBP, &tx.ValueGBP},
		{colFeeGBP, &tx.FeeGBP},
		{colSplitMultiplier, &tx.SplitMultiplier},
		{colSplitAdjustedQuantity, &tx.SplitAdjustedQuantity},
		{colSplitAdjustedPrice, &tx.SplitAdjustedPrice},
		{colSplitAdjustedPriceGBP, &tx.SplitAdjustedPriceGBP},
		{colContractSize, &tx.ContractSize},
		{colGrossDividend, &tx.GrossDividend},
		{colGrossDividendGBP, &tx.GrossDividendGBP},
		{colWithholdingTax, &tx.WithholdingTax},
		{colWithholdingTaxGBP, &tx.WithholdingTaxGBP},
	}
	for _, f := range nullFields {
		if *f.dst, err = nullDec(f.col); err != nil {
			return nil, err
		}
	}

	if tx.Ignored, err = boolean(colIgnored); err != nil {
		return nil, err
	}
	if tx.Incomplete, err = boolean(colIncomplete); err != nil {
		return nil, err
	}
	return tx, nil
}
