package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
	"github.com/wwade/ukcgt/log"
	ptf "github.com/wwade/ukcgt/portfolio"
	"github.com/wwade/ukcgt/util"
)

// Version is of the format 0.YY.MM[.i]
var UkcgtVersion = "0.26.10"

/* Takes a list of opening pool strings, each formatted as:
 * SYM:quantity:totalCostGBP. Eg. VOD:1000:1250.00
 */
func ParseOpeningPools(opening []string) (map[string]ptf.PoolOpeningBalance, error) {
	pools := make(map[string]ptf.PoolOpeningBalance)
	for _, opt := range opening {
		parts := strings.Split(opt, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("Invalid opening pool format '%s'", opt)
		}
		symbol := parts[0]
		qty, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("Invalid quantity format '%s'. %v", opt, err)
		}
		if qty.IsNegative() {
			return nil, fmt.Errorf("Negative quantity in opening pool '%s'", opt)
		}
		cost, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("Invalid total cost format '%s'. %v", opt, err)
		}
		if cost.IsNegative() {
			return nil, fmt.Errorf("Negative total cost in opening pool '%s'", opt)
		}

		if _, ok := pools[symbol]; ok {
			return nil, fmt.Errorf("Symbol %s specified multiple times", symbol)
		}
		pools[symbol] = ptf.PoolOpeningBalance{Quantity: qty, TotalCostGBP: cost}
	}
	return pools, nil
}

type DescribedReader struct {
	Desc   string
	Reader io.Reader
}

type Options struct {
	RenderFullValues bool
	// Restricts rendered output to one tax year, eg. "2024/25".
	TaxYear      string
	CSVOutputDir string
	XLSXOutput   string
	JSONOutput   string
}

func NewOptions() Options {
	return Options{}
}

func (o *Options) Validate() error {
	_, err := newTaxYearFilter(o.TaxYear)
	return err
}

func ReadTxs(csvFileReaders []DescribedReader) ([]*ptf.Tx, error) {
	allTxs := make([]*ptf.Tx, 0, 20)
	var globalReadIndex uint32 = 0
	for _, csvReader := range csvFileReaders {
		txs, err := ptf.ParseTxCsv(csvReader.Reader, globalReadIndex, csvReader.Desc)
		if err != nil {
			return nil, err
		}
		globalReadIndex += uint32(len(txs))
		allTxs = append(allTxs, txs...)
	}
	return allTxs, nil
}

func RunAppToModel(
	csvFileReaders []DescribedReader,
	opening map[string]ptf.PoolOpeningBalance,
	logger zerolog.Logger) (*ptf.CalculationResult, error) {

	txs, err := ReadTxs(csvFileReaders)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("transactions", len(txs)).Int("files", len(csvFileReaders)).Msg("read transactions")

	var opts []ptf.EngineOption
	if len(opening) > 0 {
		opts = append(opts, ptf.WithOpeningPools(opening))
	}
	res, err := ptf.NewEngine(opts...).Calculate(txs)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("transactions", res.Metadata.TotalTransactions).
		Int("buys", res.Metadata.TotalBuys).
		Int("sells", res.Metadata.TotalSells).
		Int("disposals", len(res.Disposals)).
		Int("taxYears", len(res.TaxYearSummaries)).
		Msg("calculation complete")
	for _, d := range res.Disposals {
		if d.IsIncomplete {
			logger.Warn().Str("id", d.Disposal.ID).Str("symbol", d.Disposal.Symbol).
				Str("unmatched", d.UnmatchedQuantity.String()).Msg("incomplete disposal")
		}
	}
	return res, nil
}

type AllCumulativeCapitalGains struct {
	SymbolGains    map[string]*ptf.CumulativeCapitalGains
	AggregateGains *ptf.CumulativeCapitalGains
}

func getCumulativeCapitalGains(disposalsBySym map[string][]*ptf.DisposalRecord) *AllCumulativeCapitalGains {
	symbolGains := make(map[string]*ptf.CumulativeCapitalGains)
	for sym, disposals := range disposalsBySym {
		symbolGains[sym] = ptf.CalcSymbolCumulativeCapitalGains(disposals)
	}
	return &AllCumulativeCapitalGains{
		SymbolGains:    symbolGains,
		AggregateGains: ptf.CalcCumulativeCapitalGains(symbolGains),
	}
}

type AppRenderResult struct {
	SymbolTables        map[string]*ptf.RenderTable
	PoolTables          map[string]*ptf.RenderTable
	SummaryTable        *ptf.RenderTable
	AggregateGainsTable *ptf.RenderTable
}

// taxYearFilter selects one tax year's records. The zero value selects
// everything.
type taxYearFilter struct {
	taxYear  string
	firstDay date.Date
	lastDay  date.Date
}

func newTaxYearFilter(taxYear string) (taxYearFilter, error) {
	if taxYear == "" {
		return taxYearFilter{}, nil
	}
	first, err := ptf.TaxYearFirstDay(taxYear)
	if err != nil {
		return taxYearFilter{}, err
	}
	last, err := ptf.TaxYearLastDay(taxYear)
	if err != nil {
		return taxYearFilter{}, err
	}
	return taxYearFilter{taxYear: taxYear, firstDay: first, lastDay: last}, nil
}

func (f taxYearFilter) hasYear(taxYear string) bool {
	return f.taxYear == "" || taxYear == f.taxYear
}

func (f taxYearFilter) hasDate(d date.Date) bool {
	return f.taxYear == "" || (!d.Before(f.firstDay) && !d.After(f.lastDay))
}

// RenderResult builds the tables for a calculation. With a tax year filter,
// only that year's rows are rendered. Pools always show their full history.
func RenderResult(res *ptf.CalculationResult, options Options) *AppRenderResult {
	full := options.RenderFullValues
	filter, err := newTaxYearFilter(options.TaxYear)
	util.Assertf(err == nil, "RenderResult: unvalidated options: %v", err)

	var disposals []*ptf.DisposalRecord
	for _, d := range res.Disposals {
		if filter.hasYear(d.TaxYear) {
			disposals = append(disposals, d)
		}
	}
	disposalsBySym := ptf.SplitDisposalsBySymbol(disposals)
	gains := getCumulativeCapitalGains(disposalsBySym)

	txsBySym := map[string][]*ptf.AnnotatedTx{}
	for _, atx := range res.Transactions {
		if !atx.IsAcquisition() && !atx.IsDisposal() {
			continue
		}
		if filter.hasDate(atx.Date) {
			txsBySym[atx.Symbol] = append(txsBySym[atx.Symbol], atx)
		}
	}

	symModels := make(map[string]*ptf.RenderTable)
	for sym, atxs := range txsBySym {
		symGains, ok := gains.SymbolGains[sym]
		if !ok {
			symGains = ptf.CalcSymbolCumulativeCapitalGains(nil)
		}
		sort.SliceStable(atxs, func(i, j int) bool {
			if !atxs[i].Date.Equal(atxs[j].Date) {
				return atxs[i].Date.Before(atxs[j].Date)
			}
			return atxs[i].ReadIndex < atxs[j].ReadIndex
		})
		symModels[sym] = ptf.RenderSymbolTableModel(atxs, disposalsBySym[sym], symGains, full)
	}

	poolModels := make(map[string]*ptf.RenderTable)
	for sym, pool := range res.Section104Pools {
		if len(pool.History) > 0 {
			poolModels[sym] = ptf.RenderPoolTableModel(pool, full)
		}
	}

	var summaries []*ptf.TaxYearSummary
	for _, s := range res.TaxYearSummaries {
		if filter.hasYear(s.TaxYear) {
			summaries = append(summaries, s)
		}
	}

	return &AppRenderResult{
		SymbolTables:        symModels,
		PoolTables:          poolModels,
		SummaryTable:        ptf.RenderTaxYearSummaries(summaries, full),
		AggregateGainsTable: ptf.RenderAggregateCapitalGains(gains.AggregateGains, full),
	}
}

// PoolCostPoint is the total Section 104 cost held across all symbols after
// a pool change.
type PoolCostPoint struct {
	Date     date.Date
	Total    decimal.Decimal
	SymCosts map[string]decimal.Decimal
}

// PoolCostHistory replays every pool ledger in date order, giving the total
// cost held after each change.
func PoolCostHistory(pools map[string]*ptf.Section104Pool) ([]PoolCostPoint, []string) {
	type entry struct {
		sym string
		e   ptf.PoolLedgerEntry
	}
	var entries []entry
	for _, sym := range util.SortedKeys(pools) {
		for _, e := range pools[sym].History {
			entries = append(entries, entry{sym, e})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].e.Date.Before(entries[j].e.Date)
	})

	curCost := map[string]decimal.Decimal{}
	var points []PoolCostPoint
	for _, ent := range entries {
		curCost[ent.sym] = ent.e.BalanceCostGBP
		p := PoolCostPoint{Date: ent.e.Date, SymCosts: map[string]decimal.Decimal{}}
		for s, v := range curCost {
			p.Total = p.Total.Add(v)
			p.SymCosts[s] = v
		}
		points = append(points, p)
	}
	return points, util.SortedKeys(curCost)
}

// RenderPoolCosts renders the total pool cost after every change, and the
// largest total reached in each tax year.
func RenderPoolCosts(pools map[string]*ptf.Section104Pool, full bool) (
	history *ptf.RenderTable, yearlyMax *ptf.RenderTable) {

	ph := ptf.PrintHelper{PrintAllDecimals: full}
	points, syms := PoolCostHistory(pools)

	history = &ptf.RenderTable{Header: append([]string{"Date", "Total"}, syms...)}
	yearlyMax = &ptf.RenderTable{Header: append([]string{"Tax Year", "Date", "Total"}, syms...)}
	if len(points) == 0 {
		return history, yearlyMax
	}

	symCols := func(p PoolCostPoint) []string {
		var cols []string
		for _, sym := range syms {
			cols = append(cols, ph.PoundStr(p.SymCosts[sym]))
		}
		return cols
	}
	for _, p := range points {
		history.Rows = append(history.Rows,
			append([]string{p.Date.String(), ph.PoundStr(p.Total)}, symCols(p)...))
	}

	yearMax := map[string]PoolCostPoint{}
	var years []string
	for _, p := range points {
		year := ptf.TaxYearOf(p.Date)
		cur, seen := yearMax[year]
		if !seen {
			years = append(years, year)
		}
		if !seen || cur.Total.LessThan(p.Total) {
			yearMax[year] = p
		}
	}
	for _, year := range years {
		p := yearMax[year]
		yearlyMax.Rows = append(yearlyMax.Rows,
			append([]string{year, p.Date.String(), ph.PoundStr(p.Total)}, symCols(p)...))
	}
	return history, yearlyMax
}

func WriteRenderResult(renderRes *AppRenderResult, writer io.Writer) {
	syms := util.SortedKeys(renderRes.SymbolTables)
	var symsWithErrors []string

	for _, sym := range syms {
		renderTable := renderRes.SymbolTables[sym]
		ptf.PrintRenderTable(fmt.Sprintf("Transactions for %s", sym), renderTable, writer)
		fmt.Fprintln(writer, "")
		if len(renderTable.Errors) > 0 {
			symsWithErrors = append(symsWithErrors, sym)
		}
	}

	for _, sym := range util.SortedKeys(renderRes.PoolTables) {
		ptf.PrintRenderTable(fmt.Sprintf("Section 104 pool for %s", sym), renderRes.PoolTables[sym], writer)
		fmt.Fprintln(writer, "")
	}

	ptf.PrintRenderTable("Tax Year Summaries", renderRes.SummaryTable, writer)
	fmt.Fprintln(writer, "")
	ptf.PrintRenderTable("Aggregate Gains", renderRes.AggregateGainsTable, writer)

	if len(symsWithErrors) > 0 {
		fmt.Fprintln(writer, "\n[!] There are errors for the following symbols:", strings.Join(symsWithErrors, ", "))
	}
}

// Returns an OK flag. Used to signal what exit code to use.
// All errors get printed to the errPrinter or to the writer (as appropriate).
func RunAppToWriter(
	writer io.Writer,
	csvFileReaders []DescribedReader,
	opening map[string]ptf.PoolOpeningBalance,
	options Options,
	errPrinter log.ErrorPrinter,
	logger zerolog.Logger) (bool, *ptf.CalculationResult) {

	res, err := RunAppToModel(csvFileReaders, opening, logger)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return false, nil
	}

	WriteRenderResult(RenderResult(res, options), writer)
	return true, res
}

func writeTableCsv(path string, table *ptf.RenderTable) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Error opening output file %q: %v", path, err)
	}
	defer fp.Close()
	return ptf.WriteRenderTableCsv(table, fp)
}

func RunAppToCSV(
	csvOutDir string,
	res *ptf.CalculationResult,
	options Options,
	errPrinter log.ErrorPrinter,
	logger zerolog.Logger,
) bool {
	if err := os.MkdirAll(csvOutDir, os.ModePerm); err != nil {
		errPrinter.Ln(fmt.Sprintf("Error %T %v", err, err))
		return false
	}

	options.RenderFullValues = true
	renderRes := RenderResult(res, options)
	if len(renderRes.SymbolTables) == 0 {
		errPrinter.Ln("Error: no symbols found in input")
		return false
	}

	files := map[string]*ptf.RenderTable{
		"tax-year-summaries.csv": renderRes.SummaryTable,
		"aggregate-gains.csv":    renderRes.AggregateGainsTable,
	}
	for sym, table := range renderRes.SymbolTables {
		files[sym+".csv"] = table
	}
	for sym, table := range renderRes.PoolTables {
		files[sym+"-pool.csv"] = table
	}
	history, yearlyMax := RenderPoolCosts(res.Section104Pools, true)
	files["total-pool-costs.csv"] = history
	files["yearly-max-pool-costs.csv"] = yearlyMax

	for _, name := range util.SortedKeys(files) {
		fn := filepath.Join(csvOutDir, sanitizeFileName(name))
		if err := writeTableCsv(fn, files[name]); err != nil {
			errPrinter.Ln(err)
			return false
		}
		logger.Debug().Str("file", fn).Msg("wrote csv")
	}
	return true
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}

// Returns an OK flag. Used to signal what exit code to use.
func RunAppToConsole(
	csvFileReaders []DescribedReader,
	opening map[string]ptf.PoolOpeningBalance,
	options Options,
	errPrinter log.ErrorPrinter,
	logger zerolog.Logger) bool {

	if err := options.Validate(); err != nil {
		errPrinter.Ln("Error:", err)
		return false
	}

	ok, res := RunAppToWriter(os.Stdout, csvFileReaders, opening, options, errPrinter, logger)
	if !ok {
		return false
	}

	if options.CSVOutputDir != "" {
		ok = RunAppToCSV(options.CSVOutputDir, res, options, errPrinter, logger) && ok
	}
	if options.XLSXOutput != "" {
		if err := WriteXLSXFile(options.XLSXOutput, RenderResult(res, options)); err != nil {
			errPrinter.Ln("Error:", err)
			ok = false
		} else {
			logger.Info().Str("file", options.XLSXOutput).Msg("wrote workbook")
		}
	}
	if options.JSONOutput != "" {
		if err := WriteJSONFile(options.JSONOutput, res, options.TaxYear); err != nil {
			errPrinter.Ln("Error:", err)
			ok = false
		} else {
			logger.Info().Str("file", options.JSONOutput).Msg("wrote json")
		}
	}
	return ok
}
