package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wwade/ukcgt/date"
	"github.com/wwade/ukcgt/log"
	ptf "github.com/wwade/ukcgt/portfolio"
	"github.com/wwade/ukcgt/util"
)

const testCsv = `id,symbol,date,type,quantity,price,fee,currency,price_gbp,fee_gbp
b1,VOD,2023-05-01,BUY,100,10,0,GBP,10,
s1,VOD,2023-08-01,SELL,100,14.80,0,GBP,14.80,
b2,BP,2024-05-01,BUY,1000,10,0,GBP,10,
s2,BP,2024-07-01,SELL,400,20,0,GBP,20,
s3,BP,2024-11-15,SELL,400,15,0,GBP,15,
`

func readers(data ...string) []DescribedReader {
	var rs []DescribedReader
	for i, d := range data {
		rs = append(rs, DescribedReader{Desc: filepath.Join("in", string(rune('a'+i))+".csv"), Reader: strings.NewReader(d)})
	}
	return rs
}

func TestParseOpeningPools(t *testing.T) {
	pools, err := ParseOpeningPools([]string{"VOD:100:250.50", "BP:10:40"})
	require.NoError(t, err)
	require.Len(t, pools, 2)
	require.Equal(t, "100", pools["VOD"].Quantity.String())
	require.Equal(t, "250.5", pools["VOD"].TotalCostGBP.String())

	for _, tc := range []struct {
		opening []string
		errMsg  string
	}{
		{[]string{"VOD:100"}, "Invalid opening pool format"},
		{[]string{":100:20"}, "Invalid opening pool format"},
		{[]string{"VOD:x:20"}, "Invalid quantity format 'VOD:x:20'"},
		{[]string{"VOD:10:y"}, "Invalid total cost format 'VOD:10:y'"},
		{[]string{"VOD:-10:20"}, "Negative quantity in opening pool 'VOD:-10:20'"},
		{[]string{"VOD:10:-1"}, "Negative total cost in opening pool 'VOD:10:-1'"},
		{[]string{"VOD:1:1", "VOD:2:2"}, "Symbol VOD specified multiple times"},
	} {
		_, err := ParseOpeningPools(tc.opening)
		require.ErrorContains(t, err, tc.errMsg, tc.opening)
		require.NotContains(t, err.Error(), "<nil>", tc.opening)
	}
}

func TestTaxYearFilter(t *testing.T) {
	all, err := newTaxYearFilter("")
	require.NoError(t, err)
	require.True(t, all.hasYear("1999/00"))
	require.True(t, all.hasDate(date.MustParse("1999-01-01")))

	f, err := newTaxYearFilter("2023/24")
	require.NoError(t, err)
	for _, tc := range []struct {
		day string
		in  bool
	}{
		{"2023-04-05", false},
		{"2023-04-06", true},
		{"2023-12-31", true},
		{"2024-04-05", true},
		{"2024-04-06", false},
	} {
		require.Equal(t, tc.in, f.hasDate(date.MustParse(tc.day)), tc.day)
	}
	require.True(t, f.hasYear("2023/24"))
	require.False(t, f.hasYear("2024/25"))

	for _, bad := range []string{"2023-24", "2023/25", "x"} {
		_, err := newTaxYearFilter(bad)
		require.Error(t, err, bad)
		require.Error(t, WriteJSON(&ptf.CalculationResult{}, bad, &bytes.Buffer{}), bad)
	}
}

func TestReadTxsAcrossFiles(t *testing.T) {
	second := "id,symbol,date,type,quantity,price_gbp\nb9,VOD,2024-01-01,BUY,5,11\n"
	txs, err := ReadTxs(readers(testCsv, second))
	require.NoError(t, err)
	require.Len(t, txs, 6)
	require.Equal(t, uint32(5), txs[5].ReadIndex)

	_, err = ReadTxs(readers("date,type\nnot-a-date,BUY\n"))
	require.ErrorContains(t, err, "in/a.csv")
}

func TestRunAppToWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	ok, res := RunAppToWriter(&out, readers(testCsv), nil, NewOptions(),
		log.NewErrorPrinter(&errOut), zerolog.Nop())
	require.True(t, ok)
	require.Empty(t, errOut.String())
	require.Len(t, res.Disposals, 3)

	text := out.String()
	require.Contains(t, text, "Transactions for BP")
	require.Contains(t, text, "Transactions for VOD")
	require.Contains(t, text, "Section 104 pool for BP")
	require.Contains(t, text, "Tax Year Summaries")
	require.Contains(t, text, "Aggregate Gains")
	require.Contains(t, text, "CGT rates changed on 2024-10-30")
}

func TestRunAppToWriterReportsErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	bad := "id,symbol,date,type,quantity,price\nb1,VOD,2023-05-01,BUY,100,10\n"
	ok, _ := RunAppToWriter(&out, readers(bad), nil, NewOptions(),
		log.NewErrorPrinter(&errOut), zerolog.Nop())
	require.False(t, ok)
	require.Contains(t, errOut.String(), "missing GBP value")
}

func TestRenderResultTaxYearFilter(t *testing.T) {
	res, err := RunAppToModel(readers(testCsv), nil, zerolog.Nop())
	require.NoError(t, err)

	options := NewOptions()
	options.TaxYear = "2023/24"
	renderRes := RenderResult(res, options)
	require.Len(t, renderRes.SymbolTables, 1)
	require.Contains(t, renderRes.SymbolTables, "VOD")
	require.Len(t, renderRes.SummaryTable.Rows, 1)
	require.Equal(t, "2023/24", renderRes.SummaryTable.Rows[0][0])
	// Pools are not filtered.
	require.Len(t, renderRes.PoolTables, 2)

	options.TaxYear = "2023-24"
	require.Error(t, options.Validate())
}

func TestRunAppWithOpeningPools(t *testing.T) {
	opening, err := ParseOpeningPools([]string{"LLOY:1000:400"})
	require.NoError(t, err)
	sell := "id,symbol,date,type,quantity,price_gbp\ns1,LLOY,2024-06-01,SELL,500,0.5\n"
	res, err := RunAppToModel(readers(sell), opening, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, res.Disposals, 1)
	require.Equal(t, "50", res.Disposals[0].GainOrLossGBP.String())
}

func TestRunAppToCSV(t *testing.T) {
	res, err := RunAppToModel(readers(testCsv), nil, zerolog.Nop())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	var errOut bytes.Buffer
	require.True(t, RunAppToCSV(dir, res, NewOptions(), log.NewErrorPrinter(&errOut), zerolog.Nop()))

	for _, name := range []string{"VOD.csv", "BP.csv", "VOD-pool.csv", "tax-year-summaries.csv",
		"aggregate-gains.csv", "total-pool-costs.csv", "yearly-max-pool-costs.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}
	data, err := os.ReadFile(filepath.Join(dir, "tax-year-summaries.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Tax Year,Disposals,"))
}

func TestRenderPoolCosts(t *testing.T) {
	res, err := RunAppToModel(readers(testCsv), nil, zerolog.Nop())
	require.NoError(t, err)

	points, syms := PoolCostHistory(res.Section104Pools)
	require.Equal(t, []string{"BP", "VOD"}, syms)
	require.Len(t, points, 5)
	require.Equal(t, "1000", points[0].Total.String())
	require.Equal(t, "0", points[1].Total.String())
	require.Equal(t, "10000", points[2].Total.String())

	history, yearlyMax := RenderPoolCosts(res.Section104Pools, true)
	require.Len(t, history.Rows, 5)
	require.Len(t, yearlyMax.Rows, 2)
	require.Equal(t, "2023/24", yearlyMax.Rows[0][0])
	require.Equal(t, "2024/25", yearlyMax.Rows[1][0])
	require.Equal(t, "2024-05-01", yearlyMax.Rows[1][1])
}

func TestWriteXLSX(t *testing.T) {
	res, err := RunAppToModel(readers(testCsv), nil, zerolog.Nop())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(RenderResult(res, NewOptions()), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"Summary", "Gains", "TX BP", "TX VOD", "Pool BP", "Pool VOD"}, f.GetSheetList())

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Equal(t, "Tax Year", rows[0][0])
	require.Equal(t, "2024/25", rows[1][0])
	require.Equal(t, "2023/24", rows[2][0])
}

func TestSheetName(t *testing.T) {
	used := util.NewSet[string]()
	require.Equal(t, "TX BRK_B", sheetName("TX BRK/B", used))
	require.Equal(t, "TX BRK_B (2)", sheetName("TX BRK:B", used))
	long := sheetName(strings.Repeat("x", 40), used)
	require.Len(t, long, maxSheetNameLen)
}

func TestWriteJSON(t *testing.T) {
	res, err := RunAppToModel(readers(testCsv), nil, zerolog.Nop())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(res, "2024/25", &buf))

	var decoded struct {
		Disposals []struct {
			TxID          string `json:"tx_id"`
			GainOrLossGBP string `json:"gain_or_loss_gbp"`
			Matchings     []struct {
				Rule ptf.MatchingRule `json:"rule"`
			} `json:"matchings"`
		} `json:"disposals"`
		TaxYearSummaries []struct {
			TaxYear  string `json:"tax_year"`
			Features map[string]struct {
				RequiresAdjustment bool `json:"requires_adjustment"`
			} `json:"features"`
		} `json:"tax_year_summaries"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Disposals, 2)
	require.Equal(t, "s2", decoded.Disposals[0].TxID)
	require.Equal(t, "4000", decoded.Disposals[0].GainOrLossGBP)
	require.Equal(t, ptf.RULE_SECTION_104, decoded.Disposals[0].Matchings[0].Rule)
	require.Len(t, decoded.TaxYearSummaries, 1)
	require.True(t, decoded.TaxYearSummaries[0].Features[ptf.RateChangeFeatureID].RequiresAdjustment)
}
