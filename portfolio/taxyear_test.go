package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wwade/ukcgt/date"
)

func TestTaxYearOf(t *testing.T) {
	for _, tc := range []struct {
		day      string
		expected string
	}{
		{"2024-04-05", "2023/24"},
		{"2024-04-06", "2024/25"},
		{"2024-12-31", "2024/25"},
		{"2025-01-01", "2024/25"},
		{"1999-06-01", "1999/00"},
	} {
		require.Equal(t, tc.expected, TaxYearOf(date.MustParse(tc.day)), tc.day)
	}
}

func TestTaxYearStart(t *testing.T) {
	start, err := TaxYearStart("2023/24")
	require.NoError(t, err)
	require.Equal(t, 2023, start)

	start, err = TaxYearStart("1999/00")
	require.NoError(t, err)
	require.Equal(t, 1999, start)

	for _, bad := range []string{"2023-24", "2023/25", "23/24", "abcd/ef", ""} {
		_, err := TaxYearStart(bad)
		require.Error(t, err, bad)
	}

	first, err := TaxYearFirstDay("2024/25")
	require.NoError(t, err)
	require.Equal(t, "2024-04-06", first.String())
	last, err := TaxYearLastDay("2024/25")
	require.NoError(t, err)
	require.Equal(t, "2025-04-05", last.String())
}

func TestAllowances(t *testing.T) {
	for _, tc := range []struct {
		start    int
		exempt   string
		dividend string
		savings  string
	}{
		{2014, "11000", "0", "0"},
		{2016, "11100", "5000", "1000"},
		{2019, "12000", "2000", "1000"},
		{2021, "12300", "2000", "1000"},
		{2023, "6000", "1000", "1000"},
		{2024, "3000", "500", "1000"},
		{2025, "3000", "500", "1000"},
	} {
		requireDecEqual(t, tc.exempt, AnnualExemptAmount(tc.start))
		requireDecEqual(t, tc.dividend, DividendAllowance(tc.start))
		requireDecEqual(t, tc.savings, PersonalSavingsAllowance(tc.start))
	}
}
