package portfolio

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wwade/ukcgt/date"
)

// TaxYearOf returns the UK tax year ("2023/24") containing d. Tax years run
// from 6 April to 5 April.
func TaxYearOf(d date.Date) string {
	start := d.Year()
	if d.Before(date.New(uint32(d.Year()), time.April, 6)) {
		start--
	}
	return FormatTaxYear(start)
}

func FormatTaxYear(startYear int) string {
	return fmt.Sprintf("%d/%02d", startYear, (startYear+1)%100)
}

// TaxYearStart parses a "YYYY/YY" tax year and returns its starting calendar
// year.
func TaxYearStart(taxYear string) (int, error) {
	first, second, found := strings.Cut(taxYear, "/")
	if !found || len(first) != 4 || len(second) != 2 {
		return 0, fmt.Errorf("Invalid tax year '%s'. Expected format YYYY/YY", taxYear)
	}
	start, err := strconv.Atoi(first)
	if err != nil {
		return 0, fmt.Errorf("Invalid tax year '%s'. %v", taxYear, err)
	}
	end, err := strconv.Atoi(second)
	if err != nil {
		return 0, fmt.Errorf("Invalid tax year '%s'. %v", taxYear, err)
	}
	if (start+1)%100 != end {
		return 0, fmt.Errorf("Invalid tax year '%s'. Years are not consecutive", taxYear)
	}
	return start, nil
}

func TaxYearFirstDay(taxYear string) (date.Date, error) {
	start, err := TaxYearStart(taxYear)
	if err != nil {
		return date.Date{}, err
	}
	return date.New(uint32(start), time.April, 6), nil
}

func TaxYearLastDay(taxYear string) (date.Date, error) {
	start, err := TaxYearStart(taxYear)
	if err != nil {
		return date.Date{}, err
	}
	return date.New(uint32(start+1), time.April, 5), nil
}

// AnnualExemptAmount is the CGT annual exempt amount for the tax year starting
// in startYear.
func AnnualExemptAmount(startYear int) decimal.Decimal {
	var amount int64
	switch {
	case startYear >= 2024:
		amount = 3000
	case startYear == 2023:
		amount = 6000
	case startYear >= 2020:
		amount = 12300
	case startYear == 2019:
		amount = 12000
	case startYear == 2018:
		amount = 11700
	case startYear == 2017:
		amount = 11300
	case startYear >= 2015:
		amount = 11100
	default:
		amount = 11000
	}
	return decimal.NewFromInt(amount)
}

func DividendAllowance(startYear int) decimal.Decimal {
	var amount int64
	switch {
	case startYear >= 2024:
		amount = 500
	case startYear == 2023:
		amount = 1000
	case startYear >= 2018:
		amount = 2000
	case startYear >= 2016:
		amount = 5000
	default:
		amount = 0
	}
	return decimal.NewFromInt(amount)
}

// PersonalSavingsAllowance is the basic rate taxpayer allowance for savings
// interest. It did not exist before 2016/17.
func PersonalSavingsAllowance(startYear int) decimal.Decimal {
	if startYear >= 2016 {
		return decimal.NewFromInt(1000)
	}
	return decimal.Zero
}
