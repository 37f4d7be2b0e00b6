package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wwade/ukcgt/app"
	"github.com/wwade/ukcgt/config"
	"github.com/wwade/ukcgt/log"
)

type cliFlags struct {
	configPath string
	fullValues bool
	csvDir     string
	xlsxOutput string
	jsonOutput string
	taxYear    string
	opening    []string
	verbose    bool
}

// resolveOptions merges the config file with the flags the user set
// explicitly.
func resolveOptions(cmd *cobra.Command, flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(".env"); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("full") {
		cfg.FullValues = flags.fullValues
	}
	if changed("csv-dir") {
		cfg.CSVOutputDir = flags.csvDir
	}
	if changed("xlsx") {
		cfg.XLSXOutput = flags.xlsxOutput
	}
	if changed("json") {
		cfg.JSONOutput = flags.jsonOutput
	}
	if changed("tax-year") {
		cfg.TaxYear = flags.taxYear
	}
	if changed("opening") {
		cfg.OpeningPools = flags.opening
	}
	if flags.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func runUkcgt(cmd *cobra.Command, args []string, flags *cliFlags) bool {
	errPrinter := log.NewStderrErrorPrinter()

	cfg, err := resolveOptions(cmd, flags)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return false
	}
	logger := log.NewStderr(log.Config{Level: cfg.LogLevel, Pretty: true})

	opening, err := app.ParseOpeningPools(cfg.OpeningPools)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return false
	}

	csvReaders := make([]app.DescribedReader, 0, len(args))
	for _, csvName := range args {
		fp, err := os.Open(csvName)
		if err != nil {
			errPrinter.Ln("Error:", err)
			return false
		}
		defer fp.Close()
		csvReaders = append(csvReaders, app.DescribedReader{Desc: csvName, Reader: fp})
	}

	options := app.NewOptions()
	options.RenderFullValues = cfg.FullValues
	options.TaxYear = cfg.TaxYear
	options.CSVOutputDir = cfg.CSVOutputDir
	options.XLSXOutput = cfg.XLSXOutput
	options.JSONOutput = cfg.JSONOutput

	logger.Debug().Strs("files", args).Str("taxYear", options.TaxYear).Msg("starting")
	return app.RunAppToConsole(csvReaders, opening, options, errPrinter, logger)
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}
	cmd := &cobra.Command{
		Use:   "ukcgt [CSV_FILE ...]",
		Short: "UK capital gains calculator for share disposals",
		Long: `Matches disposals to acquisitions under the HMRC share identification rules
(same day, 30 day "bed and breakfast", and Section 104 pooling), and reports
gains, losses and allowances by tax year.

Input CSVs must already carry GBP values (price_gbp, fee_gbp, ...).`,
		Version: app.UkcgtVersion,
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !runUkcgt(cmd, args, flags) {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", config.DefaultPath,
		"YAML config file")
	cmd.Flags().BoolVarP(&flags.fullValues, "full", "f", false,
		"Print all digits of values instead of rounding to pennies")
	cmd.Flags().StringVar(&flags.csvDir, "csv-dir", "",
		"Also write every table as CSV into this directory")
	cmd.Flags().StringVar(&flags.xlsxOutput, "xlsx", "",
		"Also write every table to this XLSX workbook")
	cmd.Flags().StringVar(&flags.jsonOutput, "json", "",
		"Also write the calculation result as JSON to this file")
	cmd.Flags().StringVarP(&flags.taxYear, "tax-year", "y", "",
		"Only report this tax year (eg. 2024/25)")
	cmd.Flags().StringArrayVarP(&flags.opening, "opening", "o", nil,
		"Opening Section 104 pool, as SYM:quantity:totalCostGBP. Can be repeated")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"Enable debug logging")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
