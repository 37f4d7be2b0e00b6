package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	ptf "github.com/wwade/ukcgt/portfolio"
	"github.com/wwade/ukcgt/util"
)

const maxSheetNameLen = 31

func sheetName(name string, used *util.Set[string]) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	if runes := []rune(name); len(runes) > maxSheetNameLen {
		name = string(runes[:maxSheetNameLen])
	}
	base := name
	for i := 2; used.Contains(strings.ToLower(name)); i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		runes := []rune(base)
		if len(runes)+len(suffix) > maxSheetNameLen {
			runes = runes[:maxSheetNameLen-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used.Add(strings.ToLower(name))
	return name
}

type namedTable struct {
	name  string
	table *ptf.RenderTable
}

func workbookTables(renderRes *AppRenderResult) []namedTable {
	tables := []namedTable{
		{"Summary", renderRes.SummaryTable},
		{"Gains", renderRes.AggregateGainsTable},
	}
	for _, sym := range util.SortedKeys(renderRes.SymbolTables) {
		tables = append(tables, namedTable{"TX " + sym, renderRes.SymbolTables[sym]})
	}
	for _, sym := range util.SortedKeys(renderRes.PoolTables) {
		tables = append(tables, namedTable{"Pool " + sym, renderRes.PoolTables[sym]})
	}
	return tables
}

func writeSheet(f *excelize.File, sheet string, table *ptf.RenderTable, boldStyle int) error {
	row := 1
	setRow := func(values []string, style int) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
		if style != 0 {
			if err := f.SetRowStyle(sheet, row, row, style); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	if err := setRow(table.Header, boldStyle); err != nil {
		return err
	}
	for _, r := range table.Rows {
		if err := setRow(r, 0); err != nil {
			return err
		}
	}
	if len(table.Footer) > 0 {
		if err := setRow(table.Footer, boldStyle); err != nil {
			return err
		}
	}
	for _, note := range table.Notes {
		if err := setRow([]string{strings.TrimSpace(note)}, 0); err != nil {
			return err
		}
	}
	for _, e := range table.Errors {
		if err := setRow([]string{"[!] " + e.Error()}, 0); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes every render table to its own sheet of a workbook.
func WriteXLSX(renderRes *AppRenderResult, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	const defaultSheet = "Sheet1"
	used := util.NewSet[string]()
	for i, nt := range workbookTables(renderRes) {
		name := sheetName(nt.name, used)
		if i == 0 {
			f.SetSheetName(defaultSheet, name)
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, nt.table, boldStyle); err != nil {
			return fmt.Errorf("Error writing sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func WriteXLSXFile(path string, renderRes *AppRenderResult) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Error opening output file %q: %v", path, err)
	}
	defer fp.Close()
	return WriteXLSX(renderRes, fp)
}
