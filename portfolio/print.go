package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

func PrintRenderTable(title string, tableModel *RenderTable, writer io.Writer) {
	if title != "" {
		fmt.Fprintf(writer, "%s\n", title)
	}

	table := tablewriter.NewWriter(writer)
	table.SetHeader(tableModel.Header)
	table.SetBorder(false)
	table.SetRowLine(true)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(tableModel.Rows)
	if len(tableModel.Footer) > 0 {
		table.SetFooter(tableModel.Footer)
	}
	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(writer, note)
	}
	for _, err := range tableModel.Errors {
		fmt.Fprintf(writer, "[!] %v\n", err)
	}
}

// WriteRenderTableCsv writes the header, rows and footer of the table. Notes
// and errors are not included.
func WriteRenderTableCsv(tableModel *RenderTable, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(tableModel.Header); err != nil {
		return err
	}
	if err := w.WriteAll(tableModel.Rows); err != nil {
		return err
	}
	if len(tableModel.Footer) > 0 {
		if err := w.Write(tableModel.Footer); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
