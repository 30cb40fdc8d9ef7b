package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputCSV   OutputFormat = "csv"
)

func parseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputTable, OutputJSON, OutputCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: use 'table', 'json' or 'csv'", s)
	}
}

// defaultOutputFormat prints tables to a terminal and JSON to pipes.
func defaultOutputFormat(f *os.File) OutputFormat {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return OutputTable
	}
	return OutputJSON
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printList prints a list of names under a single header.
func printList(w io.Writer, format OutputFormat, header string, items []string) error {
	if items == nil {
		items = []string{}
	}
	switch format {
	case OutputJSON:
		return PrintJSON(w, items)
	case OutputCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{header})
		for _, it := range items {
			_ = cw.Write([]string{it})
		}
		cw.Flush()
		return cw.Error()
	default:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{header})
		for _, it := range items {
			t.AppendRow(table.Row{it})
		}
		t.Render()
		return nil
	}
}

// printResult prints a query result, keeping the server's column order.
func printResult(w io.Writer, format OutputFormat, res *QueryResult) error {
	switch format {
	case OutputJSON:
		return PrintJSON(w, res)
	case OutputCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write(res.Columns)
		for _, row := range res.Rows {
			record := make([]string, len(res.Columns))
			for i, c := range res.Columns {
				record[i] = formatValue(row[c])
			}
			_ = cw.Write(record)
		}
		cw.Flush()
		return cw.Error()
	default:
		if len(res.Columns) > 0 {
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			header := make(table.Row, len(res.Columns))
			for i, c := range res.Columns {
				header[i] = c
			}
			t.AppendHeader(header)
			for _, row := range res.Rows {
				r := make(table.Row, len(res.Columns))
				for i, c := range res.Columns {
					r[i] = formatValue(row[c])
				}
				t.AppendRow(r)
			}
			t.Render()
		}
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
		return nil
	}
}

// formatValue renders a cell. Nested values print as JSON and NULL as an
// empty cell.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprintf("%t", x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", x)
	}
}
