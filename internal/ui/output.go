package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table represents a simple text table with " | " separated columns
type Table struct {
	Headers []string
	Rows    [][]string
	Out     io.Writer
}

// NewTable creates a new table printing to stdout
func NewTable(headers ...string) *Table {
	return &Table{
		Headers: headers,
		Rows:    make([][]string, 0),
		Out:     os.Stdout,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Print prints the table
func (t *Table) Print() {
	if len(t.Rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		widths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	t.printRow(t.Headers, widths)

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(t.Out, "-"+strings.Join(rule, "-+-")+"-")

	for _, row := range t.Rows {
		t.printRow(row, widths)
	}
}

func (t *Table) printRow(cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i < len(widths) && i < len(cells)-1 {
			parts[i] = padRight(cell, widths[i])
		} else {
			parts[i] = cell
		}
	}
	fmt.Fprintln(t.Out, " "+strings.Join(parts, " | "))
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// PrintJSON prints data as JSON
func PrintJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Rule prints a horizontal line of the classic 79 column width
func Rule(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", 79))
}
