// Package reconcile separates structured table rows from plain table and
// free-text findings without discarding any of them.
package reconcile

import (
	"sort"
	"strings"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// Result holds the three views over one document's findings. Every input
// finding lands in exactly one of Tables or FreeText; structured rows are
// an additional derived view over qualifying table rows, so a table
// fragment showing up both raw and flattened is expected, not a bug.
type Result struct {
	StructuredRows []domain.Finding
	Tables         []domain.Finding
	FreeText       []domain.Finding
}

// All returns the authoritative finding set: every raw finding once, plus
// the derived structured rows.
func (r Result) All() []domain.Finding {
	out := make([]domain.Finding, 0, len(r.FreeText)+len(r.Tables)+len(r.StructuredRows))
	out = append(out, r.FreeText...)
	out = append(out, r.Tables...)
	out = append(out, r.StructuredRows...)
	return out
}

// Reconcile partitions classified findings. A table row is flattened into
// a structured-row finding when its first two columns carry text and
// location; a third column, when present, names the department.
func Reconcile(findings []domain.Finding) Result {
	var res Result
	for _, f := range findings {
		if !f.IsTable {
			res.FreeText = append(res.FreeText, f)
			continue
		}
		res.Tables = append(res.Tables, f)
		res.StructuredRows = append(res.StructuredRows, flattenRows(f)...)
	}
	return res
}

func flattenRows(table domain.Finding) []domain.Finding {
	byRow := make(map[int][]domain.TableCell)
	for _, cell := range table.TableCells {
		byRow[cell.RowIndex] = append(byRow[cell.RowIndex], cell)
	}

	rowIndexes := make([]int, 0, len(byRow))
	for idx := range byRow {
		rowIndexes = append(rowIndexes, idx)
	}
	sort.Ints(rowIndexes)

	var rows []domain.Finding
	for _, idx := range rowIndexes {
		if row, ok := flattenRow(table, byRow[idx]); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func flattenRow(table domain.Finding, cells []domain.TableCell) (domain.Finding, bool) {
	var text, location, department string
	sum, n := 0.0, 0
	for _, cell := range cells {
		value := strings.TrimSpace(cell.Text)
		switch cell.ColumnIndex {
		case 0:
			text = value
		case 1:
			location = value
		case 2:
			department = value
		}
		sum += cell.Confidence
		n++
	}
	if text == "" || location == "" {
		return domain.Finding{}, false
	}
	if department == "" {
		department = table.Department
	}

	confidence := table.Confidence
	if n > 0 {
		confidence = sum / float64(n)
	}

	return domain.Finding{
		Text:            text,
		Confidence:      confidence,
		Category:        table.Category,
		Severity:        table.Severity,
		Department:      department,
		Location:        location,
		IsStructuredRow: true,
	}, true
}
