// Package spreadsheet imports employees from .xlsx/.xls workbooks and exports
// attendance rows as .xlsx workbooks or xz-compressed JSON snapshots.
package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/xuri/excelize/v2"
)

const maxRows = 100000

var importColumns = []string{"employee_id", "full_name", "email", "department"}

type EmployeeCreator interface {
	Create(ctx context.Context, in hrapi.EmployeeInput) (*hrapi.Employee, error)
}

// RowError records why one spreadsheet row was not imported. Row is 1-based,
// counting the header as row 1.
type RowError struct {
	Row        int
	EmployeeID string
	Message    string
}

type ImportResult struct {
	Created []hrapi.Employee
	Failed  []RowError
}

// Summary is the banner text shown after an import.
func (r ImportResult) Summary() string {
	if len(r.Failed) == 0 {
		return fmt.Sprintf("Imported %d employees", len(r.Created))
	}
	return fmt.Sprintf("Imported %d employees, %d rows failed", len(r.Created), len(r.Failed))
}

// ReadRows returns every row of the single worksheet in the file. The format
// is picked from the filename extension.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, errors.New("no worksheet found")
		}
		if workbook.NumSheets() > 1 {
			return nil, errors.New("multiple worksheets found; please upload a file with a single sheet")
		}
		rows := workbook.ReadAllCells(maxRows)
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	case ".xlsx", ".xlsm":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, errors.New("no worksheet found")
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q; upload an .xlsx or .xls file", filepath.Ext(filename))
	}
}

// ParseEmployees maps rows to inputs using the header row. Blank rows are skipped.
func ParseEmployees(rows [][]string) ([]hrapi.EmployeeInput, []int, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("worksheet is empty")
	}
	index := map[string]int{}
	for i, h := range rows[0] {
		index[normalizeHeader(h)] = i
	}
	var missing []string
	for _, col := range importColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	var inputs []hrapi.EmployeeInput
	var lines []int
	for i, row := range rows[1:] {
		in := hrapi.EmployeeInput{
			EmployeeID: cellValue(row, index["employee_id"]),
			FullName:   cellValue(row, index["full_name"]),
			Email:      cellValue(row, index["email"]),
			Department: cellValue(row, index["department"]),
		}
		if in == (hrapi.EmployeeInput{}) {
			continue
		}
		inputs = append(inputs, in)
		lines = append(lines, i+2)
	}
	return inputs, lines, nil
}

// ImportEmployees validates and creates one employee per row. Row failures are
// collected; only an unreadable file or a bad header fails the whole import.
func ImportEmployees(ctx context.Context, creator EmployeeCreator, reader io.Reader, filename string) (ImportResult, error) {
	rows, err := ReadRows(reader, filename)
	if err != nil {
		return ImportResult{}, err
	}
	inputs, lines, err := ParseEmployees(rows)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Created: []hrapi.Employee{}}
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := forms.Validate(in); err != nil {
			result.Failed = append(result.Failed, RowError{Row: lines[i], EmployeeID: in.EmployeeID, Message: err.Error()})
			continue
		}
		created, err := creator.Create(ctx, in)
		if err != nil {
			result.Failed = append(result.Failed, RowError{
				Row:        lines[i],
				EmployeeID: in.EmployeeID,
				Message:    hrapi.Message(err, "Failed to create employee"),
			})
			continue
		}
		if created != nil {
			result.Created = append(result.Created, *created)
		}
	}
	return result, nil
}

func normalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	return strings.ReplaceAll(h, " ", "_")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
