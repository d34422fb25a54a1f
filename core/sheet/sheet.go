// Package sheet reads and writes the XLSX workbooks used for imports, exports and reports.
package sheet

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Table is one worksheet: a header row followed by data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

func (t *Table) Append(row ...interface{}) {
	t.Rows = append(t.Rows, row)
}

// Book is an ordered set of worksheets.
type Book struct {
	Tables []*Table
}

// Sheet adds a worksheet to the book and returns it.
func (b *Book) Sheet(name string, header ...string) *Table {
	t := &Table{Name: name, Header: header}
	b.Tables = append(b.Tables, t)
	return t
}

// Write renders the book as an XLSX workbook.
func (b *Book) Write(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	defaultSheet := f.GetSheetName(0)
	for i, t := range b.Tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return errors.Wrapf(err, "renaming sheet %q", t.Name)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return errors.Wrapf(err, "creating sheet %q", t.Name)
		}

		if len(t.Header) > 0 {
			cell, _ := excelize.CoordinatesToCellName(1, 1)
			if err := f.SetSheetRow(t.Name, cell, &t.Header); err != nil {
				return errors.Wrapf(err, "writing header of %q", t.Name)
			}
			last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
			if err := f.SetCellStyle(t.Name, cell, last, headStyle); err != nil {
				return errors.Wrapf(err, "styling header of %q", t.Name)
			}
		}
		for r, row := range t.Rows {
			row := row
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
				return errors.Wrapf(err, "writing row %d of %q", r+1, t.Name)
			}
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

// Write renders a single-sheet workbook.
func Write(w io.Writer, t *Table) error {
	return (&Book{Tables: []*Table{t}}).Write(w)
}

// ReadFirst returns the rows of the first worksheet of the XLSX workbook read from r, header included.
func ReadFirst(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, errors.New("workbook does not contain any sheets")
	}
	rows, err := f.GetRows(name)
	return rows, errors.Wrapf(err, "reading sheet %q", name)
}

// ReadSheet returns the rows of the named worksheet.
func ReadSheet(r io.Reader, name string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(name)
	return rows, errors.Wrapf(err, "reading sheet %q", name)
}

// Cell returns row[i], or "" when the row is too short.
func Cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
