package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"restobook/internal/models"
)

// Column is one column of an export sheet.
type Column struct {
	Title string
	Width float64
}

// Layout names a sheet and fixes its columns.
type Layout struct {
	Name    string
	Columns []Column
}

// ReservationsLayout is the sheet of one restaurant day, named after the date.
func ReservationsLayout(date models.Date) Layout {
	return Layout{Name: string(date), Columns: []Column{
		{"ID", 8}, {"Start", 8}, {"End", 8}, {"State", 12}, {"People", 8}, {"Spots", 12},
		{"Customer", 24}, {"Phone", 16}, {"Email", 28}, {"Note", 40}, {"Verified", 10},
	}}
}

// SummaryLayout counts a day's reservations per state.
var SummaryLayout = Layout{Name: "Summary", Columns: []Column{{"State", 18}, {"Reservations", 14}}}

// AuditLayout lists recorded domain events.
var AuditLayout = Layout{Name: "Audit", Columns: []Column{
	{"Recorded at", 22}, {"Event", 38}, {"Type", 24}, {"Payload", 80},
}}

// SheetWriter receives rows laid out by a Layout.
type SheetWriter interface {
	// Sheet starts a new sheet and writes its header row.
	Sheet(l Layout) error
	// Row appends one row to the current sheet; values follow the layout's columns.
	Row(values ...interface{}) error
}

// Workbook builds an xlsx export on top of excelize.
type Workbook struct {
	file   *excelize.File
	layout *Layout
	row    int
	bold   int
}

func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile(), bold: -1}
}

// Sheet adds a sheet for l with a bold, frozen header row and the layout's
// column widths. The first sheet reuses the workbook's default one.
func (b *Workbook) Sheet(l Layout) error {
	if len(l.Columns) == 0 {
		return fmt.Errorf("sheet %q has no columns", l.Name)
	}
	name := l.Name
	if len(name) > 31 {
		name = name[:31]
	}

	if b.layout == nil {
		if err := b.file.SetSheetName(b.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := b.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	l.Name = name
	b.layout = &l

	header := make([]interface{}, len(l.Columns))
	for i, c := range l.Columns {
		header[i] = c.Title
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if c.Width > 0 {
			if err := b.file.SetColWidth(name, col, col, c.Width); err != nil {
				return err
			}
		}
	}
	if err := b.file.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	last, _ := excelize.CoordinatesToCellName(len(l.Columns), 1)
	if b.bold < 0 {
		style, err := b.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		b.bold = style
	}
	if err := b.file.SetCellStyle(name, "A1", last, b.bold); err != nil {
		return err
	}
	if err := b.file.SetPanes(name, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	b.row = 2
	return nil
}

// Row appends values to the current sheet.
func (b *Workbook) Row(values ...interface{}) error {
	if b.layout == nil {
		return fmt.Errorf("no active sheet")
	}
	if len(values) > len(b.layout.Columns) {
		return fmt.Errorf("sheet %s: %d values for %d columns", b.layout.Name, len(values), len(b.layout.Columns))
	}
	cell, err := excelize.CoordinatesToCellName(1, b.row)
	if err != nil {
		return err
	}
	if err := b.file.SetSheetRow(b.layout.Name, cell, &values); err != nil {
		return err
	}
	b.row++
	return nil
}

// WriteTo writes the workbook as xlsx.
func (b *Workbook) WriteTo(w io.Writer) (int64, error) {
	return b.file.WriteTo(w)
}

func (b *Workbook) Close() error {
	return b.file.Close()
}
