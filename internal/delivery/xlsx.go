package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"jobmate/harvester-service/internal/model"
)

// SheetDateLayout names the per-day sheets.
const SheetDateLayout = "2006-01-02"

// Headers is the first row of every sheet.
var Headers = []string{
	"ID", "Title", "Description", "URL", "Posted", "Bids Count",
	"Budget", "Budget Min", "Budget Max", "Budget Type", "Skills",
	"Client Name", "Client Country", "Client Rating", "Payment Verified", "Last Reply",
	"Featured", "Max Project", "First Seen At", "Scraped At",
}

// Row fills by budget: hourly or >= 1000 green, fixed 500-999 yellow,
// fixed 250-499 orange.
const (
	fillHigh   = "D9F2D9"
	fillMedium = "FFF2CC"
	fillLow    = "FFCC99"
)

// XLSXExporter appends listings to a workbook, one sheet per day.
type XLSXExporter struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewXLSXExporter writes to the workbook at path, creating it on first use.
func NewXLSXExporter(path string, now func() time.Time) *XLSXExporter {
	if now == nil {
		now = time.Now
	}
	return &XLSXExporter{path: path, now: now}
}

// Export appends ls to today's sheet after its last used row and saves the
// workbook. It returns the number of rows written; on a save failure that
// is 0.
func (x *XLSXExporter) Export(ctx context.Context, ls []model.Listing) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheet := x.now().Format(SheetDateLayout)
	if err := ensureSheet(f, sheet); err != nil {
		return 0, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("xlsx: read %s: %w", sheet, err)
	}
	next := len(rows) + 1

	styles, err := newFillStyles(f)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, l := range ls {
		if ctx.Err() != nil {
			break
		}
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return 0, fmt.Errorf("xlsx: cell: %w", err)
		}
		row := listingRow(l)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, fmt.Errorf("xlsx: write row %d: %w", next, err)
		}
		if style, ok := styles[fillFor(l)]; ok {
			if err := f.SetRowStyle(sheet, next, next, style); err != nil {
				return 0, fmt.Errorf("xlsx: style row %d: %w", next, err)
			}
		}
		next++
		written++
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return 0, fmt.Errorf("xlsx: mkdir: %w", err)
	}
	if err := f.SaveAs(x.path); err != nil {
		return 0, fmt.Errorf("xlsx: save %s: %w", x.path, err)
	}
	return written, ctx.Err()
}

func (x *XLSXExporter) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(x.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("xlsx: open %s: %w", x.path, err)
	}
	return excelize.NewFile(), nil
}

// ensureSheet creates sheet with a header row if missing. A fresh workbook's
// default sheet is replaced.
func ensureSheet(f *excelize.File, sheet string) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: sheet index: %w", err)
	}
	if idx != -1 {
		return nil
	}

	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx: new sheet %s: %w", sheet, err)
	}
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, bold)
	}
	_ = f.SetColWidth(sheet, "A", "T", 18)

	if sheets := f.GetSheetList(); len(sheets) == 2 && sheets[0] == "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("xlsx: drop default sheet: %w", err)
		}
	}
	if idx, err = f.GetSheetIndex(sheet); err == nil {
		f.SetActiveSheet(idx)
	}
	return nil
}

func newFillStyles(f *excelize.File) (map[string]int, error) {
	out := make(map[string]int, 3)
	for _, color := range []string{fillHigh, fillMedium, fillLow} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return nil, fmt.Errorf("xlsx: style: %w", err)
		}
		out[color] = id
	}
	return out, nil
}

// fillFor returns the background color for l, or "" for none.
func fillFor(l model.Listing) string {
	if l.BudgetType == model.BudgetHourly {
		return fillHigh
	}
	if l.BudgetMin == nil {
		return ""
	}
	v := *l.BudgetMin
	switch {
	case v >= 1000:
		return fillHigh
	case l.BudgetType != model.BudgetFixed:
		return ""
	case v >= 500:
		return fillMedium
	case v >= 250:
		return fillLow
	}
	return ""
}

func listingRow(l model.Listing) []any {
	return []any{
		l.ID,
		deref(l.Title),
		deref(l.Description),
		l.URL,
		deref(l.PostedRelative),
		intCell(l.BidsCount),
		deref(l.BudgetRaw),
		floatCell(l.BudgetMin),
		floatCell(l.BudgetMax),
		string(l.BudgetType),
		strings.Join(l.Skills, ", "),
		deref(l.ClientName),
		deref(l.ClientCountry),
		floatCell(l.ClientRating),
		yesNo(l.ClientPaymentVerified),
		deref(l.ClientLastReply),
		yesNo(l.IsFeatured),
		yesNo(l.IsHighlighted),
		timeCell(l.FirstSeenAt),
		timeCell(l.ScrapedAt),
	}
}

func intCell(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func timeCell(t time.Time) any {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateTime)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
