// Package export writes the member roster as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
	"github.com/dukerupert/gymdash/internal/subscription"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Members"

var header = []any{
	"ID", "First Name", "Last Name", "Email", "Phone", "Picture URL",
	"Subscription Start", "Subscription End", "Status", "Details",
}

// WriteRoster writes members and their status as of now to w in xlsx format.
func WriteRoster(w io.Writer, members []model.Member, now time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, m := range members {
		status, details := "invalid", "Invalid end date"
		if r, err := subscription.Classify(m.SubscriptionEndDate, now); err == nil {
			status, details = string(r.Status), r.Text
		}

		row := []any{
			m.ID,
			m.FirstName,
			m.LastName,
			m.Email,
			deref(m.PhoneNumber),
			deref(m.PictureURL),
			m.SubscriptionStartDate.String(),
			m.SubscriptionEndDate.String(),
			status,
			details,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 38); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "J", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Filename is the download name for a roster exported at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("members_%s.xlsx", now.Format("20060102_150405"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
