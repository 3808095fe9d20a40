// Package report renders booking data into downloadable spreadsheets.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"gymbook/internal/models"
)

// BookingLister is the slice of the store the exporter reads from.
type BookingLister interface {
	ListBookingsBetween(ctx context.Context, from, to string) ([]models.Booking, error)
}

// Exporter writes bookings reports as xlsx workbooks.
type Exporter struct {
	store BookingLister
}

// NewExporter creates an exporter over the given store.
func NewExporter(store BookingLister) *Exporter {
	return &Exporter{store: store}
}

var bookingColumns = []string{
	"ID", "Reference", "Client ID", "Schedule ID", "Date",
	"Start", "End", "Status", "Created At",
}

// WriteBookings streams an xlsx workbook of all bookings with schedule_date
// in [from, to] to w.
func (e *Exporter) WriteBookings(ctx context.Context, w io.Writer, from, to string) error {
	bookings, err := e.store.ListBookingsBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Bookings"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range bookingColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(bookingColumns), 1)
		_ = f.SetCellStyle(sheet, startCell, endCell, style)
	}

	for i, b := range bookings {
		values := []any{
			b.ID, b.Reference, b.ClientID, b.ScheduleID, b.ScheduleDate,
			b.StartTime, b.EndTime, b.Status, b.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
