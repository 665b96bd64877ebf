// Package receipt renders the PDF receipt of a confirmed counter sale.
package receipt

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/busops/ticket-counter/internal/domain"
)

// ErrNoItinerary is returned for a session without a chosen itinerary.
var ErrNoItinerary = errors.New("receipt: session has no itinerary")

// family is the embedded DejaVu face; it covers the Vietnamese place names
// and backend messages the core PDF fonts cannot encode.
const family = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	regularTTF []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	boldTTF []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	italicTTF []byte
)

// column widths in mm; they add up to the A4 text width with 15 mm margins.
var widths = []float64{28, 62, 36, 30, 24}

// Render builds a one-page A4 receipt listing every leg with its seats and
// the amount due. issuedAt is printed on the receipt and stamped as the
// document's creation date.
func Render(s domain.Session, issuedAt time.Time) ([]byte, error) {
	return render(s, issuedAt, true)
}

func render(s domain.Session, issuedAt time.Time, compress bool) ([]byte, error) {
	if s.Itinerary == nil || len(s.Itinerary.Legs) == 0 {
		return nil, ErrNoItinerary
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Ticket receipt", true)
	pdf.SetCreationDate(issuedAt)
	pdf.AddUTF8FontFromBytes(family, "", regularTTF)
	pdf.AddUTF8FontFromBytes(family, "B", boldTTF)
	pdf.AddUTF8FontFromBytes(family, "I", italicTTF)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("receipt.Render: fonts: %w", err)
	}
	pdf.AddPage()

	pdf.SetFont(family, "B", 18)
	pdf.Cell(0, 10, "TICKET RECEIPT")
	pdf.Ln(12)

	pdf.SetFont(family, "", 11)
	for _, line := range []string{
		"Booking  : " + s.ID.String(),
		"Issued   : " + issuedAt.Format("2006-01-02 15:04"),
		"Staff    : " + strconv.FormatInt(s.Actor.ID, 10),
		"Itinerary: " + string(s.Itinerary.Kind),
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 10)
	for i, h := range []string{"Trip", "Route", "Departure", "Seats", "Price"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 10)
	for _, leg := range s.Itinerary.Legs {
		row := []string{
			leg.TripCode,
			leg.FromLocation + " - " + leg.ToLocation,
			leg.TimeStart.Format("2006-01-02 15:04"),
			strings.Join(s.Selection.Codes(leg.ID), ", "),
			FormatAmount(leg.Price),
		}
		for i, cell := range row {
			align := "L"
			if i == len(row)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont(family, "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Passengers: %d", passengers(s)))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Price per passenger: "+FormatAmount(s.TotalPrice()))
	pdf.Ln(8)
	pdf.SetFont(family, "B", 12)
	pdf.Cell(0, 8, "Total: "+FormatAmount(s.AmountDue()))
	pdf.Ln(10)

	if s.Result != nil && s.Result.Message != "" {
		pdf.SetFont(family, "I", 10)
		pdf.MultiCell(0, 5, s.Result.Message, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt.Render: %w", err)
	}
	return buf.Bytes(), nil
}

// passengers is the seat count of the first leg; checkout guarantees every
// leg has the same count.
func passengers(s domain.Session) int {
	return len(s.Selection[s.Itinerary.Legs[0].ID])
}

// FormatAmount renders a whole-unit price with dot thousands separators,
// e.g. 1250000 -> "1.250.000".
func FormatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
