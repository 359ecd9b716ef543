// README: Projection of raw tables onto the fixed column list and per-cell coercion.
package reservation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"hotelsegments/internal/types"
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	time.RFC3339Nano,
	// timestamptz rendered by Postgres ::text
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// Parse projects raw onto Columns and coerces every cell. Extra columns are
// dropped. A missing required column is a *SchemaError; malformed cells become
// missing values.
func Parse(raw RawTable) ([]Record, error) {
	idx := make(map[string]int, len(raw.Header))
	for i, h := range raw.Header {
		h = strings.TrimSpace(h)
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	pos := make(map[string]int, len(Columns))
	for _, c := range Columns {
		i, ok := idx[c]
		if !ok {
			return nil, &SchemaError{Column: c}
		}
		pos[c] = i
	}

	out := make([]Record, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		cell := func(c string) string {
			i := pos[c]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}
		out = append(out, Record{
			ReservationID: cell(ColReservationID),
			BookingDate:   parseDate(cell(ColBookingDate)),
			Guests:        parseInt(cell(ColGuests)),
			Adults:        parseInt(cell(ColAdults)),
			Minors:        parseInt(cell(ColMinors)),
			Nights:        parseInt(cell(ColNights)),
			Rooms:         parseInt(cell(ColRooms)),
			ProgramID:     parseString(cell(ColProgram)),
			CompanyID:     parseString(cell(ColCompany)),
			PackageID:     parseString(cell(ColPackage)),
			SegmentID:     parseString(cell(ColSegment)),
			AgencyID:      parseString(cell(ColAgency)),
			RoomTypeID:    parseString(cell(ColRoomType)),
			ChannelID:     parseString(cell(ColChannel)),
			ArrivalDate:   parseDate(cell(ColArrival)),
			RegisteredAt:  parseDate(cell(ColRegistration)),
			DepartureDate: parseDate(cell(ColDeparture)),
			OriginID:      parseString(cell(ColOrigin)),
			Reservation:   cell(ColReservation),
			StatusID:      cell(ColStatus),
			State:         cell(ColState),
			Fare:          parseFloat(cell(ColFare)),
			Currency:      parseString(cell(ColCurrency)),
			LastChange:    cell(ColLastChange),
		})
	}
	return out, nil
}

// ToRawTable renders records back into text cells in Columns order.
func ToRawTable(records []Record) RawTable {
	header := make([]string, len(Columns))
	copy(header, Columns)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ReservationID,
			csvCell(r.BookingDate),
			csvCell(r.Guests),
			csvCell(r.Adults),
			csvCell(r.Minors),
			csvCell(r.Nights),
			csvCell(r.Rooms),
			r.ProgramID.String,
			r.CompanyID.String,
			r.PackageID.String,
			r.SegmentID.String,
			r.AgencyID.String,
			r.RoomTypeID.String,
			r.ChannelID.String,
			csvCell(r.ArrivalDate),
			csvCell(r.RegisteredAt),
			csvCell(r.DepartureDate),
			r.OriginID.String,
			r.Reservation,
			r.StatusID,
			r.State,
			csvCell(r.Fare),
			r.Currency.String,
			r.LastChange,
		})
	}
	return RawTable{Header: header, Rows: rows}
}

type csvMarshaler interface {
	MarshalCSV() (string, error)
}

func csvCell(v csvMarshaler) string {
	s, _ := v.MarshalCSV()
	return s
}

func parseDate(s string) types.NullTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.NullTime{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return types.Time(t)
		}
	}
	return types.NullTime{}
}

// parseInt accepts integral text, including "3.0"; anything else is missing.
func parseInt(s string) types.NullInt64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.NullInt64{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return types.Int(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return types.NullInt64{}
	}
	return types.Int(int64(f))
}

func parseFloat(s string) types.NullFloat64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.NullFloat64{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return types.NullFloat64{}
	}
	return types.Float(f)
}

func parseString(s string) types.NullString {
	if s == "" {
		return types.NullString{}
	}
	return types.String(s)
}
