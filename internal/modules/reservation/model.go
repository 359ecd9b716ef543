// README: Reservation record, raw table and column schema.
package reservation

import (
	"hotelsegments/internal/types"
)

// Column names as they appear in the reservation extracts.
const (
	ColReservationID = "ID_Reserva"
	ColBookingDate   = "Fecha_hoy"
	ColGuests        = "h_num_per"
	ColAdults        = "h_num_adu"
	ColMinors        = "h_num_men"
	ColNights        = "h_num_noc"
	ColRooms         = "h_tot_hab"
	ColProgram       = "ID_Programa"
	ColCompany       = "ID_empresa"
	ColPackage       = "ID_Paquete"
	ColSegment       = "ID_Segmento_Comp"
	ColAgency        = "ID_Agencia"
	ColRoomType      = "ID_Tipo_Habitacion"
	ColChannel       = "ID_canal"
	ColArrival       = "h_fec_lld"
	ColRegistration  = "h_fec_reg"
	ColDeparture     = "h_fec_sda"
	ColOrigin        = "ID_Pais_Origen"
	ColReservation   = "Reservacion"
	ColStatus        = "ID_estatus_reservaciones"
	ColState         = "h_edo"
	ColFare          = "h_tfa_total"
	ColCurrency      = "moneda_cve"
	ColLastChange    = "h_ult_cam_fec"
)

// Columns is the projection every raw table is reduced to, in output order.
var Columns = []string{
	ColReservationID, ColBookingDate, ColGuests, ColAdults, ColMinors,
	ColNights, ColRooms, ColProgram, ColCompany, ColPackage,
	ColSegment, ColAgency, ColRoomType, ColChannel,
	ColArrival, ColRegistration, ColDeparture, ColOrigin,
	ColReservation, ColStatus, ColState, ColFare,
	ColCurrency, ColLastChange,
}

// NumericFields are the model's numeric inputs, in matrix order.
var NumericFields = []string{ColGuests, ColAdults, ColMinors, ColNights, ColRooms, ColFare}

// CategoricalFields are the model's categorical inputs, in matrix order.
var CategoricalFields = []string{ColRoomType, ColChannel, ColOrigin, ColSegment, ColAgency}

// RawTable is an untyped table: a header row plus text cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Record is one typed reservation row after projection and coercion.
type Record struct {
	ReservationID string            `csv:"ID_Reserva"`
	BookingDate   types.NullTime    `csv:"Fecha_hoy"`
	Guests        types.NullInt64   `csv:"h_num_per"`
	Adults        types.NullInt64   `csv:"h_num_adu"`
	Minors        types.NullInt64   `csv:"h_num_men"`
	Nights        types.NullInt64   `csv:"h_num_noc"`
	Rooms         types.NullInt64   `csv:"h_tot_hab"`
	ProgramID     types.NullString  `csv:"ID_Programa"`
	CompanyID     types.NullString  `csv:"ID_empresa"`
	PackageID     types.NullString  `csv:"ID_Paquete"`
	SegmentID     types.NullString  `csv:"ID_Segmento_Comp"`
	AgencyID      types.NullString  `csv:"ID_Agencia"`
	RoomTypeID    types.NullString  `csv:"ID_Tipo_Habitacion"`
	ChannelID     types.NullString  `csv:"ID_canal"`
	ArrivalDate   types.NullTime    `csv:"h_fec_lld"`
	RegisteredAt  types.NullTime    `csv:"h_fec_reg"`
	DepartureDate types.NullTime    `csv:"h_fec_sda"`
	OriginID      types.NullString  `csv:"ID_Pais_Origen"`
	Reservation   string            `csv:"Reservacion"`
	StatusID      string            `csv:"ID_estatus_reservaciones"`
	State         string            `csv:"h_edo"`
	Fare          types.NullFloat64 `csv:"h_tfa_total"`
	Currency      types.NullString  `csv:"moneda_cve"`
	LastChange    string            `csv:"h_ult_cam_fec"`
}

// Numeric returns the value of a numeric model field; ok is false when the
// value is missing or the field is not numeric.
func (r Record) Numeric(field string) (float64, bool) {
	switch field {
	case ColGuests:
		return r.Guests.Float64()
	case ColAdults:
		return r.Adults.Float64()
	case ColMinors:
		return r.Minors.Float64()
	case ColNights:
		return r.Nights.Float64()
	case ColRooms:
		return r.Rooms.Float64()
	case ColFare:
		return r.Fare.Float64, r.Fare.Valid
	}
	return 0, false
}

// Category returns the value of a categorical field.
func (r Record) Category(field string) types.NullString {
	switch field {
	case ColRoomType:
		return r.RoomTypeID
	case ColChannel:
		return r.ChannelID
	case ColOrigin:
		return r.OriginID
	case ColSegment:
		return r.SegmentID
	case ColAgency:
		return r.AgencyID
	case ColProgram:
		return r.ProgramID
	case ColCompany:
		return r.CompanyID
	case ColPackage:
		return r.PackageID
	case ColCurrency:
		return r.Currency
	}
	return types.NullString{}
}

// IsNumericField reports whether field is one of the model's numeric inputs.
func IsNumericField(field string) bool {
	for _, f := range NumericFields {
		if f == field {
			return true
		}
	}
	return false
}
