// README: Assistant message/prediction types and the business descriptions of each segment.
package assistant

import (
	"errors"

	"hotelsegments/internal/modules/reservation"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrEmptyMessage is returned for a blank user message.
var ErrEmptyMessage = errors.New("empty user message")

// UpstreamError marks a failed call to the LLM or the scorer.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Message is the chat turn sent by the client.
type Message struct {
	UserMessage string `json:"userMessage"`
}

// Prediction is what the chat client renders.
type Prediction struct {
	Message     string `json:"message"`
	Clusters    []int  `json:"clusters"`
	Explanation string `json:"explanation"`
	Status      string `json:"status"`
}

type Response struct {
	Prediction Prediction `json:"prediction"`
}

func reply(msg, status string) Response {
	return Response{Prediction: Prediction{Message: msg, Clusters: []int{}, Status: status}}
}

// RequiredFields are the reservation fields the extractor must fill, in
// the order they are reported when missing.
var RequiredFields = []string{
	reservation.ColGuests,
	reservation.ColAdults,
	reservation.ColMinors,
	reservation.ColNights,
	reservation.ColRooms,
	reservation.ColFare,
	reservation.ColRoomType,
	reservation.ColChannel,
	reservation.ColOrigin,
	reservation.ColSegment,
	reservation.ColAgency,
}

// ClusterDescription is the business reading of one segment.
type ClusterDescription struct {
	Name        string
	Description string
}

// DefaultDescriptions describe the five segments of the reference run.
var DefaultDescriptions = map[int]ClusterDescription{
	0: {
		Name: "Viajeros frecuentes y leales",
		Description: `Perfil: Reservas de una o dos personas con estadías prolongadas (alrededor de 7 noches)
Características: 1 habitación, canal DIRECTO o INTERNET, agencias PARTICULAR o BOOKING.COM
Habitación típica: LUXURY 2Q
Segmento: INDIVIDUAL BUSINESS/LOYALTY
Perfil típico: viajeros frecuentes que ya conocen el hotel o clientes con programas de lealtad`,
	},
	1: {
		Name: "Clientes de negocios premium",
		Description: `Perfil: Reservas de 1-2 personas con estadías cortas (2-3 noches) y tarifas altas
Características: canales SITIO PROPIO o agencias especializadas (BTC, CORAD, BOOKING.COM)
Habitaciones típicas: SUITE PRESIDENCIAL, MASTER SUITE, JR SUITE
Segmento: GRO. & CONV. MEETINGS o INCENTIVE SOC.
Perfil típico: asistentes a eventos, convenciones o clientes de negocios premium`,
	},
	2: {
		Name: "Grupos y familias",
		Description: `Perfil: Grupos o familias de 3-5 personas con 2 habitaciones
Características: estadías de 4-6 noches, tarifas medias, agencias BESTDAY, APPLE VACATIONS, CHEAP CARIBBEAN
Canales: MULTIVACACIONES
Habitaciones típicas: JR SUITE, LUXURY 2Q SB
Segmento: TOUR OPERATORS DOMESTIC/INTERNATIONALS
Perfil típico: familias o grupos turísticos organizados por agencias`,
	},
	3: {
		Name: "Parejas y celebraciones",
		Description: `Perfil: Dos personas buscando experiencias especiales
Características: estancias medias (3-5 noches)
Habitaciones típicas: HONEYMOON, MASTER SUITE
Canales: INTERNET, DIRECTO HOTEL, PARTICULAR
Segmento: INDIVIDUAL LEISURE/PACKAGE
Perfil típico: parejas en plan vacacional o celebración personal`,
	},
	4: {
		Name: "Familias con niños",
		Description: `Perfil: Reservas para familias con niños, típicamente 2 personas (1 adulto y 1 menor)
Características: estadías cortas (2-3 noches), múltiples habitaciones
Canales: INTERNET, agencias como BESTDAY TRAVEL GROUP
Habitaciones típicas: ESTD S/REAL
Segmento: INDIVIDUAL EP/VAC. CLUB
Perfil típico: familias que buscan comodidad y espacio para sus hijos`,
	},
}
