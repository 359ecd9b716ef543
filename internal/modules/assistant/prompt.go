// README: Prompts for field extraction and for the segment explanation.
package assistant

import (
	"fmt"
	"sort"
	"strings"

	"hotelsegments/internal/modules/catalog"
)

// OriginRejection is the reply for a reservation from an unsupported origin.
const OriginRejection = "Lo siento, solo puedo hacer predicciones para clientes mexicanos."

const offTopicReply = "Lo siento, solo puedo ayudarte con temas de reservas hoteleras y predicciones. ¿En qué puedo ayudarte con tu reserva?"

var promptDictionaries = []struct {
	label string
	kind  catalog.Kind
}{
	{"AgenciasDict", catalog.Agencies},
	{"CanalesDict", catalog.Channels},
	{"PaisesOrigenDict", catalog.Countries},
	{"SegmentosCompDict", catalog.Segments},
	{"TiposHabitacionDict", catalog.RoomTypes},
}

func (s *Service) extractionPrompt() string {
	var b strings.Builder
	b.WriteString(`Eres un modelo LLM especializado en reservas hoteleras y predicciones de clúster.
Tu nombre es "Abraham Licona" y eres un asistente de reservas hoteleras.

Reglas de conversación:
1. Consultas sobre clusters: si el usuario pregunta por un cluster específico, responde con su descripción.
   Si pregunta qué son los clusters, explica brevemente el sistema y lista los tipos. No pidas campos faltantes.
2. Saludos, agradecimientos y despedidas: responde de manera amigable y breve. No pidas campos faltantes.
`)
	fmt.Fprintf(&b, "3. Temas no relacionados: responde exactamente \"%s\"\n", offTopicReply)
	b.WriteString(`4. Reservas: SOLO si el usuario describe una reserva, extrae los campos y devuelve únicamente JSON.
`)
	fmt.Fprintf(&b, "   Si el país de origen no es el permitido, responde: \"%s\"\n", OriginRejection)
	b.WriteString("   Si faltan campos, devuelve {\"missing\": [\"campo\", ...]}.\n\nCampos obligatorios para reservas:\n")
	for _, f := range RequiredFields {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\nDiccionarios (IDs y nombres válidos):\n")
	for _, d := range promptDictionaries {
		raw := s.catalog.Dictionary(d.kind).Raw()
		if len(raw) == 0 {
			raw = []byte("{}")
		}
		fmt.Fprintf(&b, "%s = %s;\n", d.label, strings.TrimSpace(string(raw)))
	}

	fmt.Fprintf(&b, `
Reglas para campos:
1. ID_Pais_Origen: el único país permitido es %s, con ID %s. Si no se especifica el país, considera que falta el campo.
2. ID_Tipo_Habitacion, ID_canal, ID_Segmento_Comp e ID_Agencia: normaliza el texto y búscalo en su diccionario.
   Si el usuario escribe un ID válido úsalo tal cual. Si no coincide con ningún nombre ni ID, considera que falta el campo.
3. Convierte números escritos con letra a su valor numérico.
4. Devuelve solo el JSON bien formado, sin texto adicional.

IMPORTANTE: usa SOLO los valores exactos de los diccionarios. NO hagas suposiciones ni interpretaciones.
`, s.catalog.Describe(catalog.Countries, s.originID), s.originID)

	if len(s.descriptions) > 0 {
		b.WriteString("\nClusters conocidos:\n")
		for _, id := range sortedClusterIDs(s.descriptions) {
			fmt.Fprintf(&b, "Cluster %d: %s\n%s\n", id, s.descriptions[id].Name, s.descriptions[id].Description)
		}
	}
	return b.String()
}

// reservationView is a reservation with ids translated for a human reader.
type reservationView struct {
	Guests, Adults, Minors, Nights, Rooms int64
	Fare                                  float64
	RoomType, Channel, Origin             string
	Segment, Agency                       string
}

func analysisPrompt(cluster int, d ClusterDescription, v reservationView) string {
	return fmt.Sprintf(`Analiza brevemente por qué la siguiente reserva coincide con el cluster %d.
Máximo 3 párrafos cortos. Enfócate en las coincidencias más importantes.
Usa SOLO los valores exactos proporcionados. NO hagas suposiciones ni interpretaciones.

Datos de la reserva:
- Número total de personas: %d
- Adultos: %d
- Menores: %d
- Noches de estancia: %d
- Número de habitaciones: %d
- Tarifa total: $%s
- Tipo de habitación: %s
- Canal de reserva: %s
- País de origen: %s
- Segmento: %s
- Agencia: %s

Descripción del cluster %d (%s):
%s
`, cluster, v.Guests, v.Adults, v.Minors, v.Nights, v.Rooms, formatFare(v.Fare),
		v.RoomType, v.Channel, v.Origin, v.Segment, v.Agency, cluster, d.Name, d.Description)
}

func sortedClusterIDs(m map[int]ClusterDescription) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
