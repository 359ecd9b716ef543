// README: Scoring contract: one reservation's model fields in, its cluster out.
package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/types"
)

// ID is a categorical id that may arrive as a JSON string or number.
// Integral numbers are rendered without a fraction so 157 and "157" match.
type ID types.NullString

// IDOf returns a present id.
func IDOf(v string) ID { return ID(types.String(v)) }

func (id ID) MarshalJSON() ([]byte, error) {
	return types.NullString(id).MarshalJSON()
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = IDOf(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = IDOf(normalizeNumber(n))
	return nil
}

func normalizeNumber(n json.Number) string {
	f, err := n.Float64()
	if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return n.String()
}

// Request carries the eleven model fields under their column names.
type Request struct {
	Guests   types.NullInt64   `json:"h_num_per"`
	Adults   types.NullInt64   `json:"h_num_adu"`
	Minors   types.NullInt64   `json:"h_num_men"`
	Nights   types.NullInt64   `json:"h_num_noc"`
	Rooms    types.NullInt64   `json:"h_tot_hab"`
	Fare     types.NullFloat64 `json:"h_tfa_total"`
	RoomType ID                `json:"ID_Tipo_Habitacion"`
	Channel  ID                `json:"ID_canal"`
	Origin   ID                `json:"ID_Pais_Origen"`
	Segment  ID                `json:"ID_Segmento_Comp"`
	Agency   ID                `json:"ID_Agencia"`
}

// Record lifts the request into a reservation record for prediction.
func (r Request) Record() reservation.Record {
	return reservation.Record{
		Guests:     r.Guests,
		Adults:     r.Adults,
		Minors:     r.Minors,
		Nights:     r.Nights,
		Rooms:      r.Rooms,
		Fare:       r.Fare,
		RoomTypeID: types.NullString(r.RoomType),
		ChannelID:  types.NullString(r.Channel),
		OriginID:   types.NullString(r.Origin),
		SegmentID:  types.NullString(r.Segment),
		AgencyID:   types.NullString(r.Agency),
	}
}

// Result is the scoring reply.
type Result struct {
	Clusters []int `json:"clusters"`
	BestK    int   `json:"best_k"`
}
