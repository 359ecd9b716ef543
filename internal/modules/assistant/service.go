// README: Assistant service: free-text reservation -> extracted fields -> segment + explanation.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hotelsegments/internal/ai"
	"hotelsegments/internal/modules/catalog"
	"hotelsegments/internal/modules/encoder"
	"hotelsegments/internal/modules/reservation"
	"hotelsegments/internal/modules/scoring"
	"hotelsegments/internal/types"
)

// DefaultOriginCountryID is Mexico in the country dictionary.
const DefaultOriginCountryID = "157"

// Options tune a Service. Zero values take the defaults.
type Options struct {
	OriginCountryID string
	Descriptions    map[int]ClusterDescription
}

type Service struct {
	llm          ai.LLMProvider
	scorer       scoring.Scorer
	catalog      *catalog.Catalog
	originID     string
	descriptions map[int]ClusterDescription
	log          *zap.Logger
}

// NewService wires the assistant. cat may be nil, in which case ids are shown
// as-is.
func NewService(llm ai.LLMProvider, scorer scoring.Scorer, cat *catalog.Catalog, opts Options, log *zap.Logger) *Service {
	if opts.OriginCountryID == "" {
		opts.OriginCountryID = DefaultOriginCountryID
	}
	if opts.Descriptions == nil {
		opts.Descriptions = DefaultDescriptions
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		llm:          llm,
		scorer:       scorer,
		catalog:      cat,
		originID:     opts.OriginCountryID,
		descriptions: opts.Descriptions,
		log:          log,
	}
}

// Process answers one chat message. Conversational replies, missing fields
// and rejected reservations come back as a Response; only upstream failures
// are returned as errors.
func (s *Service) Process(ctx context.Context, msg string) (Response, error) {
	if strings.TrimSpace(msg) == "" {
		return Response{}, ErrEmptyMessage
	}

	raw, err := s.llm.Complete(ctx, ai.CompletionRequest{
		System:      s.extractionPrompt(),
		Prompt:      msg,
		MaxTokens:   1500,
		Temperature: 0,
	})
	if err != nil {
		return Response{}, &UpstreamError{Stage: "extract fields", Err: err}
	}
	text := ai.CleanJSONString(raw)
	s.log.Debug("extraction reply", zap.String("text", text))

	fields, ok := parseObject(text)
	if !ok {
		return reply(text, StatusSuccess), nil
	}
	if v, ok := fields["missing"]; ok {
		return reply("Faltan los siguientes campos: "+strings.Join(stringList(v), ", "), StatusError), nil
	}
	if v, ok := fields["error"].(string); ok && v != "" {
		return reply(v, StatusError), nil
	}
	if missing := missingFields(fields); len(missing) > 0 {
		return reply("Faltan los siguientes campos: "+strings.Join(missing, ", "), StatusError), nil
	}

	req, err := coerce(fields)
	if err != nil {
		return reply("Error en el formato de los datos: "+err.Error(), StatusError), nil
	}
	if req.Origin.String != s.originID {
		return reply(OriginRejection, StatusError), nil
	}

	res, err := s.scorer.Score(ctx, req)
	if err != nil {
		var unknown *encoder.UnknownCategoryError
		if errors.As(err, &unknown) {
			return reply(fmt.Sprintf("El valor %s del campo %s no existe en el modelo.", unknown.Value, unknown.Field), StatusError), nil
		}
		var remote *scoring.RemoteError
		if errors.As(err, &remote) && remote.Status == 422 {
			return reply("El modelo no reconoce alguno de los valores de la reserva.", StatusError), nil
		}
		return Response{}, &UpstreamError{Stage: "score", Err: err}
	}
	if len(res.Clusters) == 0 {
		return Response{Prediction: Prediction{
			Message:     "No se pudo determinar el cluster",
			Clusters:    []int{},
			Explanation: "No se pudo determinar el cluster para esta reserva.",
			Status:      StatusSuccess,
		}}, nil
	}

	cluster := res.Clusters[0]
	s.log.Info("reservation scored", zap.Int("cluster", cluster), zap.Int("best_k", res.BestK))
	pred := Prediction{
		Message:  fmt.Sprintf("La predicción del cluster es: %d", cluster),
		Clusters: []int{cluster},
		Status:   StatusSuccess,
	}
	d, known := s.descriptions[cluster]
	if !known {
		pred.Explanation = fmt.Sprintf("Este es un nuevo cluster (%d) que aún no tiene una descripción detallada. Analizando el perfil de la reserva...", cluster)
		return Response{Prediction: pred}, nil
	}
	pred.Explanation = s.explain(ctx, cluster, d, s.view(req))
	return Response{Prediction: pred}, nil
}

// explain asks the LLM why the reservation fits the cluster and falls back
// to a templated sentence when it cannot answer.
func (s *Service) explain(ctx context.Context, cluster int, d ClusterDescription, v reservationView) string {
	out, err := s.llm.Complete(ctx, ai.CompletionRequest{
		System:      analysisPrompt(cluster, d, v),
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err == nil {
		if text := cleanExplanation(out); text != "" {
			return text
		}
	} else {
		s.log.Warn("cluster explanation failed", zap.Int("cluster", cluster), zap.Error(err))
	}
	return fmt.Sprintf("Esta reserva coincide con el cluster %d debido a sus características principales: %d personas, %d noches de estancia, y segmento %s.",
		cluster, v.Guests, v.Nights, v.Segment)
}

func (s *Service) view(req scoring.Request) reservationView {
	return reservationView{
		Guests:   req.Guests.Int64,
		Adults:   req.Adults.Int64,
		Minors:   req.Minors.Int64,
		Nights:   req.Nights.Int64,
		Rooms:    req.Rooms.Int64,
		Fare:     req.Fare.Float64,
		RoomType: s.catalog.Describe(catalog.RoomTypes, req.RoomType.String),
		Channel:  s.catalog.Describe(catalog.Channels, req.Channel.String),
		Origin:   s.catalog.Describe(catalog.Countries, req.Origin.String),
		Segment:  s.catalog.Describe(catalog.Segments, req.Segment.String),
		Agency:   s.catalog.Describe(catalog.Agencies, req.Agency.String),
	}
}

// cleanExplanation strips markdown emphasis, collapses whitespace and ends
// the text with a period.
func cleanExplanation(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// parseObject decodes the first JSON object in text.
func parseObject(text string) (map[string]any, bool) {
	obj, ok := ai.ExtractJSONObject(text)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, false
	}
	return fields, true
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{fmt.Sprint(v)}
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = fmt.Sprint(it)
	}
	return out
}

func missingFields(fields map[string]any) []string {
	var missing []string
	for _, f := range RequiredFields {
		if v, ok := fields[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	return missing
}

// coerce converts the extracted values: counts and ids to integers, the fare
// to a float. Fractional numbers are truncated.
func coerce(fields map[string]any) (scoring.Request, error) {
	var req scoring.Request
	counts := []struct {
		field string
		dst   *types.NullInt64
	}{
		{reservation.ColGuests, &req.Guests},
		{reservation.ColAdults, &req.Adults},
		{reservation.ColMinors, &req.Minors},
		{reservation.ColNights, &req.Nights},
		{reservation.ColRooms, &req.Rooms},
	}
	for _, c := range counts {
		n, err := toInt(c.field, fields[c.field])
		if err != nil {
			return req, err
		}
		*c.dst = types.Int(n)
	}

	fare, err := toFloat(reservation.ColFare, fields[reservation.ColFare])
	if err != nil {
		return req, err
	}
	req.Fare = types.Float(fare)

	ids := []struct {
		field string
		dst   *scoring.ID
	}{
		{reservation.ColRoomType, &req.RoomType},
		{reservation.ColChannel, &req.Channel},
		{reservation.ColOrigin, &req.Origin},
		{reservation.ColSegment, &req.Segment},
		{reservation.ColAgency, &req.Agency},
	}
	for _, c := range ids {
		n, err := toInt(c.field, fields[c.field])
		if err != nil {
			return req, err
		}
		*c.dst = scoring.IDOf(strconv.FormatInt(n, 10))
	}
	return req, nil
}

func toInt(field string, v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%s: %q no es un número entero", field, t.String())
		}
		return int64(f), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q no es un número entero", field, t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%s: %v no es un número entero", field, v)
}

func toFloat(field string, v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		err = fmt.Errorf("unsupported type")
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %v no es un número", field, v)
	}
	return f, nil
}

func formatFare(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
