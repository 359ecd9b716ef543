package runs

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"hotelsegments/internal/modules/clustering"
	"hotelsegments/internal/types"
)

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("run not found")

// Run is one recorded training run.
type Run struct {
	ID         uuid.UUID              `json:"id"`
	Seed       int64                  `json:"seed"`
	BestK      int                    `json:"best_k"`
	Score      float64                `json:"score"`
	Candidates []clustering.Candidate `json:"candidates"`
	RawRows    int                    `json:"raw_rows"`
	CleanRows  int                    `json:"clean_rows"`
	BundleURI  string                 `json:"bundle_uri"`
	TrainedAt  time.Time              `json:"trained_at"`
}

// Profile is one stored cluster summary.
type Profile struct {
	Cluster int                          `json:"cluster"`
	Size    int                          `json:"size"`
	Means   map[string]types.NullFloat64 `json:"means"`
	Modes   map[string]types.NullString  `json:"modes"`
}
