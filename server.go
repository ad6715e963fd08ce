package buywatch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

var httpLogger = NewLogger("http")

type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	BotStatus   string `json:"bot_status"`
}

type metricsResponse struct {
	TotalBuys        int64   `json:"total_buys"`
	TotalVolume      float64 `json:"total_volume"`
	TotalDistributed float64 `json:"total_distributed"`
	DailyBuys        int64   `json:"daily_buys"`
	DailyVolume      float64 `json:"daily_volume"`
	Timestamp        string  `json:"timestamp"`
}

// NewServer constructs the read-only HTTP surface: a liveness endpoint and a
// counters endpoint backed by a stats snapshot. Handlers never mutate state.
func NewServer(stats *RunningStats, environment string, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(countResponses)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, healthResponse{
			Status:      "healthy",
			Timestamp:   now().UTC().Format(time.RFC3339),
			Environment: environment,
			BotStatus:   "running",
		})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		snap := stats.Snapshot()
		writeJSON(w, metricsResponse{
			TotalBuys:        snap.TotalBuys,
			TotalVolume:      snap.TotalVolume,
			TotalDistributed: snap.TotalDistributed,
			DailyBuys:        snap.DailyBuys,
			DailyVolume:      snap.DailyVolume,
			Timestamp:        now().UTC().Format(time.RFC3339),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		httpLogger.Printf("write response failed: %v", err)
	}
}
