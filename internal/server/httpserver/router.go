package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/herdsman/internal/master"
	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// Master is the part of master.Master the routes use.
type Master interface {
	Snapshot() master.Snapshot
	History(ctx context.Context, limit int) ([]master.Record, error)
	Reload(trigger string) error
}

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Master serves /status, /history and /reload.
	Master Master

	// Metrics serves /metrics. Nil leaves the route out.
	Metrics http.Handler

	// Logger for request logging.
	Logger logger.Logger

	// ReloadRate is the number of reloads admitted per second.
	ReloadRate float64

	// ReloadBurst is the number of reloads admitted at once.
	ReloadBurst int

	// HistoryLimit caps entries returned by /history.
	HistoryLimit int
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		ReloadRate:   1,
		ReloadBurst:  3,
		HistoryLimit: 100,
	}
}

// StatusResponse is the data of GET /status.
type StatusResponse struct {
	Settings master.Snapshot `json:"settings"`
	Time     time.Time       `json:"time"`
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	h := &handler{master: cfg.Master, log: log, historyLimit: cfg.HistoryLimit}

	mux := http.NewServeMux()
	base := []Middleware{Recover(log), RequestID()}

	mux.Handle("GET /health", Chain(http.HandlerFunc(h.handleHealth), base...))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, base...))
	}
	mux.Handle("GET /status", Chain(http.HandlerFunc(h.handleStatus), base...))
	mux.Handle("GET /history", Chain(http.HandlerFunc(h.handleHistory), base...))

	reload := append(base[:len(base):len(base)],
		Audit(log),
		RateLimit(cfg.ReloadRate, cfg.ReloadBurst),
	)
	mux.Handle("POST /reload", Chain(http.HandlerFunc(h.handleReload), reload...))

	return mux
}

type handler struct {
	master       Master
	log          logger.Logger
	historyLimit int
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, StatusResponse{
		Settings: h.master.Snapshot(),
		Time:     time.Now().UTC(),
	})
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		if limit <= 0 || n < limit {
			limit = n
		}
	}

	records, err := h.master.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, master.ErrNoHistory) {
			writeError(w, r, http.StatusNotFound, CodeNoHistory, "history is not kept")
			return
		}
		h.log.Error("read history failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}
	if records == nil {
		records = []master.Record{}
	}
	writeJSON(w, r, http.StatusOK, records)
}

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.master.Reload(master.TriggerAPI); err != nil {
		h.log.Error("reload failed", "trigger", master.TriggerAPI, "error", err)
		writeError(w, r, http.StatusUnprocessableEntity, CodeReload, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, StatusResponse{
		Settings: h.master.Snapshot(),
		Time:     time.Now().UTC(),
	})
}
