package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/scoreboard-gateway/internal/domain"
	"github.com/scoreboard-gateway/internal/scoring"
	"github.com/scoreboard-gateway/internal/service"
	"github.com/scoreboard-gateway/internal/websocket"
)

// HistoryReader serves previously computed scoreboards
type HistoryReader interface {
	ListSnapshots(ctx context.Context, limit int) ([]domain.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error)
}

// SnapshotMeta reports the most recently published scoreboard
type SnapshotMeta interface {
	LatestMeta(ctx context.Context) (id string, players int, err error)
}

// Handler provides HTTP handlers for the gateway API
type Handler struct {
	service *service.ScoreboardService
	history HistoryReader
	latest  SnapshotMeta
	hub     *websocket.Hub
	logger  *slog.Logger
	router  chi.Router
}

// NewHandler creates a new HTTP handler. history and hub are optional.
func NewHandler(service *service.ScoreboardService, history HistoryReader, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		history: history,
		hub:     hub,
		logger:  logger,
	}
}

// SetSnapshotMeta lets the readiness check report the latest published snapshot
func (h *Handler) SetSnapshotMeta(latest SnapshotMeta) {
	h.latest = latest
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ScoreboardResponse wraps the ranked entries
type ScoreboardResponse struct {
	Scoreboard interface{} `json:"scoreboard"`
}

// HistoryResponse wraps a page of stored snapshots
type HistoryResponse struct {
	Snapshots []domain.Snapshot `json:"snapshots"`
}

// RouteInfo describes one registered route on the docs page
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	r.Get("/", h.Root)
	r.Get("/docs", h.Docs)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	r.Get("/players", h.GetPlayers)

	r.Route("/scoreboard", func(r chi.Router) {
		r.Get("/", h.GetScoreboard)
		r.Get("/history", h.ListHistory)
		r.Get("/history/{snapshotID}", h.GetHistorySnapshot)
	})

	r.Get("/ws", h.HandleWebSocket)

	h.router = r
	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeUpstreamError flattens every upstream failure into a 500 carrying its detail
func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !domain.IsUpstreamError(err) {
		h.logger.Error("request failed",
			"op", op,
			"kind", "internal",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError.Error())
		return
	}

	var te *domain.TransportError
	var de *domain.DataError
	var kind string
	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		kind = "upstream_unavailable"
	case errors.As(err, &te):
		kind = "transport"
	case errors.As(err, &de):
		kind = "upstream_data"
	}

	h.logger.Error("request failed",
		"op", op,
		"kind", kind,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	h.writeError(w, http.StatusInternalServerError, domain.Detail(err))
}

// Root redirects to the API docs
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

// Docs lists the registered routes
func (h *Handler) Docs(w http.ResponseWriter, r *http.Request) {
	routes := []RouteInfo{}
	if h.router != nil {
		chi.Walk(h.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			routes = append(routes, RouteInfo{Method: method, Path: route})
			return nil
		})
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":  "Space Explorer scoreboard gateway",
		"routes": routes,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status along with push and publish state
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ready"}
	if h.hub != nil {
		status["websocket_clients"] = h.hub.GetTotalConnections()
	}
	if h.latest != nil {
		id, players, err := h.latest.LatestMeta(r.Context())
		switch {
		case err == nil:
			status["latest_snapshot"] = map[string]interface{}{"id": id, "players": players}
		case errors.Is(err, domain.ErrSnapshotNotFound):
			// nothing published yet
		default:
			h.logger.Warn("failed to read latest snapshot meta", "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, status)
}

// GetPlayers passes the backend's player list through unmodified
func (h *Handler) GetPlayers(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.Players(r.Context())
	if err != nil {
		h.writeUpstreamError(w, r, "players", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// GetScoreboard returns players ranked by inventory value
func (h *Handler) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Scoreboard(r.Context())
	if err != nil {
		h.writeUpstreamError(w, r, "scoreboard", err)
		return
	}

	w.Header().Set("X-Scoreboard-Snapshot", snapshot.ID)

	if h.service.InventoryFormat() == domain.InventoryFormatList {
		h.writeJSON(w, http.StatusOK, ScoreboardResponse{Scoreboard: scoring.Legacy(snapshot.Entries)})
		return
	}
	h.writeJSON(w, http.StatusOK, ScoreboardResponse{Scoreboard: snapshot.Entries})
}

// ListHistory returns recently recorded scoreboards
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, domain.ErrHistoryDisabled.Error())
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest.Error())
			return
		}
		limit = l
	}

	snapshots, err := h.history.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list scoreboard history", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, HistoryResponse{Snapshots: snapshots})
}

// GetHistorySnapshot returns one recorded scoreboard
func (h *Handler) GetHistorySnapshot(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, domain.ErrHistoryDisabled.Error())
		return
	}

	snapshotID := chi.URLParam(r, "snapshotID")
	if _, err := uuid.Parse(snapshotID); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest.Error())
		return
	}

	snapshot, err := h.history.GetSnapshot(r.Context(), snapshotID)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get scoreboard snapshot", "snapshot_id", snapshotID, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleWebSocket upgrades the connection and subscribes it to scoreboard updates
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		h.writeError(w, http.StatusNotFound, "websocket push is not enabled")
		return
	}
	websocket.ServeWs(h.hub, h.logger, w, r)
}
