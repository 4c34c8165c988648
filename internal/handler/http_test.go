package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
	"github.com/scoreboard-gateway/internal/scoring"
	"github.com/scoreboard-gateway/internal/service"
	"github.com/scoreboard-gateway/internal/upstream"
	"github.com/scoreboard-gateway/internal/websocket"
	"github.com/stretchr/testify/suite"
)

type fakeHistory struct {
	snapshots []domain.Snapshot
	err       error
	limit     int
}

func (f *fakeHistory) ListSnapshots(_ context.Context, limit int) ([]domain.Snapshot, error) {
	f.limit = limit
	return f.snapshots, f.err
}

func (f *fakeHistory) GetSnapshot(_ context.Context, id string) (*domain.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.snapshots {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrSnapshotNotFound
}

type fakeMeta struct {
	id      string
	players int
	err     error
}

func (f *fakeMeta) LatestMeta(context.Context) (string, int, error) {
	return f.id, f.players, f.err
}

type failingSource struct {
	err error
}

func (f *failingSource) FetchPlayers(context.Context) ([]byte, error) {
	return nil, f.err
}

type HandlerTestSuite struct {
	suite.Suite
	backend       *httptest.Server
	backendStatus int
	backendBody   string
	logger        *slog.Logger
	format        domain.InventoryFormat
	history       HistoryReader
	router        http.Handler
}

func (s *HandlerTestSuite) SetupTest() {
	s.backendStatus = http.StatusOK
	s.backendBody = `[]`
	s.format = domain.InventoryFormatMap
	s.history = nil
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/players" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.backendStatus)
		io.WriteString(w, s.backendBody)
	}))
	s.buildRouter()
}

func (s *HandlerTestSuite) newService() *service.ScoreboardService {
	client := upstream.NewClient(&config.UpstreamConfig{BaseURL: s.backend.URL, Timeout: time.Second}, s.logger)
	calculator := scoring.NewCalculator(domain.NewResourceValues(config.DefaultResourceValues()))
	return service.NewScoreboardService(client, calculator, s.format, s.logger)
}

func (s *HandlerTestSuite) buildRouter() {
	s.router = NewHandler(s.newService(), s.history, nil, s.logger).Router()
}

func (s *HandlerTestSuite) TearDownTest() {
	s.backend.Close()
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) TestRootRedirectsToDocs() {
	rec := s.get("/")
	s.Equal(http.StatusTemporaryRedirect, rec.Code)
	s.Equal("/docs", rec.Header().Get("Location"))
}

func (s *HandlerTestSuite) TestDocsListsRoutes() {
	rec := s.get("/docs")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"/players"`)
	s.Contains(rec.Body.String(), `/scoreboard`)
}

func (s *HandlerTestSuite) TestHealth() {
	rec := s.get("/health")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"healthy"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestReady() {
	rec := s.get("/ready")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ready"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestReadyReportsSideOutputs() {
	h := NewHandler(s.newService(), nil, websocket.NewHub(&config.WebSocketConfig{Enabled: true}, s.logger), s.logger)
	h.SetSnapshotMeta(&fakeMeta{id: "snap-7", players: 3})
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ready","websocket_clients":0,"latest_snapshot":{"id":"snap-7","players":3}}`, rec.Body.String())

	h.SetSnapshotMeta(&fakeMeta{err: domain.ErrSnapshotNotFound})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ready","websocket_clients":0}`, rec.Body.String())

	h.SetSnapshotMeta(&fakeMeta{err: errors.New("dial tcp: connection refused")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerTestSuite) TestNonUpstreamErrorIsNotLeaked() {
	calculator := scoring.NewCalculator(domain.NewResourceValues(config.DefaultResourceValues()))
	svc := service.NewScoreboardService(&failingSource{err: errors.New("secret internals")}, calculator, s.format, s.logger)
	router := NewHandler(svc, nil, nil, s.logger).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/players", nil))
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"detail":"internal server error"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestPlayersPassThrough() {
	s.backendBody = `[{"playerId":"p-1","name":"Ada","inventory":{"iron":10},"unknownField":[1,2]}]`

	rec := s.get("/players")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))
	s.Equal(s.backendBody, rec.Body.String())
}

func (s *HandlerTestSuite) TestUpstream503() {
	s.backendStatus = http.StatusServiceUnavailable
	s.backendBody = `{"error":"down"}`

	for _, path := range []string{"/players", "/scoreboard"} {
		rec := s.get(path)
		s.Equal(http.StatusInternalServerError, rec.Code, path)
		s.JSONEq(`{"detail":"Failed to fetch data from backend."}`, rec.Body.String(), path)
	}
}

func (s *HandlerTestSuite) TestUpstreamUnreachable() {
	s.backend.Close()

	for _, path := range []string{"/players", "/scoreboard"} {
		rec := s.get(path)
		s.Equal(http.StatusInternalServerError, rec.Code, path)

		var body ErrorResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.NotEmpty(body.Detail)
		s.NotEqual(domain.UnavailableMessage, body.Detail)
	}
}

func (s *HandlerTestSuite) TestScoreboard() {
	s.backendBody = `[
		{"playerId": "a", "name": "Ada", "currentPlanetId": "earth", "inventory": {"iron": 10, "gold": 2}},
		{"playerId": "b", "name": "Bo", "inventory": {"platinum": 3}},
		{"playerId": "c", "name": "Cy", "inventory": {"unobtainium": 1000}},
		{"playerId": "d", "name": "Di"},
		{"playerId": "e", "name": "Ed", "currentPlanetId": 4, "inventory": {"gold": 4}}
	]`

	rec := s.get("/scoreboard")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Scoreboard-Snapshot"))
	s.JSONEq(`{"scoreboard": [
		{"playerId": "b", "name": "Bo", "score": 30, "currentPlanetId": null},
		{"playerId": "a", "name": "Ada", "score": 20, "currentPlanetId": "earth"},
		{"playerId": "e", "name": "Ed", "score": 20, "currentPlanetId": 4},
		{"playerId": "c", "name": "Cy", "score": 0, "currentPlanetId": null},
		{"playerId": "d", "name": "Di", "score": 0, "currentPlanetId": null}
	]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestScoreboardEmpty() {
	rec := s.get("/scoreboard")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"scoreboard": []}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestScoreboardMalformedRecord() {
	s.backendBody = `[{"playerId": "a", "name": "Ada"}, {"name": "NoID"}]`

	rec := s.get("/scoreboard")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"detail": "player 1: missing playerId"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestScoreboardNullBody() {
	s.backendBody = `null`

	rec := s.get("/scoreboard")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "expected a list of player records")
}

func (s *HandlerTestSuite) TestUpstreamRedirect() {
	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/players" {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"playerId":"x","name":"X","inventory":{"gold":1}}]`)
	}))
	defer redirecting.Close()
	s.backend.Close()
	s.backend = redirecting
	s.buildRouter()

	for _, path := range []string{"/players", "/scoreboard"} {
		rec := s.get(path)
		s.Equal(http.StatusInternalServerError, rec.Code, path)
		s.JSONEq(`{"detail":"Failed to fetch data from backend."}`, rec.Body.String(), path)
	}
}

func (s *HandlerTestSuite) TestScoreboardNegativeAmount() {
	s.backendBody = `[{"playerId": "a", "name": "Ada", "inventory": {"iron": -1}}]`

	rec := s.get("/scoreboard")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "negative")
}

func (s *HandlerTestSuite) TestScoreboardOverflowingScore() {
	s.backendBody = `[{"playerId": "a", "name": "Ada", "inventory": {"gold": 9223372036854775807}}]`

	rec := s.get("/scoreboard")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "score exceeds int64 range")
}

func (s *HandlerTestSuite) TestScoreboardLegacyListFormat() {
	s.format = domain.InventoryFormatList
	s.buildRouter()
	s.backendBody = `[
		{"playerId": "a", "name": "Ada", "inventory": [{"resource_type": "Iron", "amount": 10}]},
		{"playerId": "b", "name": "Bo", "inventory": [{"resource_type": "silver", "amount": 4}]}
	]`

	rec := s.get("/scoreboard")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"scoreboard": [{"player": "Bo", "score": 12}, {"player": "Ada", "score": 10}]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestHistoryDisabled() {
	rec := s.get("/scoreboard/history")
	s.Equal(http.StatusNotFound, rec.Code)
	s.JSONEq(`{"detail": "scoreboard history is not enabled"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestHistory() {
	history := &fakeHistory{snapshots: []domain.Snapshot{{
		ID:         "0b7f1f6e-2f1c-4b9a-9a53-1d2a0f7e8c11",
		ComputedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Entries:    []domain.ScoreboardEntry{{PlayerID: json.RawMessage(`"a"`), Name: "Ada", Score: 5}},
	}}}
	s.history = history
	s.buildRouter()

	rec := s.get("/scoreboard/history?limit=5")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(5, history.limit)

	var body HistoryResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Snapshots, 1)
	s.Equal("Ada", body.Snapshots[0].Entries[0].Name)

	rec = s.get("/scoreboard/history/0b7f1f6e-2f1c-4b9a-9a53-1d2a0f7e8c11")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.get("/scoreboard/history/6d1e0c3a-7a0b-4f4e-8f3d-5b2c1a0e9f22")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.get("/scoreboard/history/not-a-uuid")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.get("/scoreboard/history?limit=abc")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestHistoryStoreFailure() {
	s.history = &fakeHistory{err: errors.New("connection refused")}
	s.buildRouter()

	rec := s.get("/scoreboard/history")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"detail": "internal server error"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestWebSocketDisabled() {
	rec := s.get("/ws")
	s.Equal(http.StatusNotFound, rec.Code)
}
