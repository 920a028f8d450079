// Package web serves the signal dashboard over HTTP and pushes every new
// frame to connected websocket clients.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/guidoenr/sigdash/internal/analyzer"
	"github.com/guidoenr/sigdash/internal/app"
	"github.com/guidoenr/sigdash/internal/drought"
	"github.com/guidoenr/sigdash/internal/filter"
	"github.com/guidoenr/sigdash/internal/params"
	"github.com/guidoenr/sigdash/internal/wave"
)

//go:embed static
var staticFiles embed.FS

// AppInterface is the part of the application the server drives.
type AppInterface interface {
	Params() params.Parameters
	Frame() app.Frame
	Set(field params.Field, value any) (app.Frame, error)
	Update(p params.Parameters) (app.Frame, error)
	Reset() (app.Frame, error)
	Subscribe() (<-chan app.Frame, func())
}

type Server struct {
	mu       sync.RWMutex
	app      AppInterface
	log      *zap.Logger
	clients  map[*websocketClient]bool
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	analyzer *analyzer.Analyzer

	started time.Time

	records   []drought.Record
	years     drought.Range
	dashboard drought.State
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// SetRequest changes a single field.
type SetRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type queryResponse struct {
	State    drought.State `json:"state"`
	Rows     []drought.Row `json:"rows"`
	Warnings []string      `json:"warnings,omitempty"`
}

type spectrumResponse struct {
	Seq      uint64            `json:"seq"`
	Cutoff   float64           `json:"cutoff,omitempty"`
	Spectrum analyzer.Spectrum `json:"spectrum"`
	Features analyzer.Features `json:"features"`
	Stopband *float64          `json:"stopbandDb,omitempty"`
}

type stateResponse struct {
	State   drought.State    `json:"state"`
	Years   drought.Range    `json:"years"`
	Indexes []drought.Index  `json:"indexes"`
	Regions []drought.Region `json:"regions"`
}

// NewServer builds the HTTP routes. records may be empty, in which case the
// drought endpoints answer 404.
func NewServer(a AppInterface, records []drought.Record, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		app:       a,
		log:       logger,
		clients:   make(map[*websocketClient]bool),
		records:   records,
		dashboard: drought.DefaultState(),
		analyzer:  analyzer.New(),
		started:   time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if years, ok := drought.YearBounds(records); ok {
		s.years = years
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	static, _ := fs.Sub(staticFiles, "static")
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	// frames, spectra and drought tables run to tens of kilobytes
	gz := func(h http.HandlerFunc) http.Handler { return gzhttp.GzipHandler(h) }
	mux.HandleFunc("/api/params", s.handleParams)
	mux.Handle("/api/frame", gz(s.handleFrame))
	mux.Handle("/api/set", gz(s.handleSet))
	mux.Handle("/api/update", gz(s.handleUpdate))
	mux.Handle("/api/reset", gz(s.handleReset))
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/fields", s.handleFields)
	mux.Handle("/api/spectrum", gz(s.handleSpectrum))
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/drought/regions", s.handleRegions)
	mux.Handle("/api/drought/query", gz(s.handleDroughtQuery))
	mux.Handle("/api/drought/weekly", gz(s.handleDroughtWeekly))
	mux.Handle("/api/drought/compare", gz(s.handleDroughtCompare))
	mux.HandleFunc("/api/drought/state", s.handleDroughtState)
	mux.HandleFunc("/api/drought/reset", s.handleDroughtReset)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux = mux
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.broadcastLoop(loopCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("url", "http://0.0.0.0"+addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("server stopped")
		return nil
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Params())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Frame())
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request: %v: %w", err, wave.ErrInvalidInput))
		return
	}
	frame, err := s.apply(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) apply(req SetRequest) (app.Frame, error) {
	field, err := params.ParseField(req.Field)
	if err != nil {
		return app.Frame{}, err
	}
	frame, err := s.app.Set(field, req.Value)
	if err != nil {
		return app.Frame{}, err
	}
	s.log.Debug("parameter set", zap.String("field", string(field)), zap.Any("value", req.Value), zap.Uint64("seq", frame.Seq))
	return frame, nil
}

// handleUpdate overlays a partial parameter set on the current one.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p := s.app.Params()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, fmt.Errorf("decode params: %v: %w", err, wave.ErrInvalidInput))
		return
	}
	kind, err := filter.ParseKind(string(p.Filter.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	p.Filter.Kind = kind
	frame, err := s.app.Update(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	frame, err := s.app.Reset()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filter.Kinds())
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, params.Fields())
}

// handleSpectrum compares raw and filtered spectra of the current frame.
// For the Butterworth filter it also reports attenuation above the cutoff.
func (s *Server) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	frame := s.app.Frame()
	spec, feat, err := s.analyzer.Analyze(frame.Raw, frame.Filtered, frame.SamplingRate)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := spectrumResponse{Seq: frame.Seq, Cutoff: frame.Cutoff, Spectrum: spec, Features: feat}
	if frame.Cutoff > 0 {
		db := spec.BandAttenuation(frame.Cutoff, frame.SamplingRate)
		resp.Stopband = &db
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) droughtEnabled(w http.ResponseWriter) bool {
	if len(s.records) == 0 {
		http.Error(w, "drought dashboard disabled", http.StatusNotFound)
		return false
	}
	return true
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, drought.Regions())
}

// stateFromRequest overlays query-string selections on the stored state.
func (s *Server) stateFromRequest(r *http.Request) (drought.State, error) {
	s.mu.RLock()
	st := s.dashboard
	s.mu.RUnlock()

	q := r.URL.Query()
	if v := q.Get("index"); v != "" {
		st.Index = drought.Index(v)
	}
	if v := q.Get("region"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			name, ok := drought.RegionName(id)
			if !ok {
				return st, fmt.Errorf("unknown area %d: %w", id, drought.ErrInvalidQuery)
			}
			v = name
		}
		st.Region = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"weekMin", &st.Weeks.Min},
		{"weekMax", &st.Weeks.Max},
		{"yearMin", &st.Years.Min},
		{"yearMax", &st.Years.Max},
	}
	for _, it := range ints {
		v := q.Get(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, fmt.Errorf("%s: %v: %w", it.key, err, drought.ErrInvalidQuery)
		}
		*it.dst = n
	}
	if v := q.Get("sort"); v != "" {
		st.Ascending = strings.Contains(v, "asc")
		st.Descending = strings.Contains(v, "desc")
	}
	return st, nil
}

func (s *Server) handleDroughtQuery(w http.ResponseWriter, r *http.Request) {
	if !s.droughtEnabled(w) {
		return
	}
	st, err := s.stateFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, warnings, err := st.Query()
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := drought.Filter(s.records, q)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Debug("drought query",
		zap.Int("area", q.Area),
		zap.String("index", string(q.Index)),
		zap.Stringer("sort", q.Sort),
		zap.Int("rows", len(rows)))
	writeJSON(w, http.StatusOK, queryResponse{State: st, Rows: rows, Warnings: warnings})
}

func (s *Server) handleDroughtWeekly(w http.ResponseWriter, r *http.Request) {
	if !s.droughtEnabled(w) {
		return
	}
	st, err := s.stateFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, _, err := st.Query()
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := drought.Filter(s.records, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drought.WeeklyMean(rows))
}

func (s *Server) handleDroughtCompare(w http.ResponseWriter, r *http.Request) {
	if !s.droughtEnabled(w) {
		return
	}
	st, err := s.stateFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, _, err := st.Query()
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := drought.CompareRegions(s.records, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDroughtState(w http.ResponseWriter, r *http.Request) {
	if !s.droughtEnabled(w) {
		return
	}
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		s.mu.RLock()
		st := s.dashboard
		s.mu.RUnlock()
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			writeError(w, fmt.Errorf("decode state: %v: %w", err, drought.ErrInvalidQuery))
			return
		}
		if _, _, err := st.Query(); err != nil {
			writeError(w, err)
			return
		}
		s.mu.Lock()
		s.dashboard = st
		s.mu.Unlock()
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleDroughtReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.droughtEnabled(w) {
		return
	}
	s.mu.Lock()
	s.dashboard.Reset()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) stateResponse() stateResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateResponse{
		State:   s.dashboard,
		Years:   s.years,
		Indexes: drought.Indexes(),
		Regions: drought.Regions(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers 400 for rejected input and 500 otherwise.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, wave.ErrInvalidInput) || errors.Is(err, drought.ErrInvalidQuery) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
