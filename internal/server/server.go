// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/config"
	"github.com/jeranaias/mdsplit/internal/diagram"
	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/export"
	"github.com/jeranaias/mdsplit/internal/logging"
	"github.com/jeranaias/mdsplit/internal/render"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultHost keeps the preview on the loopback interface.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the default port for the preview server.
	DefaultPort = 8790

	// MaxRequestBodySize is the default request body cap (4MB).
	MaxRequestBodySize = 4 * 1024 * 1024

	// LiveReloadInterval is how often the page polls for changes.
	LiveReloadInterval = time.Second
)

// Version is reported by /health. The CLI overrides it at startup.
var Version = "dev"

// liveScript is the element the preview page loads its reload script with.
const liveScript = `<script src="/live.js"></script>`

// liveJS reloads the page when the preview stamp changes.
var liveJS = fmt.Sprintf(`(function () {
  var last = null;
  function poll() {
    fetch("/api/stamp", {cache: "no-store"})
      .then(function (r) { return r.json(); })
      .then(function (s) {
        if (last !== null && s.stamp !== last) { location.reload(); return; }
        last = s.stamp;
      })
      .catch(function () {})
      .finally(function () { setTimeout(poll, %d); });
  }
  poll();
})();
`, LiveReloadInterval.Milliseconds())

// ============================================================================
// SERVER
// ============================================================================

// Server is the live preview HTTP server for one document.
type Server struct {
	host   string
	port   int
	router *http.ServeMux
	server *http.Server

	doc      *document.Document
	renderer *render.Renderer
	diagrams *diagram.Set
	export   *export.Options

	limiter *RateLimiter
	maxBody int64

	mu sync.RWMutex
	// syncMu orders diagram syncs so the last one sees the newest text.
	syncMu sync.Mutex
}

// NewServer creates a Server previewing doc. A nil renderer gets a default
// one; a nil diagram set leaves diagrams as source.
func NewServer(doc *document.Document, r *render.Renderer, diagrams *diagram.Set) *Server {
	if r == nil {
		r = render.New()
	}
	s := &Server{
		host:     DefaultHost,
		port:     DefaultPort,
		router:   http.NewServeMux(),
		doc:      doc,
		renderer: r,
		diagrams: diagrams,
		export:   export.DefaultOptions(),
		maxBody:  MaxRequestBodySize,
	}

	s.setupRoutes()
	return s
}

// WithConfig applies the server section of cfg and sizes the body limit
// from the editor's maximum file size.
func (s *Server) WithConfig(cfg *config.Config) *Server {
	if cfg == nil {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Server.Host != "" {
		s.host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		s.port = cfg.Server.Port
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit, cfg.Server.Burst)
	}
	if cfg.Editor.MaxFileSizeKB > 0 {
		// JSON escaping can double the text size.
		s.maxBody = cfg.Editor.MaxFileSizeKB * 1024 * 2
	}
	return s
}

// WithPort overrides the listen port.
func (s *Server) WithPort(port int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if port != 0 {
		s.port = port
	}
	return s
}

// WithExportOptions sets the options used by the page and /export.
func (s *Server) WithExportOptions(opts *export.Options) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts != nil {
		s.export = opts
	}
	return s
}

// WithRateLimiter sets a custom rate limiter.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rl
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Preview page
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.HandleFunc("GET /live.js", s.handleLiveJS)
	s.router.HandleFunc("GET /api/stamp", s.handleStamp)

	// Document API
	s.router.HandleFunc("GET /api/document", s.handleGetDocument)
	s.router.HandleFunc("PUT /api/document", s.handlePutDocument)
	s.router.HandleFunc("POST /api/modes", s.handleModes)
	s.router.HandleFunc("POST /api/render", s.handleRender)

	// Diagrams
	s.router.HandleFunc("GET /api/diagrams", s.handleDiagrams)
	s.router.HandleFunc("GET /api/diagrams/{index}", s.handleDiagram)

	// Downloads
	s.router.HandleFunc("GET /export/{format}", s.handleExport)

	// Health check
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	if s.limiter == nil {
		s.limiter = DefaultRateLimiter()
	}
	limiter := s.limiter
	maxBody := s.maxBody
	s.mu.Unlock()

	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(logging.Get()),
		RateLimitMiddleware(limiter),
		BodyLimitMiddleware(maxBody),
	)(s.router)
}

// ============================================================================
// DIAGRAMS
// ============================================================================

// syncDiagrams re-triggers the diagram set with the current blocks and
// returns the snapshot it used. Diagrams only render while preview mode is on.
func (s *Server) syncDiagrams() document.Snapshot {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	snap := s.doc.Snapshot()
	if s.diagrams != nil {
		s.diagrams.Update(s.renderer.Diagrams(snap.Body()), snap.Modes.PreviewMode)
	}
	return snap
}

// diagramMarkup returns the markup shown in place of diagram index.
func (s *Server) diagramMarkup(index int) (string, bool) {
	if s.diagrams == nil {
		return "", false
	}
	st, ok := s.diagrams.State(index)
	if !ok {
		return "", false
	}
	switch st.Status {
	case diagram.StatusRendered:
		return st.SVG, true
	case diagram.StatusFailed:
		return fmt.Sprintf(`<div class="diagram-error">%s</div>`, html.EscapeString(st.Message)), true
	default:
		return fmt.Sprintf(`<div class="diagram-status">%s</div>`, html.EscapeString(st.Message)), true
	}
}

// exportOptions returns a copy of the export options that inlines the
// current diagram states.
func (s *Server) exportOptions() *export.Options {
	s.mu.RLock()
	opts := *s.export
	s.mu.RUnlock()
	opts.Diagrams = s.diagramMarkup
	return &opts
}

// stamp changes whenever the page would render differently.
func (s *Server) stamp(snap document.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(snap.Revision, 10))
	if snap.Modes.PreviewMode {
		sb.WriteString("p")
	}
	if s.diagrams != nil {
		for _, st := range s.diagrams.States() {
			fmt.Fprintf(&sb, "-%d.%d", st.Generation, st.Status)
		}
	}
	return sb.String()
}

// ============================================================================
// PAGE HANDLERS
// ============================================================================

// handleIndex handles GET /.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.syncDiagrams()

	exporter := export.NewHTMLExporter(s.renderer, s.exportOptions())
	exporter.Script = liveScript
	exporter.Title = snap.Title()

	if !snap.Modes.PreviewMode {
		// Preview off: show a notice but keep polling so the page comes
		// alive when the mode is switched on.
		snap.Text = "*Preview is off.*\n"
	}

	page, err := exporter.Export(snap)
	if err != nil {
		logging.Get().Error("preview render failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", exporter.MimeType())
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// handleLiveJS handles GET /live.js.
func (s *Server) handleLiveJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	io.WriteString(w, liveJS)
}

// handleStamp handles GET /api/stamp.
func (s *Server) handleStamp(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"stamp": s.stamp(s.doc.Snapshot())})
}

// ============================================================================
// DOCUMENT HANDLERS
// ============================================================================

// DocumentResponse is the JSON view of the document.
type DocumentResponse struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	Path        string `json:"path,omitempty"`
	Revision    uint64 `json:"revision"`
	Dirty       bool   `json:"dirty"`
	EditMode    bool   `json:"edit_mode"`
	PreviewMode bool   `json:"preview_mode"`
}

// DocumentUpdate is the body of PUT /api/document.
type DocumentUpdate struct {
	Text string `json:"text"`
}

// ModesUpdate is the body of POST /api/modes. Omitted flags are unchanged.
type ModesUpdate struct {
	EditMode    *bool `json:"edit_mode,omitempty"`
	PreviewMode *bool `json:"preview_mode,omitempty"`
}

func (s *Server) documentResponse() DocumentResponse {
	snap := s.doc.Snapshot()
	return DocumentResponse{
		Title:       snap.Title(),
		Text:        snap.Text,
		Path:        snap.Path,
		Revision:    snap.Revision,
		Dirty:       s.doc.Dirty(),
		EditMode:    snap.Modes.EditMode,
		PreviewMode: snap.Modes.PreviewMode,
	}
}

// handleGetDocument handles GET /api/document.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.documentResponse())
}

// handlePutDocument handles PUT /api/document. Text can only be replaced
// while edit mode is on.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	if !s.doc.Modes().EditMode {
		s.writeError(w, http.StatusConflict, "edit mode is off")
		return
	}

	var req DocumentUpdate
	if !s.decodeJSON(w, r, &req) {
		return
	}

	s.doc.SetText(req.Text)
	s.syncDiagrams()
	s.writeJSON(w, http.StatusOK, s.documentResponse())
}

// handleModes handles POST /api/modes.
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	var req ModesUpdate
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.EditMode != nil {
		s.doc.SetEditMode(*req.EditMode)
	}
	if req.PreviewMode != nil {
		s.doc.SetPreviewMode(*req.PreviewMode)
	}

	s.syncDiagrams()
	s.writeJSON(w, http.StatusOK, s.documentResponse())
}

// handleRender handles POST /api/render. The body is Markdown; the response
// is the rendered HTML fragment.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeBodyError(w, err)
		return
	}

	fragment, err := s.renderer.Render(document.DecodeText(body))
	if err != nil {
		logging.Get().Error("render failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, fragment)
}

// ============================================================================
// DIAGRAM HANDLERS
// ============================================================================

// DiagramResponse is the JSON view of one diagram.
type DiagramResponse struct {
	Index int `json:"index"`
	diagram.State
}

// handleDiagrams handles GET /api/diagrams.
func (s *Server) handleDiagrams(w http.ResponseWriter, r *http.Request) {
	out := []DiagramResponse{}
	if s.diagrams != nil {
		for i, st := range s.diagrams.States() {
			out = append(out, DiagramResponse{Index: i, State: st})
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleDiagram handles GET /api/diagrams/{index}.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid diagram index")
		return
	}
	if s.diagrams == nil {
		s.writeError(w, http.StatusNotFound, "diagram not found")
		return
	}
	st, ok := s.diagrams.State(index)
	if !ok {
		s.writeError(w, http.StatusNotFound, "diagram not found")
		return
	}
	s.writeJSON(w, http.StatusOK, DiagramResponse{Index: index, State: st})
}

// ============================================================================
// EXPORT HANDLER
// ============================================================================

// handleExport handles GET /export/{format}.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.ForFormat(r.PathValue("format"), s.renderer, s.exportOptions())
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := s.doc.Snapshot()
	content, err := exporter.Export(snap)
	if err != nil {
		logging.Get().Error("export failed", zap.String("format", r.PathValue("format")), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	name := export.FileName(snap, exporter, time.Now())
	w.Header().Set("Content-Type", exporter.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Revision uint64 `json:"revision"`
	Diagrams int    `json:"diagrams"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:   "ok",
		Version:  Version,
		Revision: s.doc.Revision(),
	}
	if s.diagrams != nil {
		health.Diagrams = s.diagrams.Len()
	}
	s.writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops. A graceful
// Shutdown returns nil.
func (s *Server) Start() error {
	addr := s.Addr()
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	// Render diagrams before the first page load.
	s.syncDiagrams()

	logging.Get().Info("preview server started",
		zap.String("addr", addr),
		zap.String("version", Version),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("preview server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	limiter := s.limiter
	s.mu.RUnlock()

	if limiter != nil {
		limiter.Stop()
	}
	if srv == nil {
		return nil
	}

	logging.Get().Info("preview server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeJSON decodes the request body into v, writing an error response and
// returning false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeBodyError(w, err)
		return false
	}
	return true
}

// writeBodyError maps body read errors to a response.
func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    status,
		},
	})
}
