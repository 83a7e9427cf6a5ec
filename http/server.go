package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/starcat"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ShutdownTimeout is the time given for outstanding requests to finish.
const ShutdownTimeout = 5 * time.Second

// Server serves the JSON query API over a starcat.QueryService.
type Server struct {
	ln     net.Listener
	server *http.Server
	router chi.Router

	// Addr is the bind address, e.g. "127.0.0.1:8080".
	Addr string

	QueryService starcat.QueryService
	Logger       *slog.Logger
}

// NewServer returns a new Server with its routes registered.
func NewServer() *Server {
	s := &Server{
		server: &http.Server{ReadHeaderTimeout: 10 * time.Second},
		router: chi.NewRouter(),
		Logger: slog.Default(),
	}
	s.server.Handler = s.router

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleRecords)
		r.Get("/records/{owner}/{name}", s.handleRecord)
		r.Get("/taxonomy", s.handleTaxonomy)
		r.Get("/summary", s.handleSummary)
	})
	return s
}

// Open binds Addr and begins serving in the background.
func (s *Server) Open() (err error) {
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go s.server.Serve(s.ln)
	return nil
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ServeHTTP routes a request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(begin),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type recordsResponse struct {
	Query   starcat.Query     `json:"query"`
	Total   int               `json:"total"`
	Records []*starcat.Record `json:"records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	sortKey, err := starcat.ParseSortKey(v.Get("sort"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view := starcat.View(v.Get("view"))
	if view == "" {
		view = starcat.ViewGrid
	} else if view != starcat.ViewGrid && view != starcat.ViewList {
		s.writeError(w, r, starcat.Errorf(starcat.EINVALID, "unknown view %q", view))
		return
	}

	q := starcat.Query{
		Text:     v.Get("q"),
		Tags:     v["tag"],
		Taxonomy: v["taxonomy"],
		Sort:     sortKey,
		View:     view,
	}
	records, err := s.QueryService.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordsResponse{Query: q, Total: len(records), Records: records})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")
	record, err := s.QueryService.FindRecord(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.QueryService.Taxonomy())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.QueryService.Summary())
}

// errorStatus maps application error codes to HTTP status codes.
var errorStatus = map[string]int{
	starcat.EINVALID:     http.StatusBadRequest,
	starcat.ENOTFOUND:    http.StatusNotFound,
	starcat.ECONFLICT:    http.StatusConflict,
	starcat.EUNAVAILABLE: http.StatusServiceUnavailable,
	starcat.EMALFORMED:   http.StatusBadGateway,
	starcat.EINTERNAL:    http.StatusInternalServerError,
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := starcat.ErrorCode(err)
	if code == starcat.EINTERNAL {
		s.Logger.Error("http error", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	status, ok := errorStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": starcat.ErrorMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
