package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/logging"
	"shelfmark/internal/search"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Server.APIToken),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.protect(srv.handleStatus))
	mux.HandleFunc("/api/search", srv.protect(srv.handleSearch))
	mux.HandleFunc("/api/requests", srv.protect(srv.handleRequests))
	mux.HandleFunc("/api/requests/", srv.protect(srv.handleRequestItem))
	mux.HandleFunc("/api/books/", srv.protect(srv.handleBookItem))
	mux.HandleFunc("/api/cache", srv.protect(srv.handleCache))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// protect wraps a handler with bearer auth and request correlation.
func (s *apiServer) protect(next http.HandlerFunc) http.HandlerFunc {
	withAuth := authMiddleware(s.token, next)
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		s.log().Debug("api request",
			logging.String(logging.FieldRequestID, requestID),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
		withAuth(w, r)
	}
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type searchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := s.daemon.searcher.Resolve(r.Context(), query, search.Options{Limit: limit})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalid) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}

type requestPayload struct {
	BookID   string `json:"book_id"`
	Username string `json:"username"`
}

type wishlistResponse struct {
	Entries []catalog.WishlistEntry `json:"entries"`
	Counts  catalog.WishlistCounts  `json:"counts"`
}

func (s *apiServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		username := strings.TrimSpace(r.URL.Query().Get("username"))
		entries, err := s.daemon.store.Wishlist(r.Context(), username)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts, err := s.daemon.store.WishlistCounts(r.Context(), username)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, wishlistResponse{Entries: entries, Counts: counts})
	case http.MethodPost:
		var payload requestPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err := s.daemon.AddRequest(r.Context(), payload.BookID, payload.Username)
		switch {
		case err == nil:
			s.writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
		case errors.Is(err, catalog.ErrInvalid):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, catalog.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "book not found")
		case errors.Is(err, catalog.ErrAlreadyRequested):
			s.writeError(w, http.StatusConflict, "already requested")
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleRequestItem(w http.ResponseWriter, r *http.Request) {
	bookID := strings.TrimPrefix(r.URL.Path, "/api/requests/")
	if bookID == "" || strings.Contains(bookID, "/") {
		s.writeError(w, http.StatusNotFound, "request not found")
		return
	}
	switch r.Method {
	case http.MethodDelete:
		username := strings.TrimSpace(r.URL.Query().Get("username"))
		err := s.daemon.store.RemoveRequest(r.Context(), bookID, username)
		switch {
		case err == nil:
			s.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		case errors.Is(err, catalog.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "request not found")
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type promoteResponse struct {
	Book     *catalog.Book `json:"book"`
	Promoted bool          `json:"promoted"`
}

func (s *apiServer) handleBookItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/books/")
	bookID, action, found := strings.Cut(rest, "/")
	if !found || bookID == "" || action != "promote" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	book, err := s.daemon.Promote(r.Context(), bookID)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, promoteResponse{Book: book, Promoted: !book.Synthetic})
	case errors.Is(err, catalog.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "book not found")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type cacheFlushResponse struct {
	Flushed         bool  `json:"flushed"`
	PersistedPurged int64 `json:"persisted_purged"`
}

func (s *apiServer) handleCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.daemon.Caches())
	case http.MethodDelete:
		purged, err := s.daemon.FlushCaches(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, cacheFlushResponse{Flushed: true, PersistedPurged: purged})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
