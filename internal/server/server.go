package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/injoyai/logs"
	"github.com/pkg/errors"

	"github.com/itzana/itzanago/internal/service"
	"github.com/itzana/itzanago/models"
	"github.com/itzana/itzanago/pkg/app"
)

// EngineSource hands out the engine current at the start of a request.
type EngineSource interface {
	Engine() *app.Engine
}

type Server struct {
	engines EngineSource
	router  *mux.Router
}

func New(engines EngineSource) *Server {
	s := &Server{engines: engines, router: mux.NewRouter()}
	s.router.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)
	s.router.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Use(logRequests)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("[HTTP] listening on %s\n", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logs.Infof("[HTTP] shutting down\n")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	eng := s.engines.Engine()

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: service.ErrEmptyQuestion.Error()})
		return
	}

	resp, err := eng.Asker.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, eng, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	eng := s.engines.Engine()
	res, err := eng.Reloader.Reload(r.Context())
	if err != nil {
		writeError(w, eng, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	eng := s.engines.Engine()
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Version: eng.Version})
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func writeError(w http.ResponseWriter, eng *app.Engine, err error) {
	if _, ok := err.(stackTracer); !ok {
		err = errors.WithStack(err)
	}
	logs.Errf("[HTTP] %+v\n", err)
	body := models.ErrorResponse{Error: err.Error()}
	if eng.Config.ErrorTraceback {
		body.Traceback = fmt.Sprintf("%+v", err)
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Errf("[HTTP] encode response: %v\n", err)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logs.Debugf("[HTTP] %s %s in %s\n", r.Method, r.URL.Path, time.Since(start))
	})
}
