// Package api exposes the strategy engines over HTTP for long-running deployments.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joripage/futures-bot/pkg/journal"
	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/strategy/grid"
	"github.com/joripage/futures-bot/pkg/strategy/twap"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	grids  *grid.Engine
	twaps  *twap.Engine
	events *journal.MemorySink // nil when the memory journal is disabled
	logger logging.ILogger
	router *mux.Router
}

func NewServer(grids *grid.Engine, twaps *twap.Engine, events *journal.MemorySink, logger logging.ILogger) *Server {
	s := &Server{
		grids:  grids,
		twaps:  twaps,
		events: events,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/strategies", s.handleListStrategies).Methods("GET")

	// Grid endpoints
	api.HandleFunc("/grids", s.handleCreateGrid).Methods("POST")
	api.HandleFunc("/grids/{id}", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/grids/{id}/deploy", s.handleDeployGrid).Methods("POST")
	api.HandleFunc("/grids/{id}/rebalance", s.handleRebalanceGrid).Methods("POST")
	api.HandleFunc("/grids/{id}/stop", s.handleStopGrid).Methods("POST")

	// TWAP endpoints
	api.HandleFunc("/twaps", s.handleStartTWAP).Methods("POST")
	api.HandleFunc("/twaps/{id}", s.handleGetTWAP).Methods("GET")
	api.HandleFunc("/twaps/{id}/stop", s.handleStopTWAP).Methods("POST")

	api.HandleFunc("/events", s.handleListEvents).Methods("GET")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS handling for the given origins.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string, allowedOrigins []string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(allowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "api server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{Error: error, Message: message})
}

// respondErr maps the error taxonomy onto HTTP statuses.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr *model.ValidationError
		nerr *model.NotFoundError
		aerr *model.APIError
	)
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error(), Problems: verr.Problems})
	case errors.As(err, &nerr):
		respondError(w, http.StatusNotFound, nerr.Kind+" not found", err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid state", err.Error())
	case errors.As(err, &aerr):
		s.logger.LogError(r.Context(), err, op)
		respondError(w, http.StatusBadGateway, "exchange error", err.Error())
	default:
		s.logger.LogError(r.Context(), err, op)
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.NewValidationError("Invalid request body: " + err.Error())
	}
	return nil
}
