package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/joripage/futures-bot/pkg/oms/model"
)

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StrategiesResponse{
		Grids: s.grids.List(),
		TWAPs: s.twaps.List(),
	})
}

func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	var req CreateGridRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondErr(w, r, "api.grid.create", err)
		return
	}

	g, err := s.grids.Create(r.Context(), req.params())
	if err != nil {
		s.respondErr(w, r, "api.grid.create", err)
		return
	}

	resp := CreateGridResponse{}
	if req.Deploy {
		// Deploy runs to completion even if the client goes away.
		report, err := s.grids.Deploy(context.WithoutCancel(r.Context()), g.ID)
		if err != nil {
			s.respondErr(w, r, "api.grid.deploy", err)
			return
		}
		resp.Deploy = &DeployResponse{DeployReport: report, Errors: errorMessages(report.Failures)}
	}
	resp.Grid = g.Snapshot()
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	snap, err := s.grids.Get(mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, r, "api.grid.get", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeployGrid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := s.grids.Deploy(context.WithoutCancel(r.Context()), id)
	if err != nil {
		s.respondErr(w, r, "api.grid.deploy", err)
		return
	}
	respondJSON(w, http.StatusOK, DeployResponse{DeployReport: report, Errors: errorMessages(report.Failures)})
}

func (s *Server) handleRebalanceGrid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := s.grids.Monitor(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, "api.grid.rebalance", err)
		return
	}
	respondJSON(w, http.StatusOK, MonitorResponse{MonitorReport: report, Errors: errorMessages(report.Failures)})
}

func (s *Server) handleStopGrid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := s.grids.Stop(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, "api.grid.stop", err)
		return
	}
	respondJSON(w, http.StatusOK, StopGridResponse{StopReport: report, Errors: errorMessages(report.Failures)})
}

func (s *Server) handleStartTWAP(w http.ResponseWriter, r *http.Request) {
	var req StartTWAPRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondErr(w, r, "api.twap.start", err)
		return
	}

	run, err := s.twaps.Start(r.Context(), req.params())
	if err != nil {
		s.respondErr(w, r, "api.twap.start", err)
		return
	}
	respondJSON(w, http.StatusAccepted, run.Snapshot())
}

func (s *Server) handleGetTWAP(w http.ResponseWriter, r *http.Request) {
	snap := s.twaps.Status(mux.Vars(r)["id"])
	if snap.Status == model.TWAPStatusNotFound {
		respondJSON(w, http.StatusNotFound, snap)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStopTWAP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	stopped, err := s.twaps.Stop(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, "api.twap.stop", err)
		return
	}
	respondJSON(w, http.StatusOK, StopTWAPResponse{ID: id, Stopped: stopped, Status: s.twaps.Status(id).Status})
}

// handleListEvents serves the in-memory journal. ?strategy= filters by strategy id,
// ?limit= keeps the newest N.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		respondError(w, http.StatusNotFound, "journal disabled", "the memory journal sink is not enabled")
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events := s.events.Recent(0)
	if id := q.Get("strategy"); id != "" {
		events = s.events.ByStrategy(id)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []model.OrderEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}
