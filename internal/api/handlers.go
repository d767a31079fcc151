package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/routethat/playsim/internal/playbook"
	"github.com/routethat/playsim/internal/session"
	"github.com/routethat/playsim/internal/worker"
	"github.com/routethat/playsim/pkg/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
	defaultResults = 20
)

// handleHealth returns the health status of the API
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "playsim",
		"commands":  s.deps.Dispatcher.Commands(),
		"watchers":  s.hub.count(),
	})
}

func (s *Server) handleBuiltin(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, playbook.Builtin())
}

func (s *Server) handleListPlays(w http.ResponseWriter, r *http.Request) {
	plays, err := s.dispatch(r.Context(), worker.CmdPlaysList, nil)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, plays)
}

func (s *Server) handleSavePlay(w http.ResponseWriter, r *http.Request) {
	var play core.SavedPlay
	if err := decodeBody(w, r, &play); err != nil {
		s.respondError(w, err)
		return
	}
	s.savePlay(w, r, play)
}

// handlePutPlay upserts the route data in the body under the name in the path.
func (s *Server) handlePutPlay(w http.ResponseWriter, r *http.Request) {
	name, err := playName(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	var routes core.RouteSpec
	if err := decodeBody(w, r, &routes); err != nil {
		s.respondError(w, err)
		return
	}
	s.savePlay(w, r, core.SavedPlay{Name: name, Routes: routes})
}

func (s *Server) savePlay(w http.ResponseWriter, r *http.Request, play core.SavedPlay) {
	saved, err := s.dispatch(r.Context(), worker.CmdPlaysSave, play)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePlay(w http.ResponseWriter, r *http.Request) {
	name, err := playName(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if _, err := s.dispatch(r.Context(), worker.CmdPlaysDelete, worker.DeleteRequest{Name: name}); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportPlays accepts a multipart upload of a JSON array of plays.
func (s *Server) handleImportPlays(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", worker.ErrInvalidRequest, err))
		return
	}
	if s.deps.Secret != "" && r.FormValue("secret") != s.deps.Secret {
		s.respondJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   http.StatusText(http.StatusUnauthorized),
			Message: "invalid secret",
			Code:    http.StatusUnauthorized,
		})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", worker.ErrInvalidRequest, err))
		return
	}
	defer file.Close()

	var plays []core.SavedPlay
	if err := json.NewDecoder(file).Decode(&plays); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", worker.ErrInvalidRequest, err))
		return
	}

	for i, p := range plays {
		if _, err := s.dispatch(r.Context(), worker.CmdPlaysSave, p); err != nil {
			s.respondError(w, fmt.Errorf("play %d (%s): %w", i, p.Name, err))
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"imported": len(plays)})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req worker.SimulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	out, err := s.dispatch(r.Context(), worker.CmdSimulate, req)
	resp, _ := out.(*worker.SimulateResponse)
	if err != nil && !(errors.Is(err, session.ErrTickLimit) && resp != nil) {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultResults)
	results, err := s.dispatch(r.Context(), worker.CmdResultsList, worker.ResultsRequest{Limit: limit})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}

func playName(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		return "", fmt.Errorf("%w: bad play name", worker.ErrInvalidRequest)
	}
	return name, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", worker.ErrInvalidRequest, err)
	}
	return nil
}
