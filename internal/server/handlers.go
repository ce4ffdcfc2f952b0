package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/metrics"
	"github.com/abelbrown/emograph/internal/otel"
	"github.com/abelbrown/emograph/internal/palette"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", "status", status, "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.source.Index(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	dataType, name := chi.URLParam(r, "type"), chi.URLParam(r, "name")
	g, err := s.LoadDataset(r.Context(), dataType, name)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LoadResponse{
		DatasetRef: DatasetRef{Type: dataType, Name: name},
		Nodes:      len(g.Nodes),
		Frames:     len(g.Frames),
		Events:     g.EventCount(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.view(s.player.Snapshot()))
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	var req PlaybackRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid playback request: "+err.Error())
		return
	}
	if req.IntervalMS != nil {
		d := s.player.SetInterval(time.Duration(*req.IntervalMS) * time.Millisecond)
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindInterval, Comp: "server", Dur: d})
	}
	if req.Playing != nil {
		if *req.Playing {
			s.player.Play()
			s.events.Info(otel.KindPlay, "server", "")
		} else {
			s.player.Pause()
			s.events.Info(otel.KindPause, "server", "")
		}
		metrics.SetPlaying(*req.Playing)
	}
	s.writeJSON(w, http.StatusOK, s.view(s.player.Snapshot()))
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.player.Step()
	if !ok {
		s.writeError(w, http.StatusConflict, "no frames loaded")
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(snap))
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Params())
}

func (s *Server) handlePutParams(w http.ResponseWriter, r *http.Request) {
	params := s.Params()
	if err := decodeBody(w, r, &params); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid params: "+err.Error())
		return
	}
	params = params.Clamped()

	s.mu.Lock()
	s.params = params
	s.mu.Unlock()

	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindParams, Comp: "server",
		Extra: map[string]any{"charge": params.Charge, "link_strength": params.LinkStrengthBase, "normalize": params.Normalize}})
	s.writeJSON(w, http.StatusOK, params)
}

// Category is one legend entry.
type Category struct {
	Label   string  `json:"label"`
	English string  `json:"english"`
	Color   string  `json:"color"`
	Weight  float64 `json:"weight"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]Category, 0, len(palette.Categories))
	for _, label := range palette.Categories {
		out = append(out, Category{
			Label:   label,
			English: palette.English(label),
			Color:   palette.BaseColor(label).Hex(),
			Weight:  s.weights.Of(label),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// LinkEventResponse is the tooltip payload for one link.
type LinkEventResponse struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Link   *anim.Link     `json:"link,omitempty"`
	Event  *dataset.Event `json:"event,omitempty"`
}

func (s *Server) handleLinkEvent(w http.ResponseWriter, r *http.Request) {
	source, target := chi.URLParam(r, "source"), chi.URLParam(r, "target")
	ev := dataset.LatestEvent(source, target, s.player.Frames())
	if ev == nil {
		s.writeError(w, http.StatusNotFound, "no example for this branch")
		return
	}
	resp := LinkEventResponse{Source: source, Target: target, Event: ev}
	for _, l := range s.player.Snapshot().Links {
		if l.Source == source && l.Target == target {
			resp.Link = &l
			break
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// serviceError maps source errors to HTTP statuses.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dataset.ErrSuperseded):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}
