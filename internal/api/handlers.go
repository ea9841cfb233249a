package api

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/signalsfoundry/comms-inspector/core"
	"github.com/signalsfoundry/comms-inspector/dataset"
	"github.com/signalsfoundry/comms-inspector/internal/charts"
	"github.com/signalsfoundry/comms-inspector/internal/filter"
	"github.com/signalsfoundry/comms-inspector/internal/logging"
	"github.com/signalsfoundry/comms-inspector/internal/session"
	"github.com/signalsfoundry/comms-inspector/model"
	"github.com/signalsfoundry/comms-inspector/timectrl"
)

const (
	defaultSubplotField  = "Event_Type"
	defaultCategoryField = "Sender_Name"
	defaultStackField    = "Receiver_Name"
	defaultLayoutSeed    = 1
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		requestLog(r, s.log).Error(r.Context(), "request error", logging.Err(err))
	}
	writeJSON(w, status, errorBody{
		Error:     err.Error(),
		Status:    status,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// sessionFor resolves the session named by the X-Session-ID header and
// echoes its id on the response.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if s.sessions == nil {
		return nil, ErrNoDataset
	}
	sess, err := s.sessions.Get(r.Header.Get(session.HeaderName))
	if err != nil {
		return nil, err
	}
	w.Header().Set(session.HeaderName, sess.ID)
	return sess, nil
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// frameTime reads the time query parameter as Unix seconds or an ISO-8601
// date-time. Without one it falls back to the session cursor; ok is false
// when the filtered view has no timestamps at all.
func frameTime(r *http.Request, sess *session.Session) (ts float64, ok bool, err error) {
	raw := r.URL.Query().Get("time")
	if raw == "" {
		ts, ok = sess.Current()
		return ts, ok, nil
	}
	ts, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		if ts, err = dataset.ParseISODate(raw); err != nil {
			return 0, false, fmt.Errorf("%w: time %q", ErrInvalidRequest, raw)
		}
	}
	if _, found := slices.BinarySearch(sess.Timestamps(), ts); !found {
		return 0, false, fmt.Errorf("%w: timestamp %s", ErrNotFound, model.FormatNumber(ts))
	}
	sess.Seek(ts)
	return ts, true, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidRequest, name, raw)
	}
	return v, nil
}

func stringParam(r *http.Request, name, def string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return def
}

func modeParam(r *http.Request) (core.RenderMode, error) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		return "", nil
	}
	return core.ParseRenderMode(raw)
}

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Rows       int    `json:"rows"`
	Timestamps int    `json:"timestamps"`
	Sessions   int    `json:"sessions"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading", Version: s.version})
		return
	}
	data := s.sessions.Dataset()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Version:    s.version,
		Rows:       data.Len(),
		Timestamps: len(data.Timestamps()),
		Sessions:   s.sessions.Len(),
	})
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Fields())
}

func (s *Server) cesiumConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cesium)
}

func (s *Server) globeSurface(w http.ResponseWriter, r *http.Request) {
	s.surfaceOnce.Do(func() {
		s.surface, s.surfaceErr = core.BuildSurface(core.Resolution(s.render.Resolution), s.render.LandColor, s.render.OceanColor)
	})
	if s.surfaceErr != nil {
		s.fail(w, r, s.surfaceErr)
		return
	}
	writeJSON(w, http.StatusOK, s.surface)
}

type sessionResponse struct {
	ID string `json:"id"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.fail(w, r, ErrNoDataset)
		return
	}
	sess, err := s.sessions.Create()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set(session.HeaderName, sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.fail(w, r, ErrNoDataset)
		return
	}
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		s.fail(w, r, fmt.Errorf("%w: session %q", ErrNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type timestampsResponse struct {
	Timestamps []float64 `json:"timestamps"`
	Labels     []string  `json:"labels"`
	Current    *float64  `json:"current,omitempty"`
}

func (s *Server) timestamps(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts := sess.Timestamps()
	resp := timestampsResponse{Timestamps: ts, Labels: make([]string, len(ts))}
	for i, t := range ts {
		resp.Labels[i] = model.FormatClock(t)
	}
	if cur, ok := sess.Current(); ok {
		resp.Current = &cur
	}
	writeJSON(w, http.StatusOK, resp)
}

type filtersResponse struct {
	Selection  map[string][]string `json:"selection"`
	Options    map[string][]string `json:"options"`
	Rows       int                 `json:"rows"`
	Timestamps int                 `json:"timestamps"`
}

type filtersRequest struct {
	Selection map[string][]string `json:"selection" validate:"dive,keys,required,endkeys,dive,required"`
}

func filtersBody(sess *session.Session) filtersResponse {
	return filtersResponse{
		Selection:  sess.Selection().Map(),
		Options:    sess.FilterOptions(),
		Rows:       len(sess.View()),
		Timestamps: len(sess.Timestamps()),
	}
}

func (s *Server) getFilters(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filtersBody(sess))
}

func (s *Server) putFilters(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req filtersRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sel, err := filter.NewSelection(req.Selection)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess.SetSelection(r.Context(), sel)
	writeJSON(w, http.StatusOK, filtersBody(sess))
}

func (s *Server) deleteFilters(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess.ClearSelection(r.Context())
	writeJSON(w, http.StatusOK, filtersBody(sess))
}

type stepRequest struct {
	Direction string   `json:"direction" validate:"required,oneof=previous next"`
	Current   *float64 `json:"current"`
}

type stepResponse struct {
	Timestamp float64 `json:"timestamp"`
	Label     string  `json:"label"`
}

func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req stepRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	dir, err := timectrl.ParseDirection(req.Direction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var current float64
	if req.Current != nil {
		current = *req.Current
	} else {
		current, _ = sess.Current()
	}
	next, err := sess.Step(current, dir)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Timestamp: next, Label: model.FormatClock(next)})
}

type globeResponse struct {
	Frame  core.Frame       `json:"frame"`
	Layout core.SceneLayout `json:"layout"`
}

func (s *Server) globe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := modeParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts, _, err := frameTime(r, sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	frame := sess.Frame(r.Context(), ts, mode)
	writeJSON(w, http.StatusOK, globeResponse{
		Frame:  frame,
		Layout: core.Layout(sess.AxisRange(), frame.Camera, s.render.Classification),
	})
}

func (s *Server) geoJSON(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := modeParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts, _, err := frameTime(r, sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := sess.GeoJSON(r.Context(), ts, mode).MarshalJSON()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) buildBars(w http.ResponseWriter, r *http.Request) (session.BarsResult, error) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		return session.BarsResult{}, err
	}
	tied, err := boolParam(r, "tied", true)
	if err != nil {
		return session.BarsResult{}, err
	}
	ts, _, err := frameTime(r, sess)
	if err != nil {
		return session.BarsResult{}, err
	}
	return sess.Bars(ts, tied,
		stringParam(r, "subplot", defaultSubplotField),
		stringParam(r, "category", defaultCategoryField),
		stringParam(r, "stack", defaultStackField),
	)
}

func (s *Server) bars(w http.ResponseWriter, r *http.Request) {
	res, err := s.buildBars(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) barsPNG(w http.ResponseWriter, r *http.Request) {
	res, err := s.buildBars(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := charts.RenderPNG(&buf, res.Chart, s.render.PanelWidth, s.render.PanelHeight); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) network(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	layout, err := charts.ParseLayout(r.URL.Query().Get("layout"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	seed := uint64(defaultLayoutSeed)
	if raw := r.URL.Query().Get("seed"); raw != "" {
		if seed, err = strconv.ParseUint(raw, 10, 64); err != nil {
			s.fail(w, r, fmt.Errorf("%w: seed %q", ErrInvalidRequest, raw))
			return
		}
	}
	tied, err := boolParam(r, "tied", true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts, _, err := frameTime(r, sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Network(r.Context(), ts, tied, layout, seed))
}
