package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dyluth/encoding-music/internal/config"
	"github.com/dyluth/encoding-music/internal/soundmap"
	"go.uber.org/zap"
)

const filteredFilename = "filtered_musical_events.csv"

// soundMapPage is the data behind templates/soundmap.html.
type soundMapPage struct {
	Config   config.SoundMapConfig
	Controls soundmap.Controls
	State    soundmap.State
	View     *soundmap.View
	Query    string
	Feature  *soundmap.Feature
	Click    *soundmap.LatLng
	Error    string
}

// FeatureURL returns the feature chart URL for the clicked position.
func (p soundMapPage) FeatureURL() template.URL {
	q, _ := url.ParseQuery(p.Query)
	q.Set("lat", strconv.FormatFloat(p.Click.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(p.Click.Lng, 'f', -1, 64))
	return template.URL("/soundmap/feature.svg?" + q.Encode())
}

// DownloadURL returns the CSV export URL for the current filters.
func (p soundMapPage) DownloadURL() template.URL {
	return template.URL("/soundmap/filtered.csv?" + p.Query)
}

// viewFor parses the request's filter state and derives the view.
func (s *Server) viewFor(r *http.Request) (*soundmap.Survey, *soundmap.View, error) {
	survey, err := s.currentSurvey()
	if err != nil {
		return nil, nil, &surveyUnavailableError{err: err}
	}
	st, err := soundmap.ParseState(r.URL.Query(), survey.Controls())
	if err != nil {
		return survey, nil, err
	}
	v, err := survey.View(st)
	if err != nil {
		return survey, nil, err
	}
	return survey, v, nil
}

type surveyUnavailableError struct{ err error }

func (e *surveyUnavailableError) Error() string { return "survey unavailable: " + e.err.Error() }
func (e *surveyUnavailableError) Unwrap() error { return e.err }

// statusFor maps sound map errors to HTTP status codes.
func statusFor(err error) int {
	var unavailable *surveyUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	case errors.Is(err, soundmap.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, soundmap.ErrNoSelection):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSoundMap(w http.ResponseWriter, r *http.Request) {
	survey, v, err := s.viewFor(r)
	if survey == nil {
		s.render(w, statusFor(err), "soundmap.html", soundMapPage{Config: s.cfg.SoundMap, Error: err.Error()})
		return
	}

	page := soundMapPage{
		Config:   survey.Config(),
		Controls: survey.Controls(),
	}
	if err != nil {
		page.Error = err.Error()
		s.render(w, statusFor(err), "soundmap.html", page)
		return
	}

	page.State = v.State
	page.View = v
	page.Query = v.State.Query(page.Controls).Encode()
	if c := v.State.Click; c != nil {
		page.Click = c
		if f, err := v.Feature(c.Lat, c.Lng); err == nil {
			page.Feature = f
		} else {
			page.Error = err.Error()
		}
	}
	s.render(w, http.StatusOK, "soundmap.html", page)
}

func (s *Server) handleSoundMapView(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.viewFor(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) feature(r *http.Request) (*soundmap.Feature, error) {
	_, v, err := s.viewFor(r)
	if err != nil {
		return nil, err
	}
	if v.State.Click == nil {
		return nil, fmt.Errorf("%w: lat and lng are required", soundmap.ErrInvalidState)
	}
	return v.Feature(v.State.Click.Lat, v.State.Click.Lng)
}

func (s *Server) handleFeatureJSON(w http.ResponseWriter, r *http.Request) {
	f, err := s.feature(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Title string `json:"title"`
		*soundmap.Feature
	}{Title: f.Title(), Feature: f})
}

func (s *Server) handleFeatureSVG(w http.ResponseWriter, r *http.Request) {
	f, err := s.feature(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := f.Chart(&buf); err != nil {
		s.logger.Warn("feature chart failed", zap.String("sound", f.Sound), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	buf.WriteTo(w)
}

func (s *Server) handleFilteredCSV(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.viewFor(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := v.Filtered.WriteCSV(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filteredFilename)
	buf.WriteTo(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ReloadSurvey(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	survey, _ := s.currentSurvey()
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "rows": survey.Table.Len()})
}
