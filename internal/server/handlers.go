package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/calostack/pkg/buildinfo"
	"github.com/matzehuels/calostack/pkg/detector"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/pipeline"
	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/stack"
	"github.com/matzehuels/calostack/pkg/store"
)

// contentTypes maps artifact formats to media types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatDOT:  "text/vnd.graphviz",
	pipeline.FormatJSON: "application/json",
}

type healthResponse struct {
	Status  string         `json:"status"`
	Version buildinfo.Info `json:"version"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Get()})
}

func (s *Server) codesHandler(w http.ResponseWriter, _ *http.Request) {
	tables := make(map[string][]stack.CodeInfo)
	for _, typ := range detector.Types() {
		if t, ok := detector.CodeTable(typ); ok {
			tables[typ] = t.Describe()
		}
	}
	writeJSON(w, http.StatusOK, tables)
}

// createGeometryHandler builds the TOML description in the request body.
// Query parameters: detectors (comma separated), permissive, refresh.
func (s *Server) createGeometryHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:     errorDetail{Code: errors.ErrCodeInvalidInput, Message: "description exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes"},
				RequestID: RequestID(r.Context()),
			})
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}

	q := r.URL.Query()
	opts := pipeline.Options{
		Description: string(body),
		Detectors:   splitList(q.Get("detectors")),
	}
	if opts.Permissive, err = boolParam(q.Get("permissive")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Refresh, err = boolParam(q.Get("refresh")); err != nil {
		s.writeError(w, r, err)
		return
	}

	g, hit, err := s.runner.BuildWithCacheInfo(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := report.Marshal(g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/geometries/"+g.ID)
	w.Header().Set("X-Cache", cacheStatus(hit))
	writeRaw(w, http.StatusCreated, "application/json", data)
}

type listResponse struct {
	Geometries []store.Summary `json:"geometries"`
}

func (s *Server) listGeometriesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{DescriptionHash: q.Get("description_hash")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	summaries, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, listResponse{Geometries: summaries})
}

func (s *Server) getGeometryHandler(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := report.Marshal(g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, "application/json", data)
}

func (s *Server) deleteGeometryHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// artifactHandler renders one artifact of a stored report.
// Query parameters: view, detector, labels, elements, detailed, scale.
func (s *Server) artifactHandler(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	format := chi.URLParam(r, "format")
	opts := pipeline.Options{
		Formats:  []string{format},
		View:     q.Get("view"),
		Detector: q.Get("detector"),
	}
	for name, dst := range map[string]*bool{"labels": &opts.Labels, "elements": &opts.Elements, "detailed": &opts.Detailed} {
		if *dst, err = boolParam(q.Get(name)); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if v := q.Get("scale"); v != "" {
		if opts.Scale, err = strconv.ParseFloat(v, 64); err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v))
			return
		}
	}

	artifacts, hit, err := s.runner.RenderWithCacheInfo(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(artifacts) != 1 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput,
			"report has %d detectors, choose one with ?detector=", len(g.Detectors)))
		return
	}
	for _, data := range artifacts {
		w.Header().Set("X-Cache", cacheStatus(hit))
		writeRaw(w, http.StatusOK, contentTypes[format], data)
	}
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean %q", v)
	}
	return b, nil
}
