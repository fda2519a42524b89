package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/observability"
	"github.com/matzehuels/calostack/pkg/pipeline"
	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/stack"
	"github.com/matzehuels/calostack/pkg/store"
)

const description = `
[[detector]]
name = "SplitCal"
type = "DD4hep_SplitCal"
id = 9
layer_codes = "1272"
box = { x = 30.0, y = 200.0, z = 400.0, material = "Air" }
widebar = { x = 10.0, y = 200.0, z = 10.0, material = "Scintillator", num_x = 3, sensitive = true }
passive_layer = { x = 30.0, y = 200.0, z = 20.0, material = "Lead" }
`

// memCache is a minimal in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func newTestServer(t *testing.T, maxBody int64) *Server {
	t.Helper()
	runner := pipeline.NewRunner(&memCache{data: map[string][]byte{}}, nil, nil)
	s, err := New(Config{Runner: runner, Store: store.NewMemory(), MaxBodyBytes: maxBody})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestNewRequiresRunnerAndStore(t *testing.T) {
	if _, err := New(Config{Store: store.NewMemory()}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing runner: %v", err)
	}
	if _, err := New(Config{Runner: pipeline.NewRunner(nil, nil, nil)}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing store: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Version.Version == "" {
		t.Errorf("health = %+v", body)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestCodes(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(s, http.MethodGet, "/v1/codes", "")
	var tables map[string][]stack.CodeInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &tables); err != nil {
		t.Fatal(err)
	}
	if len(tables["DD4hep_SplitCal"]) != 8 || len(tables["DD4hep_SandwichCalo"]) != 3 {
		t.Errorf("tables = %v", tables)
	}
	if _, ok := tables["DD4hep_SHiP_HPL_Fibre_Tracker"]; ok {
		t.Error("fibre tracker listed")
	}
}

func TestGeometryLifecycle(t *testing.T) {
	s := newTestServer(t, 0)

	rec := do(s, http.MethodPost, "/v1/geometries", description)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	g, err := report.Unmarshal(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if g.ID == "" || len(g.Detectors) != 1 || g.Detectors[0].Name != "SplitCal" {
		t.Fatalf("report = %+v", g)
	}
	location := rec.Header().Get("Location")
	if location != "/v1/geometries/"+g.ID {
		t.Errorf("Location = %q", location)
	}

	if rec := do(s, http.MethodPost, "/v1/geometries", description); rec.Header().Get("X-Cache") != "hit" {
		t.Errorf("second build X-Cache = %q", rec.Header().Get("X-Cache"))
	}

	rec = do(s, http.MethodGet, location, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got, _ := report.Unmarshal(rec.Body.Bytes()); got == nil || got.ID != g.ID {
		t.Error("get returned a different report")
	}

	rec = do(s, http.MethodGet, "/v1/geometries?limit=10", "")
	var list listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Geometries) != 1 || list.Geometries[0].ID != g.ID || list.Geometries[0].Detectors[0] != "SplitCal" {
		t.Errorf("list = %+v", list)
	}

	rec = do(s, http.MethodGet, location+"/artifacts/svg?labels=true", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg status = %d, type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Errorf("svg body = %.40q", rec.Body.String())
	}

	rec = do(s, http.MethodGet, location+"/artifacts/dot?view=hierarchy", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"world" -> "SplitCal"`) {
		t.Errorf("dot status = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := do(s, http.MethodDelete, location, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = do(s, http.MethodGet, location, "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error.Code != errors.ErrCodeNotFound {
		t.Errorf("get after delete: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		maxBody    int64
		wantStatus int
		wantCode   errors.Code
	}{
		{"empty body", "/v1/geometries", "", 0, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad toml", "/v1/geometries", "[[detector", 0, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"unknown code", "/v1/geometries", strings.Replace(description, `"1272"`, `"1292"`, 1), 0, http.StatusUnprocessableEntity, errors.ErrCodeUnknownLayerCode},
		{"unknown detector", "/v1/geometries?detectors=Other", description, 0, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad flag", "/v1/geometries?permissive=maybe", description, 0, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"too large", "/v1/geometries", description, 16, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.maxBody)
			rec := do(s, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Error.Code != tt.wantCode || body.RequestID == "" {
				t.Errorf("error body = %+v", body)
			}
		})
	}
}

func TestUnknownLayerCodeNamesDetector(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(s, http.MethodPost, "/v1/geometries", strings.Replace(description, `"1272"`, `"1292"`, 1))
	body := decodeError(t, rec)
	if body.Error.Detector != "SplitCal" || body.Error.Attribute != "layer_codes" {
		t.Errorf("error detail = %+v", body.Error)
	}
}

func TestArtifactErrors(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(s, http.MethodPost, "/v1/geometries", description)
	location := rec.Header().Get("Location")

	tests := []struct {
		target     string
		wantStatus int
	}{
		{location + "/artifacts/dot", http.StatusBadRequest},
		{location + "/artifacts/gif", http.StatusBadRequest},
		{location + "/artifacts/svg?detector=Other", http.StatusNotFound},
		{location + "/artifacts/svg?scale=big", http.StatusBadRequest},
		{"/v1/geometries/missing/artifacts/svg", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := do(s, http.MethodGet, tt.target, ""); rec.Code != tt.wantStatus {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.wantStatus)
		}
	}
}

func TestListInvalidLimit(t *testing.T) {
	s := newTestServer(t, 0)
	if rec := do(s, http.MethodGet, "/v1/geometries?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	rec := do(s, http.MethodGet, "/v1/geometries", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"geometries":[]`) {
		t.Errorf("empty list = %s", rec.Body.String())
	}
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	status []int
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, _, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.status = append(h.status, status)
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	s := newTestServer(t, 0)
	do(s, http.MethodGet, "/v1/geometries/abc", "")

	if len(hooks.routes) != 1 || hooks.routes[0] != "/v1/geometries/{id}" || hooks.status[0] != http.StatusNotFound {
		t.Errorf("hooks saw %v %v", hooks.routes, hooks.status)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeInvalidInput:        http.StatusBadRequest,
		errors.ErrCodeConfiguration:       http.StatusUnprocessableEntity,
		errors.ErrCodeGeometryOverflow:    http.StatusUnprocessableEntity,
		errors.ErrCodeDuplicateIdentifier: http.StatusUnprocessableEntity,
		errors.ErrCodeNotFound:            http.StatusNotFound,
		errors.ErrCodeUnsupported:         http.StatusNotImplemented,
		errors.ErrCodeTimeout:             http.StatusGatewayTimeout,
		errors.ErrCodeInternal:            http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
