package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/kernel"
	"github.com/samcharles93/gnacore/internal/request"
)

func newTestEcho(opts Options) *echo.Echo {
	if opts.Table == nil {
		opts.Table = kernel.TableFor(backend.Mid)
	}
	server := NewServer(opts)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sampleBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(request.Sample())
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ResponseError {
	t.Helper()
	var body struct {
		Error ResponseError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestScoreLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Options{})
	rec := doJSON(t, e, http.MethodPost, "/v1/score", sampleBody(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("score status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var res request.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if diff := cmp.Diff(request.SampleOutput, res.Output); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if res.ID != "sample" || res.Kernel != "affine/w1B/i2B@mid" {
		t.Fatalf("unexpected result header %+v", res)
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/score/sample", "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/score/sample", "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	missing := doJSON(t, e, http.MethodGet, "/v1/score/sample", "")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", missing.Code)
	}
}

func TestScoreErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Options{})
	tests := []struct {
		name   string
		body   string
		status int
		typ    string
	}{
		{"malformed", `{"op":`, http.StatusBadRequest, "invalid_request_error"},
		{"unknown op", `{"op":"conv"}`, http.StatusBadRequest, "invalid_request_error"},
		{"short operand", `{"op":"affine","weight_width":1,"input_width":1,"rows":1,"columns":2,"weights":[1],"input":[1,2]}`,
			http.StatusBadRequest, "invalid_request_error"},
		{"gmm l1", `{"op":"gmm","gmm":{"mode":"l1","states":1,"mixtures":1,"elements":1}}`,
			http.StatusUnprocessableEntity, "unsupported_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/score", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status: got %d want %d body=%s", rec.Code, tt.status, rec.Body.String())
			}
			if got := decodeError(t, rec); got.Type != tt.typ || got.Message == "" {
				t.Fatalf("unexpected error body %+v", got)
			}
		})
	}
}

func TestScoreBatch(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Options{Workers: 2})
	sample := sampleBody(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/score/batch", "["+sample+","+strings.Replace(sample, `"sample"`, `"second"`, 1)+"]")
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var body BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(body.Data) != 2 || body.Data[0].ID != "sample" || body.Data[1].ID != "second" {
		t.Fatalf("unexpected batch ids %+v", body.Data)
	}
	if body.Tier != "mid" {
		t.Fatalf("tier = %q", body.Tier)
	}

	empty := doJSON(t, e, http.MethodPost, "/v1/score/batch", "[]")
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("empty batch: got %d", empty.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Options{RateLimit: 0.001, RateBurst: 1})
	body := sampleBody(t)
	if rec := doJSON(t, e, http.MethodPost, "/v1/score", body); rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}
	rec := doJSON(t, e, http.MethodPost, "/v1/score", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d want 429", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != "rate_limited" {
		t.Fatalf("unexpected error body %+v", got)
	}
	// Listing endpoints are not limited.
	if rec := doJSON(t, e, http.MethodGet, "/v1/kernels", ""); rec.Code != http.StatusOK {
		t.Fatalf("kernels: got %d", rec.Code)
	}
}

func TestKernelsAndCapabilities(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Options{Table: kernel.TableFor(backend.Wide), Caps: backend.Detect()})
	rec := doJSON(t, e, http.MethodGet, "/v1/kernels", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("kernels status: got %d", rec.Code)
	}
	var kernels struct {
		Tier string       `json:"tier"`
		Data []KernelInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &kernels); err != nil {
		t.Fatal(err)
	}
	if kernels.Tier != "wide" || len(kernels.Data) != len(kernel.TableFor(backend.Wide).Keys()) {
		t.Fatalf("unexpected listing: tier %q, %d entries", kernels.Tier, len(kernels.Data))
	}
	first := kernels.Data[0]
	if first.Op != "affine" || first.WeightWidth != 1 || first.InputWidth != 1 || first.ActiveList {
		t.Fatalf("unexpected first entry %+v", first)
	}

	caps := doJSON(t, e, http.MethodGet, "/v1/capabilities", "")
	if caps.Code != http.StatusOK {
		t.Fatalf("capabilities status: got %d", caps.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(caps.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["active"] != "wide" || body["lanes"] != float64(16) {
		t.Fatalf("unexpected capabilities %v", body)
	}
}

func TestResultStoreEvicts(t *testing.T) {
	t.Parallel()

	s := NewResultStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.Put(&request.Result{ID: id})
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("oldest result should be evicted")
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
	if !s.Delete("b") || s.Delete("b") {
		t.Fatal("delete should succeed once")
	}
	s.Put(&request.Result{ID: "d"})
	if _, ok := s.Get("c"); !ok {
		t.Fatal("c should survive after deleting b")
	}
}
