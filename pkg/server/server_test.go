package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/lumenhq/sentinel/pkg/config"
	"github.com/lumenhq/sentinel/pkg/detect"
	"github.com/lumenhq/sentinel/pkg/limits"
	"github.com/lumenhq/sentinel/pkg/limits/storage"
	"github.com/lumenhq/sentinel/pkg/tokens"
)

type fakeDetector struct {
	results []detect.Detection
	err     error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte, contentType string) ([]detect.Detection, error) {
	return f.results, f.err
}

type fakeRegistry struct {
	records map[int64]*tokens.Record
	nextID  int64
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: make(map[int64]*tokens.Record), nextID: 1}
}

func (f *fakeRegistry) Issue(ctx context.Context, email string) (*tokens.Record, error) {
	rec := &tokens.Record{
		ID:        f.nextID,
		Email:     email,
		Token:     "sk_test",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	f.records[f.nextID] = rec
	f.nextID++
	return rec, nil
}

func (f *fakeRegistry) List(ctx context.Context) ([]*tokens.Record, error) {
	out := make([]*tokens.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRegistry) Toggle(ctx context.Context, id int64) (*tokens.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, tokens.ErrNotFound
	}
	rec.Active = !rec.Active
	return rec, nil
}

type serverEnv struct {
	handler  http.Handler
	server   *Server
	registry *fakeRegistry
	detector *fakeDetector
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *serverEnv {
	t.Helper()

	cfg := config.NewDefault()
	cfg.Admin.User = "admin"
	cfg.Admin.Password = "pw"
	cfg.Admin.SessionSecret = "testsecret"
	cfg.Limits.IPPerWindow = 1000
	if mutate != nil {
		mutate(cfg)
	}
	store := config.NewStore(cfg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	detector := &fakeDetector{}
	registry := newFakeRegistry()

	srv := NewServer(store, Dependencies{
		Limiter:  limits.NewLimiter(store, storage.NewMemoryBackend(), nil, nil, logger),
		Tokens:   registry,
		Detector: detector,
		NetdataProxy: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "proxied")
		}),
		Logger: logger,
	})

	return &serverEnv{handler: srv.Routes(), server: srv, registry: registry, detector: detector}
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "img.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (env *serverEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func (env *serverEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"admin"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status: got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func TestDetectReturnsResultList(t *testing.T) {
	env := newTestServer(t, nil)
	env.detector.results = []detect.Detection{
		{Label: "FACE_FEMALE", Confidence: 0.92, Box: [4]int{1, 2, 3, 4}},
	}

	body, contentType := multipartImage(t, "file", []byte("jpegbytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var results []detect.Detection
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Label != "FACE_FEMALE" {
		t.Errorf("results: %+v", results)
	}
}

func TestIsNudeBoolean(t *testing.T) {
	tests := []struct {
		name    string
		results []detect.Detection
		want    bool
	}{
		{"sensitive label", []detect.Detection{{Label: "FEMALE_BREAST_EXPOSED", Confidence: 0.9}}, true},
		{"benign labels", []detect.Detection{{Label: "FACE_FEMALE", Confidence: 0.9}, {Label: "FEET_COVERED", Confidence: 0.5}}, false},
		{"no detections", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestServer(t, nil)
			env.detector.results = tc.results

			body, contentType := multipartImage(t, "file", []byte("img"))
			req := httptest.NewRequest(http.MethodPost, "/api/isnude", body)
			req.Header.Set("Content-Type", contentType)
			rec := env.do(req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d", rec.Code)
			}
			var out map[string]bool
			json.NewDecoder(rec.Body).Decode(&out)
			if out["nude"] != tc.want {
				t.Errorf("nude: got %v want %v", out["nude"], tc.want)
			}
		})
	}
}

func TestDetectAcceptsBase64Field(t *testing.T) {
	env := newTestServer(t, nil)

	raw := base64.StdEncoding.EncodeToString([]byte("imagebytes"))
	for _, value := range []string{raw, "data:image/png;base64," + raw} {
		form := url.Values{"file_b64": {value}}
		req := httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := env.do(req)
		if rec.Code != http.StatusOK {
			t.Errorf("status for %q...: got %d, body %s", value[:12], rec.Code, rec.Body.String())
		}
	}
}

func TestDetectHonorsConfiguredImageLimit(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config) {
		cfg.Detector.MaxImageBytes = 16
	})

	body, contentType := multipartImage(t, "file", bytes.Repeat([]byte("x"), 32))
	req := httptest.NewRequest(http.MethodPost, "/api/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "File upload too large") {
		t.Errorf("body: %s", rec.Body.String())
	}

	body, contentType = multipartImage(t, "file", []byte("tiny"))
	req = httptest.NewRequest(http.MethodPost, "/api/detect", body)
	req.Header.Set("Content-Type", contentType)
	if rec := env.do(req); rec.Code != http.StatusOK {
		t.Errorf("under-limit upload: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDetectRejectsBadInput(t *testing.T) {
	env := newTestServer(t, nil)

	t.Run("missing input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/detect", nil)
		rec := env.do(req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status: got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Missing file upload or file_b64") {
			t.Errorf("body: %s", rec.Body.String())
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		form := url.Values{"file_b64": {"!!not-base64!!"}}
		req := httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := env.do(req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status: got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Invalid base64") {
			t.Errorf("body: %s", rec.Body.String())
		}
	})
}

func TestDetectBackendFailureIs502(t *testing.T) {
	env := newTestServer(t, nil)
	env.detector.err = errors.New("connection refused")

	body, contentType := multipartImage(t, "file", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/api/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("backend error leaked to client")
	}
}

func TestListLabels(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/list_labels", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var out map[string][]string
	json.NewDecoder(rec.Body).Decode(&out)
	if len(out["all_labels"]) == 0 || len(out["naughty_labels"]) == 0 {
		t.Errorf("labels payload: %v", out)
	}
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestRateLimitedRoute(t *testing.T) {
	env := newTestServer(t, func(cfg *config.Config) {
		cfg.Limits.IPPerWindow = 2
	})
	env.detector.results = nil

	send := func() int {
		body, contentType := multipartImage(t, "file", []byte("img"))
		req := httptest.NewRequest(http.MethodPost, "/api/isnude", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "203.0.113.9:4242"
		return env.do(req).Code
	}

	if send() != http.StatusOK || send() != http.StatusOK {
		t.Fatal("in-quota requests should pass")
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("over-quota status: got %d", got)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestServer(t, nil)
	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestServer(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/admin/tokens"},
		{http.MethodPost, "/admin/tokens"},
		{http.MethodPost, "/admin/tokens/1/toggle"},
		{http.MethodGet, "/netdata/"},
		{http.MethodGet, "/netdata/api/v1/data"},
	} {
		rec := env.do(httptest.NewRequest(route.method, route.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, want 401", route.method, route.path, rec.Code)
		}
	}
}

func TestTokenLifecycleOverHTTP(t *testing.T) {
	env := newTestServer(t, nil)
	cookie := env.login(t)

	withSession := func(req *http.Request) *http.Request {
		req.AddCookie(cookie)
		return req
	}

	// Create.
	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/tokens",
		strings.NewReader(`{"email":"user@example.com"}`)))
	rec := env.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var created tokens.Record
	json.NewDecoder(rec.Body).Decode(&created)
	if created.Email != "user@example.com" || !created.Active {
		t.Errorf("created record: %+v", created)
	}

	// List.
	rec = env.do(withSession(httptest.NewRequest(http.MethodGet, "/admin/tokens", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user@example.com") {
		t.Errorf("list body: %s", rec.Body.String())
	}

	// Toggle.
	rec = env.do(withSession(httptest.NewRequest(http.MethodPost, "/admin/tokens/1/toggle", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status: got %d", rec.Code)
	}
	var toggled tokens.Record
	json.NewDecoder(rec.Body).Decode(&toggled)
	if toggled.Active {
		t.Error("token should be disabled after toggle")
	}

	// Toggle missing.
	rec = env.do(withSession(httptest.NewRequest(http.MethodPost, "/admin/tokens/99/toggle", nil)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing toggle status: got %d", rec.Code)
	}
}

func TestProxyMountReachableWithSession(t *testing.T) {
	env := newTestServer(t, nil)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/netdata/api/v1/data", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if rec.Body.String() != "proxied" {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d", rec.Code)
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestHomePage(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "NSFW Detect") {
		t.Errorf("body: %s", rec.Body.String())
	}
}
