package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/herdsman/internal/master"
	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

func discardLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// fakeMaster implements Master for testing.
type fakeMaster struct {
	mu        sync.Mutex
	snapshot  master.Snapshot
	records   []master.Record
	histErr   error
	reloadErr error
	reloads   []string
	lastLimit int
}

func (m *fakeMaster) Snapshot() master.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *fakeMaster) History(_ context.Context, limit int) ([]master.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.histErr != nil {
		return nil, m.histErr
	}
	if limit > 0 && limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *fakeMaster) Reload(trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads = append(m.reloads, trigger)
	if m.reloadErr != nil {
		return m.reloadErr
	}
	m.snapshot.Generation = "reloaded"
	return nil
}

func newTestRouter(t *testing.T, m *fakeMaster, logOut io.Writer) http.Handler {
	t.Helper()
	l := discardLogger(t)
	if logOut != nil {
		var err error
		if l, err = logger.New(logger.Config{Level: "debug", Format: "text", Output: logOut}); err != nil {
			t.Fatal(err)
		}
	}
	cfg := DefaultRouterConfig()
	cfg.Master = m
	cfg.Logger = l
	cfg.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "herdsman_build_info 1\n")
	})
	return NewRouter(cfg)
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return rec, resp
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, &fakeMaster{}, nil)

	rec, resp := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK || resp.Code != "OK" {
		t.Errorf("status = %d, code = %q", rec.Code, resp.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req-") {
		t.Errorf("X-Request-ID = %q", rec.Header().Get("X-Request-ID"))
	}
	if resp.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("body request_id = %q, header %q", resp.RequestID, rec.Header().Get("X-Request-ID"))
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, &fakeMaster{}, nil)

	rec, _ := do(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "herdsman_build_info") {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}

	cfg := DefaultRouterConfig()
	cfg.Master = &fakeMaster{}
	cfg.Logger = discardLogger(t)
	rec, _ = do(t, NewRouter(cfg), http.MethodGet, "/metrics")
	if rec.Code != http.StatusNotFound {
		t.Errorf("without metrics handler status = %d, want 404", rec.Code)
	}
}

func TestRouter_Status(t *testing.T) {
	m := &fakeMaster{snapshot: master.Snapshot{Generation: "01ABC", WorkerProcesses: 4, Listeners: []string{"0.0.0.0:8080"}}}
	h := newTestRouter(t, m, nil)

	rec, resp := do(t, h, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var status StatusResponse
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Settings.Generation != "01ABC" || status.Settings.WorkerProcesses != 4 {
		t.Errorf("settings = %+v", status.Settings)
	}
}

func TestRouter_History(t *testing.T) {
	m := &fakeMaster{records: []master.Record{{Generation: "b"}, {Generation: "a"}}}
	h := newTestRouter(t, m, nil)

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantLimit int
		wantLen   int
	}{
		{"default limit", "/history", http.StatusOK, 100, 2},
		{"explicit limit", "/history?limit=1", http.StatusOK, 1, 1},
		{"limit capped", "/history?limit=500", http.StatusOK, 100, 2},
		{"bad limit", "/history?limit=x", http.StatusBadRequest, 0, 0},
		{"zero limit", "/history?limit=0", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.lastLimit = 0
			rec, resp := do(t, h, http.MethodGet, tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				if rec.Header().Get("X-Error-Code") != CodeBadRequest {
					t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
				}
				return
			}
			if m.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", m.lastLimit, tt.wantLimit)
			}
			if items, _ := resp.Data.([]any); len(items) != tt.wantLen {
				t.Errorf("got %d records, want %d", len(items), tt.wantLen)
			}
		})
	}
}

func TestRouter_HistoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not kept", master.ErrNoHistory, http.StatusNotFound, CodeNoHistory},
		{"store failure", errors.New("disk gone"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeMaster{histErr: tt.err}, nil)
			rec, resp := do(t, h, http.MethodGet, "/history")
			if rec.Code != tt.wantCode || resp.Code != tt.wantErr {
				t.Errorf("status = %d code = %q, want %d %q", rec.Code, resp.Code, tt.wantCode, tt.wantErr)
			}
		})
	}
}

func TestRouter_Reload(t *testing.T) {
	var logs bytes.Buffer
	m := &fakeMaster{}
	h := newTestRouter(t, m, &logs)

	rec, resp := do(t, h, http.MethodPost, "/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(m.reloads) != 1 || m.reloads[0] != master.TriggerAPI {
		t.Errorf("reloads = %v, want [%s]", m.reloads, master.TriggerAPI)
	}
	if !strings.Contains(string(mustJSON(t, resp.Data)), `"generation":"reloaded"`) {
		t.Errorf("data = %s", mustJSON(t, resp.Data))
	}
	if !strings.Contains(logs.String(), "request completed") {
		t.Errorf("reload not audited:\n%s", logs.String())
	}

	rec, _ = do(t, h, http.MethodGet, "/reload")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /reload status = %d, want 405", rec.Code)
	}
}

func TestRouter_ReloadFailure(t *testing.T) {
	m := &fakeMaster{reloadErr: errors.New("herdsman.lua:1: invalid value for timeout")}
	h := newTestRouter(t, m, nil)

	rec, resp := do(t, h, http.MethodPost, "/reload")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if resp.Code != CodeReload || !strings.Contains(resp.Message, "invalid value for timeout") {
		t.Errorf("response = %+v", resp)
	}
}

func TestRouter_ReloadRateLimited(t *testing.T) {
	m := &fakeMaster{}
	cfg := DefaultRouterConfig()
	cfg.Master = m
	cfg.Logger = discardLogger(t)
	cfg.ReloadRate = 0.001
	cfg.ReloadBurst = 2
	h := NewRouter(cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := do(t, h, http.MethodPost, "/reload")
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
	if len(m.reloads) != 2 {
		t.Errorf("reloads = %d, want 2", len(m.reloads))
	}
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover(discardLogger(t)), RequestID())

	rec, resp := do(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusInternalServerError || resp.Code != CodeInternal {
		t.Errorf("status = %d code = %q", rec.Code, resp.Code)
	}
}

func TestRequestID_KeepsCallerID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "caller-1" || rec.Header().Get("X-Request-ID") != "caller-1" {
		t.Errorf("request id = %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
