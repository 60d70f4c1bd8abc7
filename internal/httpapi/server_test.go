package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
)

type fakeBackend struct {
	lastSQL  string
	deadline bool
	err      error
}

func (f *fakeBackend) Query(ctx context.Context, sql string) (*catalog.Result, error) {
	f.lastSQL = sql
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.Result{
		Columns: []string{"name", "low_pc"},
		Rows:    [][]any{{"main", uint64(18446744073709551615)}},
	}, nil
}

func (f *fakeBackend) Tables(context.Context) ([]catalog.TableCount, error) {
	return []catalog.TableCount{{Name: "functions", Rows: 2}}, nil
}

func (f *fakeBackend) Info() catalog.Info {
	return catalog.Info{Path: "/bin/program", Fingerprint: "abc", Engine: "duckdb"}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	if cfg.Backend == nil {
		cfg.Backend = backend
	}
	cfg.Logger = zerolog.Nop()
	cfg.Version = "test"

	s, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, backend
}

func do(t *testing.T, method, url, body string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Backend: &fakeBackend{}, RateLimit: "lots"})
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantSQL     string
		wantStatus  int
	}{
		{"raw sql", "SELECT name FROM functions", "text/plain", "SELECT name FROM functions", http.StatusOK},
		{"json body", `{"sql": "SELECT 1"}`, "application/json", "SELECT 1", http.StatusOK},
		{"json without content type", `{"sql":"SELECT 2"}`, "", "SELECT 2", http.StatusOK},
		{"empty", "   ", "text/plain", "", http.StatusBadRequest},
		{"empty json", `{"sql": ""}`, "application/json", "", http.StatusBadRequest},
		{"bad json", `{"sql":`, "application/json", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts, backend := newTestServer(t, Config{})
			resp := do(t, http.MethodPost, ts.URL+"/query", tt.body, map[string]string{"Content-Type": tt.contentType})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var got map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, false, got["success"])
				assert.NotEmpty(t, got["error"])
				return
			}
			assert.Equal(t, tt.wantSQL, backend.lastSQL)
			assert.True(t, backend.deadline, "query runs under a timeout")
			assert.Equal(t, true, got["success"])
			assert.EqualValues(t, 1, got["row_count"])
			assert.Equal(t, []any{"name", "low_pc"}, got["columns"])
		})
	}
}

func TestQuery_BackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("Parser Error: syntax error")}
	_, ts, _ := newTestServer(t, Config{Backend: backend})

	resp := do(t, http.MethodPost, ts.URL+"/query", "SELEC", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "syntax error")
}

func TestQuery_MethodNotAllowed(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{})
	resp := do(t, http.MethodGet, ts.URL+"/query", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHelpAndHealth(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{})

	for _, path := range []string{"/", "/help"} {
		resp := do(t, http.MethodGet, ts.URL+path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "POST /query")
		assert.Contains(t, string(body), "struct_members")
	}

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	s, ts, _ := newTestServer(t, Config{})

	resp := do(t, http.MethodGet, ts.URL+"/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "running", st.Status)
	assert.Equal(t, "/bin/program", st.Binary)
	assert.Equal(t, "abc", st.Fingerprint)
	assert.Equal(t, "duckdb", st.Engine)
	assert.Equal(t, s.InstanceID(), st.InstanceID)
	assert.Equal(t, "test", st.Version)
	require.Len(t, st.Tables, 1)
	assert.EqualValues(t, 2, st.Tables[0].Rows)
}

func TestAuth(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{Token: "secret"})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
		{"case-insensitive scheme", "bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.header != "" {
				header["Authorization"] = tt.header
			}
			resp := do(t, http.MethodGet, ts.URL+"/status", "", header)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health bypasses auth")
}

func TestAudit_RequestID(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{})

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	id := "0b7a3c1e-6f0e-4d35-9a61-1d7ad3c0f001"
	resp = do(t, http.MethodGet, ts.URL+"/health", "", map[string]string{RequestIDHeader: id})
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))

	resp = do(t, http.MethodGet, ts.URL+"/health", "", map[string]string{RequestIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{RateLimit: "2/minute"})

	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodGet, ts.URL+"/status", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := do(t, http.MethodGet, ts.URL+"/status", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	resp = do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health is not rate limited")
}

func TestShutdown(t *testing.T) {
	s, ts, _ := newTestServer(t, Config{})

	resp := do(t, http.MethodPost, ts.URL+"/shutdown", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-s.ShutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("shutdown not signalled")
	}

	// A second request does not panic on the closed channel.
	resp = do(t, http.MethodPost, ts.URL+"/shutdown", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	s, err := New(Config{Host: "127.0.0.1", Port: 0, Backend: &fakeBackend{}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	client := NewClient(s.Addr(), "", 5*time.Second)
	st, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "running", st.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = client.Status(context.Background())
	assert.Error(t, err)
}
