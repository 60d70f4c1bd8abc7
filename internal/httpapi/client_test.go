package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_BaseURL(t *testing.T) {
	tests := []struct{ addr, want string }{
		{"localhost:17199", "http://localhost:17199"},
		{"http://host:1/", "http://host:1"},
		{"https://host", "https://host"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewClient(tt.addr, "", time.Second).baseURL)
	}
}

func TestClient_Query(t *testing.T) {
	_, ts, backend := newTestServer(t, Config{Token: "secret"})

	client := NewClient(ts.URL, "secret", 5*time.Second)
	res, err := client.Query(context.Background(), "SELECT name, low_pc FROM functions")
	require.NoError(t, err)

	assert.Equal(t, "SELECT name, low_pc FROM functions", backend.lastSQL)
	assert.Equal(t, []string{"name", "low_pc"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "main", res.Rows[0][0])
	assert.Equal(t, json.Number("18446744073709551615"), res.Rows[0][1])
}

func TestClient_Errors(t *testing.T) {
	backend := &fakeBackend{err: errors.New("Catalog Error: table nope does not exist")}
	_, ts, _ := newTestServer(t, Config{Token: "secret", Backend: backend})

	_, err := NewClient(ts.URL, "wrong", time.Second).Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = NewClient(ts.URL, "secret", time.Second).Query(context.Background(), "SELECT * FROM nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table nope does not exist")
}

func TestClient_Shutdown(t *testing.T) {
	s, ts, _ := newTestServer(t, Config{})
	require.NoError(t, NewClient(ts.URL, "", time.Second).Shutdown(context.Background()))
	<-s.ShutdownRequested()
}

func TestClient_SendsRequestID(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{"status":"running"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "", time.Second).Status(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 36)
}
