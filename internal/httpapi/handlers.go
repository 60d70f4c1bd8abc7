package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
)

const maxQueryBytes = 1 << 20

// QueryRequest is the JSON form of a /query body.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// QueryResponse is returned by /query on success.
type QueryResponse struct {
	Success  bool     `json:"success"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// ErrorResponse is returned on failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Status is returned by /status.
type Status struct {
	Status      string               `json:"status"`
	Binary      string               `json:"binary"`
	Fingerprint string               `json:"fingerprint"`
	Engine      string               `json:"engine"`
	LoadedAt    time.Time            `json:"loaded_at"`
	Tables      []catalog.TableCount `json:"tables"`
	InstanceID  string               `json:"instance_id"`
	Version     string               `json:"version"`
	Uptime      string               `json:"uptime"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: err.Error()})
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	info := s.cfg.Backend.Info()

	fmt.Fprintf(&b, "dwarfsql HTTP API\n\n")
	fmt.Fprintf(&b, "Binary: %s\n\n", info.Path)
	b.WriteString("Endpoints:\n")
	b.WriteString("  GET  /health     liveness check\n")
	b.WriteString("  GET  /status     server and database status (JSON)\n")
	b.WriteString("  POST /query      run SQL; body is raw SQL or {\"sql\": \"...\"}\n")
	b.WriteString("  POST /shutdown   stop the server\n\n")
	b.WriteString("Example:\n")
	fmt.Fprintf(&b, "  curl -X POST %s/query -d 'SELECT name, low_pc FROM functions LIMIT 10'\n\n", "http://"+r.Host)
	b.WriteString("Tables:\n")
	for _, doc := range catalog.Schema(info.Dialect()) {
		fmt.Fprintf(&b, "  %-18s %s\n", doc.Name, doc.Description)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tables, err := s.cfg.Backend.Tables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	info := s.cfg.Backend.Info()
	writeJSON(w, http.StatusOK, Status{
		Status:      "running",
		Binary:      info.Path,
		Fingerprint: info.Fingerprint,
		Engine:      info.Engine,
		LoadedAt:    info.LoadedAt,
		Tables:      tables,
		InstanceID:  s.instanceID,
		Version:     s.cfg.Version,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query, err := readQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.cfg.Backend.Query(r.Context(), query)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Query failed")
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Success:  true,
		Columns:  res.Columns,
		Rows:     res.Rows,
		RowCount: len(res.Rows),
	})
}

// readQuery accepts raw SQL or a JSON QueryRequest.
func readQuery(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxQueryBytes {
		return "", errors.New("query too large")
	}

	text := strings.TrimSpace(string(body))
	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") || strings.HasPrefix(text, "{")
	if isJSON {
		var req QueryRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("invalid JSON body: %w", err)
		}
		text = strings.TrimSpace(req.SQL)
	}

	if text == "" {
		return "", errors.New("empty query")
	}
	return text, nil
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "shutting down"})
	s.shutdownOnce.Do(func() {
		s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Shutdown requested")
		close(s.shutdownCh)
	})
}
