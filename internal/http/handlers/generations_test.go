package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/middleware"
)

type stubRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, src := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = src.(string)
		case *int:
			*d = src.(int)
		case *[]byte:
			*d = src.([]byte)
		case *time.Time:
			*d = src.(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type stubQueryDB struct {
	rows     *stubRows
	queryErr error
	lastSQL  string
	lastArgs []any
}

func (s *stubQueryDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *stubQueryDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return nil
}

func (s *stubQueryDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.lastSQL = query
	s.lastArgs = args
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rows, nil
}

type stubBlobReader struct {
	blobs map[string][]byte
}

func (s *stubBlobReader) Read(key string) ([]byte, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func generationRow(id, imageURL string) []any {
	return []any{
		id, "u-1", "create", "completed",
		[]byte(`{"prompt":"a cat"}`), imageURL,
		"imagen-3.0-generate-002", 1, time.Now().UTC(),
	}
}

func authedGet(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	return r.WithContext(middleware.ContextWithUserID(r.Context(), "u-1"))
}

func TestGenerationsListReturnsRecords(t *testing.T) {
	db := &stubQueryDB{rows: &stubRows{rows: [][]any{
		generationRow("rec-1", "http://localhost:8080/static/u-1/rec-1.png"),
		generationRow("rec-2", "http://localhost:8080/static/u-1/rec-2.png"),
	}}}
	app := newTestApp(&stubLedger{}, &stubGenerator{})
	app.SQL = db

	w := httptest.NewRecorder()
	app.GenerationsList(w, authedGet("/v1/generations?limit=10"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(db.lastArgs) != 2 || db.lastArgs[0] != "u-1" || db.lastArgs[1] != 10 {
		t.Fatalf("unexpected query args: %v", db.lastArgs)
	}
	var resp struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0]["id"] != "rec-1" || resp.Items[0]["model"] != "imagen-3.0-generate-002" {
		t.Fatalf("unexpected first item: %v", resp.Items[0])
	}
}

func TestGenerationsListRequiresUser(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubGenerator{})
	w := httptest.NewRecorder()
	app.GenerationsList(w, httptest.NewRequest(http.MethodGet, "/v1/generations", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGenerationsExportArchivesStoredImages(t *testing.T) {
	db := &stubQueryDB{rows: &stubRows{rows: [][]any{
		generationRow("rec-1", "http://localhost:8080/static/u-1/rec-1.png"),
		generationRow("rec-2", "https://elsewhere.example.com/external.png"),
	}}}
	app := newTestApp(&stubLedger{}, &stubGenerator{})
	app.SQL = db
	app.Blobs = &stubBlobReader{blobs: map[string][]byte{
		"u-1/rec-1.png": []byte("png-bytes"),
	}}

	w := httptest.NewRecorder()
	app.GenerationsExport(w, authedGet("/v1/generations/export"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("expected zip content type, got %q", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("expected 1 entry (external url skipped), got %d", len(zr.File))
	}
	if zr.File[0].Name != "rec-1.png" {
		t.Fatalf("unexpected entry name %q", zr.File[0].Name)
	}
}

func TestGenerationsListQueryFailure(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubGenerator{})
	app.SQL = &stubQueryDB{queryErr: errors.New("boom")}
	w := httptest.NewRecorder()
	app.GenerationsList(w, authedGet("/v1/generations"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
