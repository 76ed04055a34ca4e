package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sebiscope/sebiscope/pkg/storage"
)

func testDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHandleHistory(t *testing.T) {
	db := testDB(t)
	if err := db.RecordResolution(context.Background(), storage.Resolution{
		Company:         "Zomato",
		NormalizedQuery: "zomato",
		Found:           true,
		MatchedTitle:    "Zomato Limited - RHP",
		DocType:         "RHP",
		Score:           0.95,
		PagesScanned:    1,
	}); err != nil {
		t.Fatal(err)
	}

	s := New(db, t.TempDir(), "", "", "")
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	s.handleHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp historyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Resolutions) != 1 || resp.Resolutions[0].MatchedTitle != "Zomato Limited - RHP" {
		t.Fatalf("unexpected history: %+v", resp.Resolutions)
	}
}

func TestBasicAuth(t *testing.T) {
	s := New(nil, "", "", "admin", "secret")
	handler := s.basicAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing credentials should 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid credentials should pass, got %d", rec.Code)
	}
}

func TestHandleResolveRejectsBadBody(t *testing.T) {
	s := New(nil, "", "", "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", nil)
	rec := httptest.NewRecorder()
	s.handleResolve(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body should 400, got %d", rec.Code)
	}
}
