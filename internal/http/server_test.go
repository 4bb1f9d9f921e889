package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/grid"
	"tally/internal/services"
	"tally/internal/sheets/memory"
	"tally/internal/storage"
)

type runStoreStub struct {
	recs []storage.RunRecord
}

func (s *runStoreStub) LatestRun(_ context.Context) (storage.RunRecord, error) {
	if len(s.recs) == 0 {
		return storage.RunRecord{}, storage.ErrNoRuns
	}
	return s.recs[len(s.recs)-1], nil
}

func (s *runStoreStub) RecentRuns(_ context.Context, limit int) ([]storage.RunRecord, error) {
	if limit > len(s.recs) {
		limit = len(s.recs)
	}
	return s.recs[:limit], nil
}

type publisherStub struct {
	published int
	reasons   []string
}

func (p *publisherStub) PublishRebuildRequest(_ context.Context, reason, _ string) error {
	p.published++
	p.reasons = append(p.reasons, reason)
	return nil
}

func newTestServer(t *testing.T, publisher RebuildPublisher, runs RunStore) *Server {
	t.Helper()

	today := core.Today(time.UTC)
	store := memory.New()
	store.SetSheet("10月总进款", grid.Grid{
		{"日期", "客户", "进款", "净额", "费率", "USDT入款", "返款MYR", "USDT出款", "总数"},
		{today.Key(), "客户A", "100.00", "", "10.00", "3", "50.00", "1", ""},
	})

	svc := services.NewRebuildService(store, store, nil, services.RebuildConfig{
		SheetName:   "10月总进款",
		WindowStart: today,
		Location:    time.UTC,
		Overrides:   core.OverrideTable{},
		ClearRows:   600,
		ClearCols:   10,
		ScanDepth:   120,
	})

	return NewServer(":0", svc, publisher, runs)
}

func TestHandleRebuild(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/rebuild", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Status      string `json:"status"`
		RowsWritten int    `json:"rows_written"`
		GrandNet    string `json:"grand_net"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.RowsWritten != 1 {
		t.Errorf("rows_written = %d, want 1", resp.RowsWritten)
	}
	if resp.GrandNet != "2.00" {
		t.Errorf("grand_net = %q, want 2.00", resp.GrandNet)
	}
}

func TestHandleRebuild_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rebuild", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if allow := rec.Header().Get("Allow"); allow != "POST" {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestHandleRebuild_Async(t *testing.T) {
	publisher := &publisherStub{}
	s := newTestServer(t, publisher, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/rebuild?async=true&reason=refresh", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if publisher.published != 1 {
		t.Errorf("published = %d, want 1", publisher.published)
	}
	if len(publisher.reasons) != 1 || publisher.reasons[0] != "refresh" {
		t.Errorf("reasons = %v, want [refresh]", publisher.reasons)
	}
}

func TestHandleRebuild_AsyncWithoutPublisher(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/rebuild?async=true", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleRuns(t *testing.T) {
	runs := &runStoreStub{recs: []storage.RunRecord{
		{ID: 1, SheetName: "10月总进款", Status: "ok", RowsWritten: 31},
		{ID: 2, SheetName: "10月总进款", Status: "failed", Error: "sheet not found"},
	}}
	s := newTestServer(t, nil, runs)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=1", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Runs []storage.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Runs) != 1 {
		t.Errorf("runs = %d, want 1", len(resp.Runs))
	}
}

func TestHandleRuns_InvalidLimit(t *testing.T) {
	s := newTestServer(t, nil, &runStoreStub{})

	for _, limit := range []string{"0", "-1", "501", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit="+limit, nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestHandleLatestRun(t *testing.T) {
	t.Run("no runs yet", func(t *testing.T) {
		s := newTestServer(t, nil, &runStoreStub{})

		req := httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("latest run returned", func(t *testing.T) {
		runs := &runStoreStub{recs: []storage.RunRecord{
			{ID: 7, Status: "ok", GrandNetCents: 300},
		}}
		s := newTestServer(t, nil, runs)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var rec7 storage.RunRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &rec7); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if rec7.ID != 7 {
			t.Errorf("id = %d, want 7", rec7.ID)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}
