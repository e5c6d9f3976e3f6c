package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"od-flow-audit/analysis"
)

func testServer() *Server {
	flow := int64(100)
	result := &analysis.Result{
		GeneratedAt: time.Now(),
		TripCount:   80,
		Facets: map[analysis.Facet]*analysis.FacetResult{
			analysis.FacetTollEntry: {
				Facet: analysis.FacetTollEntry,
				Records: []analysis.CorrelationRecord{{
					Key:         analysis.AggregationKey{PointCode: "S1", Date: "2025-07-07", Hour: 8},
					TripCount:   80,
					FlowTotal:   &flow,
					Defined:     true,
					ODFlowRatio: 0.8,
					FlowODRatio: 1.25,
					Quality:     analysis.QualityNormal,
				}},
				Coverage: analysis.Coverage{TotalRows: 1, MatchedRows: 1, MatchRate: 1},
				Summary:  &analysis.FacetSummary{Facet: analysis.FacetTollEntry, MatchedRecords: 1, TotalRows: 1},
			},
		},
		Labels: []analysis.FunctionLabel{
			{GantryCode: "G1", Label: analysis.FunctionChannel},
		},
		TransitSummary: &analysis.TransitSummary{},
		Balance:        &analysis.BalanceReport{},
		Anomalies:      &analysis.AnomalyReport{},
		Basic:          &analysis.BasicStats{TotalTrips: 80},
	}

	s := NewServer(nil, nil, nil)
	s.SetResult(result, "2025-07-07", "2025-07-08")
	return s
}

func TestHandleLatestRun(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest("GET", "/api/runs/latest", nil)
	w := httptest.NewRecorder()
	s.handleLatestRun(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["window_start"] != "2025-07-07" {
		t.Errorf("window_start = %v", body["window_start"])
	}
	if body["trip_count"].(float64) != 80 {
		t.Errorf("trip_count = %v", body["trip_count"])
	}
}

func TestHandleFacet(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest("GET", "/api/facets/toll_square_entry", nil)
	req.SetPathValue("facet", "toll_square_entry")
	w := httptest.NewRecorder()
	s.handleFacet(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var fr analysis.FacetResult
	if err := json.Unmarshal(w.Body.Bytes(), &fr); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(fr.Records) != 1 || fr.Records[0].Quality != analysis.QualityNormal {
		t.Errorf("facet records = %+v", fr.Records)
	}
}

func TestHandleFacetUnknown(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest("GET", "/api/facets/bogus", nil)
	req.SetPathValue("facet", "bogus")
	w := httptest.NewRecorder()
	s.handleFacet(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleFacetNotComputed(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest("GET", "/api/facets/gantry_origin", nil)
	req.SetPathValue("facet", "gantry_origin")
	w := httptest.NewRecorder()
	s.handleFacet(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleNoRunAvailable(t *testing.T) {
	s := NewServer(nil, nil, nil)
	req := httptest.NewRequest("GET", "/api/runs/latest", nil)
	w := httptest.NewRecorder()
	s.handleLatestRun(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetIntParam(t *testing.T) {
	minVal, maxVal := 1, 100

	tests := []struct {
		query    string
		expected int
	}{
		{"limit=50", 50},
		{"limit=0", 10},    // below min falls back to default
		{"limit=500", 10},  // above max falls back to default
		{"limit=abc", 10},  // unparseable falls back to default
		{"", 10},           // absent falls back to default
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/?"+tt.query, nil)
		if got := getIntParam(req, "limit", 10, &minVal, &maxVal); got != tt.expected {
			t.Errorf("query %q: got %d, want %d", tt.query, got, tt.expected)
		}
	}
}
