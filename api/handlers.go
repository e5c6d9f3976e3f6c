package api

import (
	"context"
	"net/http"

	"od-flow-audit/analysis"
)

// currentResult returns the run to serve: the in-memory result of this
// process, the cached result for its window, or the latest stored snapshot.
func (s *Server) currentResult(ctx context.Context) (*analysis.Result, string, string, error) {
	s.mu.RLock()
	latest, ws, we := s.latest, s.windowStart, s.windowEnd
	s.mu.RUnlock()
	if latest != nil {
		return latest, ws, we, nil
	}

	if s.cache != nil && ws != "" {
		cached, err := s.cache.Load(ctx, ws, we)
		if err == nil && cached != nil {
			return cached, ws, we, nil
		}
	}

	if s.results != nil {
		snapshot, result, err := s.results.LatestRun()
		if err != nil {
			return nil, "", "", err
		}
		if result != nil {
			return result, snapshot.WindowStart, snapshot.WindowEnd, nil
		}
	}
	return nil, "", "", nil
}

func (s *Server) resultOr404(w http.ResponseWriter, r *http.Request) *analysis.Result {
	result, _, _, err := s.currentResult(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load run", err)
		return nil
	}
	if result == nil {
		respondWithError(w, http.StatusNotFound, "No completed run available", nil)
		return nil
	}
	return result
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	result, ws, we, err := s.currentResult(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load run", err)
		return
	}
	if result == nil {
		respondWithError(w, http.StatusNotFound, "No completed run available", nil)
		return
	}

	// compact overview; the facet endpoints serve the heavy record sets
	facets := make(map[analysis.Facet]interface{}, len(result.Facets))
	for facet, fr := range result.Facets {
		facets[facet] = map[string]interface{}{
			"coverage": fr.Coverage,
			"summary":  fr.Summary,
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"window_start":          ws,
		"window_end":            we,
		"generated_at":          result.GeneratedAt,
		"trip_count":            result.TripCount,
		"pass_through_excluded": result.PassThroughExcluded,
		"facets":                facets,
		"facet_errors":          result.FacetErrors,
		"transit_summary":       result.TransitSummary,
	})
}

func facetFromPath(w http.ResponseWriter, r *http.Request) (analysis.Facet, bool) {
	facet := analysis.Facet(r.PathValue("facet"))
	for _, f := range analysis.Facets {
		if f == facet {
			return facet, true
		}
	}
	respondWithError(w, http.StatusBadRequest, "Unknown facet", nil)
	return "", false
}

func (s *Server) handleFacet(w http.ResponseWriter, r *http.Request) {
	facet, ok := facetFromPath(w, r)
	if !ok {
		return
	}
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	fr, ok := result.Facets[facet]
	if !ok {
		if msg, failed := result.FacetErrors[facet]; failed {
			respondWithError(w, http.StatusInternalServerError, "Facet failed: "+msg, nil)
			return
		}
		respondWithError(w, http.StatusNotFound, "Facet not computed", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, fr)
}

func (s *Server) handleFacetCoverage(w http.ResponseWriter, r *http.Request) {
	facet, ok := facetFromPath(w, r)
	if !ok {
		return
	}
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	fr, ok := result.Facets[facet]
	if !ok {
		respondWithError(w, http.StatusNotFound, "Facet not computed", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, fr.Coverage)
}

func (s *Server) handleFacetCases(w http.ResponseWriter, r *http.Request) {
	facet, ok := facetFromPath(w, r)
	if !ok {
		return
	}
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	fr, ok := result.Facets[facet]
	if !ok {
		respondWithError(w, http.StatusNotFound, "Facet not computed", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, fr.MedianCases)
}

func (s *Server) handleTransit(w http.ResponseWriter, r *http.Request) {
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	limit := getIntParam(r, "limit", 1000, intPtr(1), intPtr(100000))
	estimates := result.Transit
	if len(estimates) > limit {
		estimates = estimates[:limit]
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"summary":   result.TransitSummary,
		"estimates": estimates,
	})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	respondWithJSON(w, http.StatusOK, result.Labels)
}

func (s *Server) handleLabelHistory(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Result store not configured", nil)
		return
	}
	gantry := r.PathValue("gantry")
	limit := getIntParam(r, "limit", 30, intPtr(1), intPtr(500))
	rows, err := s.results.LabelHistory(gantry, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load label history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	respondWithJSON(w, http.StatusOK, result.Balance)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	respondWithJSON(w, http.StatusOK, result.Anomalies)
}

func (s *Server) handleBasicStats(w http.ResponseWriter, r *http.Request) {
	result := s.resultOr404(w, r)
	if result == nil {
		return
	}
	respondWithJSON(w, http.StatusOK, result.Basic)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hasResult := s.latest != nil
	s.mu.RUnlock()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"has_result": hasResult,
	})
}

func intPtr(v int) *int { return &v }
