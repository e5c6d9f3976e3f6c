package analysis

import (
	"reflect"
	"testing"
	"time"
)

func samplerRecords() []CorrelationRecord {
	// ratios spread around a median of 1.0; the ±10% band keeps 0.9..1.1
	ratios := []float64{0.5, 0.9, 0.95, 1.0, 1.05, 1.1, 1.6}
	records := make([]CorrelationRecord, 0, len(ratios))
	for i, r := range ratios {
		rec := definedRecord("G1", "2025-07-07", i+6, int(r*100), 100)
		rec.ODFlowRatio = r
		records = append(records, rec)
	}
	return records
}

func TestSampleMedianCasesBand(t *testing.T) {
	cfg := SamplerConfig{Seed: 42, MaxCases: 10, Band: 0.10}
	report := SampleMedianCases(FacetGantryOrigin, samplerRecords(), nil, cfg)

	if !almostEqual(report.MedianRatio, 1.0) {
		t.Errorf("median = %f, want 1.0", report.MedianRatio)
	}
	if report.CandidateCount != 5 {
		t.Errorf("candidates = %d, want 5 (0.9..1.1)", report.CandidateCount)
	}
	if len(report.Cases) != 5 {
		t.Errorf("cases = %d, want all candidates under the cap", len(report.Cases))
	}
	for _, c := range report.Cases {
		r := c.Record.ODFlowRatio
		if r < report.BandLow || r > report.BandHigh {
			t.Errorf("case ratio %f outside band [%f, %f]", r, report.BandLow, report.BandHigh)
		}
	}
}

func TestSampleMedianCasesDeterministic(t *testing.T) {
	// more candidates than the cap forces actual sampling
	var records []CorrelationRecord
	for i := 0; i < 30; i++ {
		rec := definedRecord("G1", "2025-07-07", i%24, 100, 100)
		rec.Key.PointCode = "G" + passSeq(i)
		records = append(records, rec)
	}

	cfg := SamplerConfig{Seed: 42, MaxCases: 10, Band: 0.10}
	first := SampleMedianCases(FacetGantryOrigin, records, nil, cfg)
	second := SampleMedianCases(FacetGantryOrigin, records, nil, cfg)

	if len(first.Cases) != 10 {
		t.Fatalf("cases = %d, want 10", len(first.Cases))
	}
	if !reflect.DeepEqual(first.Cases, second.Cases) {
		t.Error("same seed must select the same cases")
	}

	other := SampleMedianCases(FacetGantryOrigin, records, nil, SamplerConfig{Seed: 7, MaxCases: 10, Band: 0.10})
	if reflect.DeepEqual(first.Cases, other.Cases) {
		t.Error("a different seed selecting the identical sample is vanishingly unlikely")
	}
}

func TestSampleMedianCasesEnrichment(t *testing.T) {
	start := ts("2025-07-07", 8)
	trips := []TripRecord{
		gantryTrip("P1", "G1", "G9", start, start.Add(time.Hour)),
		gantryTrip("P2", "G1", "G9", start.Add(10*time.Minute), start.Add(time.Hour)),
	}
	trips[0].VehicleType = "k1"
	trips[1].VehicleType = "h2"

	rec := definedRecord("G1", "2025-07-07", 8, 2, 2)
	cfg := SamplerConfig{Seed: 42, MaxCases: 10, Band: 0.10}
	report := SampleMedianCases(FacetGantryOrigin, []CorrelationRecord{rec}, trips, cfg)

	if len(report.Cases) != 1 {
		t.Fatalf("cases = %d, want 1", len(report.Cases))
	}
	c := report.Cases[0]
	if c.TripVehicleTypes["k1"] != 1 || c.TripVehicleTypes["h2"] != 1 {
		t.Errorf("vehicle types = %v", c.TripVehicleTypes)
	}
	if len(c.TripSamplePassIDs) != 2 {
		t.Errorf("pass id samples = %v", c.TripSamplePassIDs)
	}
}

func TestSampleMedianCasesEmptyInput(t *testing.T) {
	cfg := SamplerConfig{Seed: 42, MaxCases: 10, Band: 0.10}
	report := SampleMedianCases(FacetGantryOrigin, nil, nil, cfg)
	if report.CandidateCount != 0 || len(report.Cases) != 0 {
		t.Errorf("empty input should yield an empty report: %+v", report)
	}
}
