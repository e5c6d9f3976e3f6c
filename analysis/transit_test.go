package analysis

import (
	"testing"
)

// gantry G2 hour 9: 10 origins, 5 destinations, 200 counted
func TestEstimateTransitDecomposition(t *testing.T) {
	key := AggregationKey{PointCode: "G2", Date: "2025-07-07", Hour: 9}
	flow := map[AggregationKey]*FlowAggregate{key: {Key: key, Total: 200}}
	origins := map[AggregationKey]int{key: 10}
	dests := map[AggregationKey]int{key: 5}

	estimates := EstimateTransit(flow, origins, dests)
	if len(estimates) != 1 {
		t.Fatalf("estimates = %d, want 1", len(estimates))
	}

	e := estimates[0]
	if e.ODRelatedFlow != 15 {
		t.Errorf("od_related_flow = %d, want 15", e.ODRelatedFlow)
	}
	if e.TransitFlow != 185 {
		t.Errorf("transit_flow = %d, want 185", e.TransitFlow)
	}
	if !almostEqual(e.TransitRatio, 0.925) {
		t.Errorf("transit_ratio = %f, want 0.925", e.TransitRatio)
	}
}

// od_related above the counter total: transit clips to zero, od_ratio does not
func TestEstimateTransitClipsOnlyTransit(t *testing.T) {
	key := AggregationKey{PointCode: "G3", Date: "2025-07-07", Hour: 9}
	flow := map[AggregationKey]*FlowAggregate{key: {Key: key, Total: 50}}
	origins := map[AggregationKey]int{key: 40}
	dests := map[AggregationKey]int{key: 20}

	e := EstimateTransit(flow, origins, dests)[0]
	if e.TransitFlow != 0 {
		t.Errorf("transit_flow = %d, want 0 (clipped)", e.TransitFlow)
	}
	if !almostEqual(e.ODRatio, 1.2) {
		t.Errorf("od_ratio = %f, want 1.2 unclamped", e.ODRatio)
	}
	if !almostEqual(e.TransitRatio, 0) {
		t.Errorf("transit_ratio = %f, want 0", e.TransitRatio)
	}
}

// absent endpoint counts default to zero: pure transit
func TestEstimateTransitNoODEndpoints(t *testing.T) {
	key := AggregationKey{PointCode: "G4", Date: "2025-07-07", Hour: 3}
	flow := map[AggregationKey]*FlowAggregate{key: {Key: key, Total: 80}}

	e := EstimateTransit(flow, map[AggregationKey]int{}, map[AggregationKey]int{})[0]
	if e.TransitFlow != 80 {
		t.Errorf("transit_flow = %d, want 80", e.TransitFlow)
	}
	if !almostEqual(e.TransitRatio, 1.0) {
		t.Errorf("transit_ratio = %f, want 1.0", e.TransitRatio)
	}
}

// zero counter total keeps both ratios at the stable default of zero
func TestEstimateTransitZeroTotalFlow(t *testing.T) {
	key := AggregationKey{PointCode: "G5", Date: "2025-07-07", Hour: 4}
	flow := map[AggregationKey]*FlowAggregate{key: {Key: key, Total: 0}}
	origins := map[AggregationKey]int{key: 3}

	e := EstimateTransit(flow, origins, map[AggregationKey]int{})[0]
	if e.TransitRatio != 0 || e.ODRatio != 0 {
		t.Errorf("ratios = (%f, %f), want (0, 0) at zero total flow", e.TransitRatio, e.ODRatio)
	}
}

func TestClassifyFunctions(t *testing.T) {
	th := FunctionThresholds{ODRatio: 0.5, TransitRatio: 0.8}

	tests := []struct {
		name     string
		odRatio  float64
		trRatio  float64
		expected FunctionType
	}{
		{"origin dominant", 0.7, 0.3, FunctionOriginDominant},
		{"channel", 0.1, 0.9, FunctionChannel},
		{"mixed", 0.4, 0.6, FunctionMixed},
		{"od threshold is exclusive", 0.5, 0.85, FunctionChannel},
		{"transit threshold is exclusive", 0.4, 0.8, FunctionMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimates := []TransitEstimate{{
				GantryCode:   "G1",
				Date:         "2025-07-07",
				Hour:         8,
				ODRatio:      tt.odRatio,
				TransitRatio: tt.trRatio,
			}}
			labels := ClassifyFunctions(estimates, th)
			if len(labels) != 1 {
				t.Fatalf("labels = %d, want 1", len(labels))
			}
			if labels[0].Label != tt.expected {
				t.Errorf("label = %s, want %s", labels[0].Label, tt.expected)
			}
		})
	}
}

func TestClassifyFunctionsAveragesPerGantry(t *testing.T) {
	th := FunctionThresholds{ODRatio: 0.5, TransitRatio: 0.8}
	estimates := []TransitEstimate{
		{GantryCode: "G1", Hour: 8, ODRatio: 0.9, TransitRatio: 0.1, TotalFlow: 100},
		{GantryCode: "G1", Hour: 9, ODRatio: 0.3, TransitRatio: 0.7, TotalFlow: 200},
	}

	labels := ClassifyFunctions(estimates, th)
	l := labels[0]
	if !almostEqual(l.MeanODRatio, 0.6) {
		t.Errorf("mean od_ratio = %f, want 0.6", l.MeanODRatio)
	}
	if l.TotalFlow != 300 {
		t.Errorf("total flow = %d, want 300", l.TotalFlow)
	}
	if l.Label != FunctionOriginDominant {
		t.Errorf("label = %s, want origin_dominant", l.Label)
	}
}

func TestSummarizeTransit(t *testing.T) {
	estimates := []TransitEstimate{
		{GantryCode: "G1", TotalFlow: 100, ODRelatedFlow: 40, TransitFlow: 60, TransitRatio: 0.6},
		{GantryCode: "G2", TotalFlow: 100, ODRelatedFlow: 80, TransitFlow: 20, TransitRatio: 0.2},
	}
	labels := []FunctionLabel{
		{GantryCode: "G1", Label: FunctionChannel},
		{GantryCode: "G2", Label: FunctionOriginDominant},
	}

	s := SummarizeTransit(estimates, labels)
	if s.GantryCount != 2 || s.BinCount != 2 {
		t.Errorf("counts = (%d, %d), want (2, 2)", s.GantryCount, s.BinCount)
	}
	if s.TotalFlow != 200 || s.TotalODRelated != 120 {
		t.Errorf("totals = (%d, %d), want (200, 120)", s.TotalFlow, s.TotalODRelated)
	}
	if s.TotalTransit != 80 {
		t.Errorf("total transit = %d, want 80", s.TotalTransit)
	}
	if !almostEqual(s.TransitShare, 0.4) {
		t.Errorf("transit share = %f, want 0.4", s.TransitShare)
	}
	if s.FunctionCounts[FunctionChannel] != 1 || s.FunctionCounts[FunctionOriginDominant] != 1 {
		t.Errorf("function counts = %v", s.FunctionCounts)
	}
}
