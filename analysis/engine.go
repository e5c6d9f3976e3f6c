package analysis

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Schema faults that abort a run. Missing timestamps or pass ids mean the
// extract itself is broken; every downstream number would be wrong.
var (
	ErrMissingTimestamp = errors.New("trip record missing start or end timestamp")
	ErrMissingPassID    = errors.New("trip record missing pass id")
)

// Dataset is the extracted input for one analysis window
type Dataset struct {
	Trips      []TripRecord
	GantryFlow []FlowRecord
	EntryFlow  []FlowRecord
	ExitFlow   []FlowRecord
}

// Params collects every tunable of the reconciliation run
type Params struct {
	QualityBand      QualityBand
	Function         FunctionThresholds
	Sampler          SamplerConfig
	Anomaly          AnomalyThresholds
	BalanceDeviation float64
}

// DefaultParams returns the established audit thresholds
func DefaultParams() Params {
	return Params{
		QualityBand: QualityBand{Low: 0.8, High: 1.2},
		Function:    FunctionThresholds{ODRatio: 0.5, TransitRatio: 0.8},
		Sampler:     SamplerConfig{Seed: 42, MaxCases: 10, Band: 0.10},
		Anomaly: AnomalyThresholds{
			LongTravel:  24 * time.Hour,
			ShortTravel: time.Minute,
		},
		BalanceDeviation: 0.3,
	}
}

// FacetResult bundles everything computed for one reconciliation facet
type FacetResult struct {
	Facet       Facet               `json:"facet"`
	Records     []CorrelationRecord `json:"records"`
	Coverage    Coverage            `json:"coverage"`
	Summary     *FacetSummary       `json:"summary"`
	MedianCases *MedianCaseReport   `json:"median_cases"`
}

// Result is the full output of one reconciliation run
type Result struct {
	GeneratedAt time.Time `json:"generated_at"`

	TripCount           int `json:"trip_count"`
	PassThroughExcluded int `json:"pass_through_excluded"`

	Basic     *BasicStats    `json:"basic_stats"`
	Anomalies *AnomalyReport `json:"anomalies"`

	Facets      map[Facet]*FacetResult `json:"facets"`
	FacetErrors map[Facet]string       `json:"facet_errors,omitempty"`

	Transit        []TransitEstimate `json:"transit_estimates"`
	TransitSummary *TransitSummary   `json:"transit_summary"`
	Labels         []FunctionLabel   `json:"function_labels"`

	Balance *BalanceReport `json:"square_balance"`
}

// Engine runs the reconciliation pipeline over one dataset
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given parameters
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Run executes the full pipeline: schema validation, descriptive statistics,
// anomaly checks, the four reconciliation facets, transit estimation,
// function labeling and the square balance check.
//
// An empty dataset yields a complete, explicitly empty result. Facets run
// independently: one facet failing is recorded in FacetErrors and never takes
// the others down.
func (e *Engine) Run(ds *Dataset) (*Result, error) {
	if err := validateTrips(ds.Trips); err != nil {
		return nil, err
	}

	res := &Result{
		GeneratedAt: time.Now(),
		TripCount:   len(ds.Trips),
		Facets:      make(map[Facet]*FacetResult, len(Facets)),
		FacetErrors: make(map[Facet]string),
	}

	res.Basic = ComputeBasicStats(ds.Trips)
	res.Anomalies = DetectAnomalies(ds.Trips, e.params.Anomaly)

	valid, excluded := ExcludePassThrough(ds.Trips)
	res.PassThroughExcluded = excluded
	log.Printf("📊 Analyzing %d trips (%d pass-through excluded)", len(valid), excluded)

	gantryAgg := AggregateFlows(ds.GantryFlow)
	entryAgg := AggregateFlows(ds.EntryFlow)
	exitAgg := AggregateFlows(ds.ExitFlow)

	flowFor := map[Facet]map[AggregationKey]*FlowAggregate{
		FacetGantryOrigin:      gantryAgg,
		FacetGantryDestination: gantryAgg,
		FacetTollEntry:         entryAgg,
		FacetTollExit:          exitAgg,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, facet := range Facets {
		wg.Add(1)
		go func(facet Facet) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					res.FacetErrors[facet] = fmt.Sprintf("panic: %v", r)
					mu.Unlock()
					log.Printf("⚠️ Facet %s failed: %v", facet, r)
				}
			}()

			fr := e.runFacet(facet, valid, flowFor[facet])
			mu.Lock()
			res.Facets[facet] = fr
			mu.Unlock()
		}(facet)
	}
	wg.Wait()

	res.Transit = EstimateTransit(gantryAgg,
		CountTripsByKey(valid, FacetGantryOrigin),
		CountTripsByKey(valid, FacetGantryDestination))
	res.Labels = ClassifyFunctions(res.Transit, e.params.Function)
	res.TransitSummary = SummarizeTransit(res.Transit, res.Labels)

	res.Balance = CheckSquareBalance(entryAgg, exitAgg, e.params.BalanceDeviation)

	log.Printf("✅ Reconciliation complete: %d facets, %d transit bins, %d labeled gantries",
		len(res.Facets), len(res.Transit), len(res.Labels))
	return res, nil
}

func (e *Engine) runFacet(facet Facet, trips []TripRecord, flowAgg map[AggregationKey]*FlowAggregate) *FacetResult {
	tripAgg := AggregateTrips(trips, facet)
	records := JoinAggregates(tripAgg, flowAgg, e.params.QualityBand, facet.IsTollSquare())
	return &FacetResult{
		Facet:       facet,
		Records:     records,
		Coverage:    ComputeCoverage(records, flowAgg),
		Summary:     Summarize(facet, records),
		MedianCases: SampleMedianCases(facet, records, trips, e.params.Sampler),
	}
}

func validateTrips(trips []TripRecord) error {
	for i := range trips {
		t := &trips[i]
		if t.StartTime.IsZero() || t.EndTime.IsZero() {
			return fmt.Errorf("row %d (pass %q): %w", i, t.PassID, ErrMissingTimestamp)
		}
		if t.PassID == "" {
			return fmt.Errorf("row %d: %w", i, ErrMissingPassID)
		}
	}
	return nil
}
