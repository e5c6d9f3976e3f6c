package analysis

import (
	"math/rand"
	"sort"
)

// SamplerConfig drives the median-case sampler. A fixed seed keeps the sample
// reproducible run over run, so a reviewed case stays reviewable.
type SamplerConfig struct {
	Seed     int64
	MaxCases int
	Band     float64 // half-width around the median, as a fraction
}

// MedianCase is one representative "normal" bin with its raw-side context
type MedianCase struct {
	Record CorrelationRecord `json:"record"`

	// raw vehicle type codes of the trips in this bin, pre-classification
	TripVehicleTypes  map[string]int `json:"trip_vehicle_types"`
	TripSamplePassIDs []string       `json:"trip_sample_pass_ids"`
}

// MedianCaseReport is the sampler output for one facet
type MedianCaseReport struct {
	Facet          Facet        `json:"facet"`
	MedianRatio    float64      `json:"median_od_flow_ratio"`
	BandLow        float64      `json:"band_low"`
	BandHigh       float64      `json:"band_high"`
	CandidateCount int          `json:"candidate_count"`
	Cases          []MedianCase `json:"cases"`
}

const medianCasePassIDSample = 5

// SampleMedianCases picks up to cfg.MaxCases rows whose od_flow_ratio lies
// within cfg.Band of the facet median and enriches them with the underlying
// trip rows. Sampling median-typical rows answers "what does a healthy bin
// look like", the baseline the abnormal ones are judged against.
func SampleMedianCases(facet Facet, records []CorrelationRecord, trips []TripRecord, cfg SamplerConfig) *MedianCaseReport {
	report := &MedianCaseReport{Facet: facet}

	ratios := make([]float64, 0, len(records))
	for i := range records {
		if records[i].Defined {
			ratios = append(ratios, records[i].ODFlowRatio)
		}
	}
	if len(ratios) == 0 {
		return report
	}
	sort.Float64s(ratios)
	report.MedianRatio = quantile(ratios, 0.5)
	report.BandLow = report.MedianRatio * (1 - cfg.Band)
	report.BandHigh = report.MedianRatio * (1 + cfg.Band)

	candidates := make([]*CorrelationRecord, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.Defined && r.ODFlowRatio >= report.BandLow && r.ODFlowRatio <= report.BandHigh {
			candidates = append(candidates, r)
		}
	}
	report.CandidateCount = len(candidates)

	// records arrive key-sorted, so the permutation below is the only source
	// of randomness and the fixed seed pins it
	selected := candidates
	if cfg.MaxCases > 0 && len(candidates) > cfg.MaxCases {
		perm := rand.New(rand.NewSource(cfg.Seed)).Perm(len(candidates))
		selected = make([]*CorrelationRecord, 0, cfg.MaxCases)
		for _, idx := range perm[:cfg.MaxCases] {
			selected = append(selected, candidates[idx])
		}
		sort.Slice(selected, func(i, j int) bool { return keyLess(selected[i].Key, selected[j].Key) })
	}

	byKey := tripsByFacetKey(trips, facet)
	report.Cases = make([]MedianCase, 0, len(selected))
	for _, r := range selected {
		c := MedianCase{Record: *r, TripVehicleTypes: make(map[string]int)}
		for _, t := range byKey[r.Key] {
			c.TripVehicleTypes[t.VehicleType]++
			if len(c.TripSamplePassIDs) < medianCasePassIDSample {
				c.TripSamplePassIDs = append(c.TripSamplePassIDs, t.PassID)
			}
		}
		report.Cases = append(report.Cases, c)
	}
	return report
}

func tripsByFacetKey(trips []TripRecord, facet Facet) map[AggregationKey][]*TripRecord {
	out := make(map[AggregationKey][]*TripRecord)
	for i := range trips {
		t := &trips[i]
		_, key, ok := facetEndpoint(facet, t)
		if !ok {
			continue
		}
		out[key] = append(out[key], t)
	}
	return out
}
