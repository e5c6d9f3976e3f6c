package analysis

import "sort"

// JoinAggregates left-joins the facet's trip aggregates with its flow
// aggregates, preserving every trip-side row. Unmatched rows keep a nil
// FlowTotal: trip-only volume and the overall match rate are first-class
// data-quality signals, so dropping them would hide exactly what this audit
// is looking for.
//
// Ratios are derived only for matched rows with positive flow; a zero counter
// total with positive trips is kept for coverage but never faults.
func JoinAggregates(tripAgg map[AggregationKey]*TripAggregate, flowAgg map[AggregationKey]*FlowAggregate, band QualityBand, flagQuality bool) []CorrelationRecord {
	records := make([]CorrelationRecord, 0, len(tripAgg))
	for key, ta := range tripAgg {
		rec := CorrelationRecord{
			Key:       key,
			TripCount: ta.TripCount,
			Histogram: ta.Histogram,
		}
		if fa, ok := flowAgg[key]; ok {
			total := fa.Total
			rec.FlowTotal = &total
			rec.FlowClasses = fa.Classes
			deriveRatios(&rec, band, flagQuality)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return keyLess(records[i].Key, records[j].Key) })
	return records
}

// QualityBand is the OD/flow consistency band for toll-square facets. A
// matched row is normal when its od_flow_ratio lies inside the band.
type QualityBand struct {
	Low  float64
	High float64
}

func deriveRatios(rec *CorrelationRecord, band QualityBand, flagQuality bool) {
	flow := float64(*rec.FlowTotal)
	trips := float64(rec.TripCount)

	odFlow, ok := Ratio(trips, flow)
	if !ok {
		// zero flow with observed trips: counts toward coverage only
		return
	}
	rec.Defined = true
	rec.ODFlowRatio = odFlow
	rec.FlowODRatio = RatioOrZero(flow, trips)

	if flagQuality {
		if rec.ODFlowRatio >= band.Low && rec.ODFlowRatio <= band.High {
			rec.Quality = QualityNormal
		} else {
			rec.Quality = QualityAbnormal
		}
	}

	rec.ClassDiffs = map[VehicleClass]ClassComparison{
		ClassPassenger: classComparison(rec, ClassPassenger, rec.FlowClasses.Passenger),
		ClassTruck:     classComparison(rec, ClassTruck, rec.FlowClasses.Truck),
		ClassTrailer:   classComparison(rec, ClassTrailer, rec.FlowClasses.Trailer),
	}
}

func classComparison(rec *CorrelationRecord, class VehicleClass, flowCount int64) ClassComparison {
	tripShare := RatioOrZero(float64(rec.Histogram[class]), float64(rec.TripCount))
	flowShare := RatioOrZero(float64(flowCount), float64(*rec.FlowTotal))
	return ClassComparison{
		TripShare: tripShare,
		FlowShare: flowShare,
		RatioDiff: tripShare - flowShare,
	}
}

// ComputeCoverage accounts for key and point overlap between the two sides
// over the full joined set, unmatched rows included
func ComputeCoverage(records []CorrelationRecord, flowAgg map[AggregationKey]*FlowAggregate) Coverage {
	cov := Coverage{TotalRows: len(records)}

	tripPoints := make(map[string]bool)
	for i := range records {
		tripPoints[records[i].Key.PointCode] = true
		if records[i].Matched() {
			cov.MatchedRows++
		}
	}
	cov.UnmatchedRows = cov.TotalRows - cov.MatchedRows
	cov.MatchRate = RatioOrZero(float64(cov.MatchedRows), float64(cov.TotalRows))

	flowPoints := make(map[string]bool)
	for key := range flowAgg {
		flowPoints[key.PointCode] = true
	}

	for p := range tripPoints {
		if flowPoints[p] {
			cov.SharedPoints = append(cov.SharedPoints, p)
		} else {
			cov.TripOnlyPoints = append(cov.TripOnlyPoints, p)
		}
	}
	for p := range flowPoints {
		if !tripPoints[p] {
			cov.FlowOnlyPoints = append(cov.FlowOnlyPoints, p)
		}
	}
	sort.Strings(cov.SharedPoints)
	sort.Strings(cov.TripOnlyPoints)
	sort.Strings(cov.FlowOnlyPoints)
	return cov
}

func keyLess(a, b AggregationKey) bool {
	if a.PointCode != b.PointCode {
		return a.PointCode < b.PointCode
	}
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.Hour < b.Hour
}
