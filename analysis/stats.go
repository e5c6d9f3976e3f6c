package analysis

import (
	"math"
	"sort"
	"time"
)

// DistStats are the distribution statistics reported for every ratio series
type DistStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// PatternAverages are the grouped means reported per hour bucket and per
// weekday/weekend split
type PatternAverages struct {
	MeanTripCount   float64 `json:"mean_trip_count"`
	MeanFlowTotal   float64 `json:"mean_flow_total"`
	MeanODFlowRatio float64 `json:"mean_od_flow_ratio"`
}

// PeakAnalysis identifies the highest- and lowest-volume hours of the window
type PeakAnalysis struct {
	PeakHours             []int   `json:"peak_hours"`
	OffPeakHours          []int   `json:"off_peak_hours"`
	PeakAvgODFlowRatio    float64 `json:"peak_avg_od_flow_ratio"`
	OffPeakAvgODFlowRatio float64 `json:"off_peak_avg_od_flow_ratio"`
}

// TimePatterns groups ratio behaviour by hour of day and weekday/weekend
type TimePatterns struct {
	Hourly  map[int]PatternAverages `json:"hourly_pattern"`
	Weekday PatternAverages         `json:"weekday_pattern"`
	Weekend PatternAverages         `json:"weekend_pattern"`
	Peak    PeakAnalysis            `json:"peak_analysis"`
}

// QualityAssessment summarizes the normal/abnormal split of a toll-square
// facet, where flow and OD volumes are expected to be near 1:1
type QualityAssessment struct {
	NormalRecords   int     `json:"normal_records"`
	AbnormalRecords int     `json:"abnormal_records"`
	NormalRatio     float64 `json:"normal_ratio"`
}

// DateRange is the observed calendar span of the matched subset
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FacetSummary is the statistical summary of one facet's matched subset.
// Empty is set when no row had usable flow data; an empty summary is an
// explicit result, never a computational fault.
type FacetSummary struct {
	Facet Facet `json:"facet"`
	Empty bool  `json:"empty"`

	MatchedRecords int       `json:"matched_records"`
	TotalRows      int       `json:"total_od_rows"`
	UniquePoints   int       `json:"unique_points"`
	DateRange      DateRange `json:"date_range"`

	// nil when fewer than two matched rows or a degenerate series
	CorrelationCoefficient *float64 `json:"correlation_coefficient"`

	ODFlowRatioStats DistStats                  `json:"od_flow_ratio_stats"`
	FlowODRatioStats DistStats                  `json:"flow_od_ratio_stats"`
	ClassDiffStats   map[VehicleClass]DistStats `json:"class_ratio_diff_stats,omitempty"`

	TimePatterns *TimePatterns      `json:"time_patterns,omitempty"`
	Quality      *QualityAssessment `json:"quality_assessment,omitempty"`
}

// Summarize computes the facet summary over the records with defined ratios.
// Rows excluded by the ratio contract (unmatched, zero flow) are visible in
// TotalRows but contribute to no statistic.
func Summarize(facet Facet, records []CorrelationRecord) *FacetSummary {
	s := &FacetSummary{Facet: facet, TotalRows: len(records)}

	defined := make([]*CorrelationRecord, 0, len(records))
	for i := range records {
		if records[i].Defined {
			defined = append(defined, &records[i])
		}
	}
	if len(defined) == 0 {
		s.Empty = true
		return s
	}

	s.MatchedRecords = len(defined)

	points := make(map[string]bool)
	odFlow := make([]float64, 0, len(defined))
	flowOD := make([]float64, 0, len(defined))
	tripCounts := make([]float64, 0, len(defined))
	flowTotals := make([]float64, 0, len(defined))
	for _, r := range defined {
		points[r.Key.PointCode] = true
		odFlow = append(odFlow, r.ODFlowRatio)
		flowOD = append(flowOD, r.FlowODRatio)
		tripCounts = append(tripCounts, float64(r.TripCount))
		flowTotals = append(flowTotals, float64(*r.FlowTotal))
		if s.DateRange.Start == "" || r.Key.Date < s.DateRange.Start {
			s.DateRange.Start = r.Key.Date
		}
		if r.Key.Date > s.DateRange.End {
			s.DateRange.End = r.Key.Date
		}
	}
	s.UniquePoints = len(points)
	s.CorrelationCoefficient = pearson(tripCounts, flowTotals)
	s.ODFlowRatioStats = distStats(odFlow)
	s.FlowODRatioStats = distStats(flowOD)

	s.ClassDiffStats = make(map[VehicleClass]DistStats, 3)
	for _, class := range []VehicleClass{ClassPassenger, ClassTruck, ClassTrailer} {
		diffs := make([]float64, 0, len(defined))
		for _, r := range defined {
			if cmp, ok := r.ClassDiffs[class]; ok {
				diffs = append(diffs, cmp.RatioDiff)
			}
		}
		if len(diffs) > 0 {
			s.ClassDiffStats[class] = distStats(diffs)
		}
	}

	s.TimePatterns = timePatterns(defined)

	if facet.IsTollSquare() {
		qa := &QualityAssessment{}
		for _, r := range defined {
			switch r.Quality {
			case QualityNormal:
				qa.NormalRecords++
			case QualityAbnormal:
				qa.AbnormalRecords++
			}
		}
		qa.NormalRatio = RatioOrZero(float64(qa.NormalRecords), float64(len(defined)))
		s.Quality = qa
	}

	return s
}

func timePatterns(defined []*CorrelationRecord) *TimePatterns {
	type acc struct {
		trips, flow, ratio float64
		n                  int
	}
	hourly := make(map[int]*acc)
	var weekday, weekend acc

	add := func(a *acc, r *CorrelationRecord) {
		a.trips += float64(r.TripCount)
		a.flow += float64(*r.FlowTotal)
		a.ratio += r.ODFlowRatio
		a.n++
	}

	for _, r := range defined {
		h := hourly[r.Key.Hour]
		if h == nil {
			h = &acc{}
			hourly[r.Key.Hour] = h
		}
		add(h, r)
		if isWeekend(r.Key.Date) {
			add(&weekend, r)
		} else {
			add(&weekday, r)
		}
	}

	avg := func(a *acc) PatternAverages {
		if a.n == 0 {
			return PatternAverages{}
		}
		n := float64(a.n)
		return PatternAverages{
			MeanTripCount:   a.trips / n,
			MeanFlowTotal:   a.flow / n,
			MeanODFlowRatio: a.ratio / n,
		}
	}

	tp := &TimePatterns{Hourly: make(map[int]PatternAverages, len(hourly))}
	hours := make([]int, 0, len(hourly))
	for h, a := range hourly {
		tp.Hourly[h] = avg(a)
		hours = append(hours, h)
	}
	tp.Weekday = avg(&weekday)
	tp.Weekend = avg(&weekend)

	// peak set: 3 hours with the highest mean trip count, off-peak the lowest.
	// Ties break toward the earlier hour so the sets are reproducible.
	sort.Slice(hours, func(i, j int) bool {
		hi, hj := hours[i], hours[j]
		ti, tj := tp.Hourly[hi].MeanTripCount, tp.Hourly[hj].MeanTripCount
		if ti != tj {
			return ti > tj
		}
		return hi < hj
	})
	n := len(hours)
	take := 3
	if take > n {
		take = n
	}
	tp.Peak.PeakHours = append([]int{}, hours[:take]...)
	tp.Peak.OffPeakHours = append([]int{}, hours[n-take:]...)
	sort.Ints(tp.Peak.PeakHours)
	sort.Ints(tp.Peak.OffPeakHours)
	tp.Peak.PeakAvgODFlowRatio = hourSetAvgRatio(defined, tp.Peak.PeakHours)
	tp.Peak.OffPeakAvgODFlowRatio = hourSetAvgRatio(defined, tp.Peak.OffPeakHours)
	return tp
}

func hourSetAvgRatio(defined []*CorrelationRecord, hours []int) float64 {
	set := make(map[int]bool, len(hours))
	for _, h := range hours {
		set[h] = true
	}
	var sum float64
	var n int
	for _, r := range defined {
		if set[r.Key.Hour] {
			sum += r.ODFlowRatio
			n++
		}
	}
	return RatioOrZero(sum, float64(n))
}

func isWeekend(date string) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// distStats computes mean/median/std/min/max and quartiles over a non-empty
// series. Std is the sample standard deviation; quantiles interpolate
// linearly between order statistics.
func distStats(values []float64) DistStats {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := float64(len(sorted))
	mean := sum / n

	var sq float64
	for _, v := range sorted {
		d := v - mean
		sq += d * d
	}
	std := 0.0
	if len(sorted) > 1 {
		std = math.Sqrt(sq / (n - 1))
	}

	return DistStats{
		Mean:   mean,
		Median: quantile(sorted, 0.5),
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    quantile(sorted, 0.25),
		Q75:    quantile(sorted, 0.75),
	}
}

// quantile expects a sorted non-empty slice
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// pearson returns the correlation coefficient of two equal-length series, or
// nil when it is undefined (fewer than two points or zero variance)
func pearson(xs, ys []float64) *float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return nil
	}
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}
	r := cov / math.Sqrt(varX*varY)
	return &r
}
