package analysis

import "sort"

// EstimateTransit decomposes each gantry's hourly counter total into
// OD-related and transit components. The base set is the flow side: a gantry
// bin with counter data but no OD endpoints is pure transit, while OD
// endpoints with no counter row have nothing to decompose.
//
// transit_flow is clipped at zero (clock skew or counter undercounting can
// push od_related past the total). od_ratio is deliberately not clipped: a
// value above 1 is the visible trace of that clipping.
func EstimateTransit(gantryFlow map[AggregationKey]*FlowAggregate, originCounts, destCounts map[AggregationKey]int) []TransitEstimate {
	estimates := make([]TransitEstimate, 0, len(gantryFlow))
	for key, fa := range gantryFlow {
		origin := originCounts[key]
		dest := destCounts[key]
		odRelated := origin + dest

		transit := fa.Total - int64(odRelated)
		if transit < 0 {
			transit = 0
		}

		total := float64(fa.Total)
		estimates = append(estimates, TransitEstimate{
			GantryCode:         key.PointCode,
			Date:               key.Date,
			Hour:               key.Hour,
			OriginODCount:      origin,
			DestinationODCount: dest,
			TotalFlow:          fa.Total,
			ODRelatedFlow:      odRelated,
			TransitFlow:        transit,
			TransitRatio:       RatioOrZero(float64(transit), total),
			ODRatio:            RatioOrZero(float64(odRelated), total),
		})
	}
	sort.Slice(estimates, func(i, j int) bool {
		a, b := &estimates[i], &estimates[j]
		if a.GantryCode != b.GantryCode {
			return a.GantryCode < b.GantryCode
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Hour < b.Hour
	})
	return estimates
}

// FunctionThresholds configure the per-gantry role classification
type FunctionThresholds struct {
	ODRatio      float64 // mean od_ratio above this -> origin_dominant
	TransitRatio float64 // else mean transit_ratio above this -> channel
}

// ClassifyFunctions labels each gantry by its dominant role across the whole
// window. origin_dominant takes precedence over channel; everything else is
// mixed.
func ClassifyFunctions(estimates []TransitEstimate, th FunctionThresholds) []FunctionLabel {
	type acc struct {
		odRatio, transitRatio float64
		totalFlow             int64
		n                     int
	}
	byGantry := make(map[string]*acc)
	for i := range estimates {
		e := &estimates[i]
		a := byGantry[e.GantryCode]
		if a == nil {
			a = &acc{}
			byGantry[e.GantryCode] = a
		}
		a.odRatio += e.ODRatio
		a.transitRatio += e.TransitRatio
		a.totalFlow += e.TotalFlow
		a.n++
	}

	labels := make([]FunctionLabel, 0, len(byGantry))
	for code, a := range byGantry {
		n := float64(a.n)
		label := FunctionLabel{
			GantryCode:       code,
			MeanODRatio:      a.odRatio / n,
			MeanTransitRatio: a.transitRatio / n,
			TotalFlow:        a.totalFlow,
		}
		switch {
		case label.MeanODRatio > th.ODRatio:
			label.Label = FunctionOriginDominant
		case label.MeanTransitRatio > th.TransitRatio:
			label.Label = FunctionChannel
		default:
			label.Label = FunctionMixed
		}
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].GantryCode < labels[j].GantryCode })
	return labels
}

// TransitSummary is the network-level view of the transit decomposition
type TransitSummary struct {
	GantryCount       int       `json:"gantry_count"`
	BinCount          int       `json:"bin_count"`
	TotalFlow         int64     `json:"total_flow"`
	TotalODRelated    int64     `json:"total_od_related"`
	TotalTransit      int64     `json:"total_transit"`
	TransitShare      float64   `json:"transit_share"`
	TransitRatioStats DistStats `json:"transit_ratio_stats"`

	FunctionCounts map[FunctionType]int `json:"function_counts"`
}

// SummarizeTransit rolls the estimates and labels up to network totals
func SummarizeTransit(estimates []TransitEstimate, labels []FunctionLabel) *TransitSummary {
	s := &TransitSummary{
		BinCount:       len(estimates),
		FunctionCounts: make(map[FunctionType]int),
	}
	gantries := make(map[string]bool)
	ratios := make([]float64, 0, len(estimates))
	for i := range estimates {
		e := &estimates[i]
		gantries[e.GantryCode] = true
		s.TotalFlow += e.TotalFlow
		s.TotalODRelated += int64(e.ODRelatedFlow)
		s.TotalTransit += e.TransitFlow
		ratios = append(ratios, e.TransitRatio)
	}
	s.GantryCount = len(gantries)
	s.TransitShare = RatioOrZero(float64(s.TotalTransit), float64(s.TotalFlow))
	if len(ratios) > 0 {
		s.TransitRatioStats = distStats(ratios)
	}
	for i := range labels {
		s.FunctionCounts[labels[i].Label]++
	}
	return s
}
