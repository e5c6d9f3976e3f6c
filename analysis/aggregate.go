package analysis

// facetEndpoint resolves the endpoint and event time a facet aggregates on.
// Origin facets bin on start time, destination facets on end time: a trip is
// both an origin event and a destination event in possibly different bins.
func facetEndpoint(f Facet, t *TripRecord) (Endpoint, AggregationKey, bool) {
	switch f {
	case FacetGantryOrigin:
		ep := t.Origin()
		return ep, KeyFor(ep.Code, t.StartTime), ep.Type == PointGantry
	case FacetGantryDestination:
		ep := t.Destination()
		return ep, KeyFor(ep.Code, t.EndTime), ep.Type == PointGantry
	case FacetTollEntry:
		ep := t.Origin()
		return ep, KeyFor(ep.Code, t.StartTime), ep.Type == PointTollSquare
	case FacetTollExit:
		ep := t.Destination()
		return ep, KeyFor(ep.Code, t.EndTime), ep.Type == PointTollSquare
	}
	return Endpoint{}, AggregationKey{}, false
}

// AggregateTrips groups the facet's trips by (point, date, hour) into counts
// and vehicle-class histograms. Keys with no observed trips are simply absent;
// absence becomes an unmatched signal downstream, not a zero row.
func AggregateTrips(trips []TripRecord, facet Facet) map[AggregationKey]*TripAggregate {
	out := make(map[AggregationKey]*TripAggregate)
	for i := range trips {
		t := &trips[i]
		_, key, ok := facetEndpoint(facet, t)
		if !ok {
			continue
		}
		agg := out[key]
		if agg == nil {
			agg = &TripAggregate{Key: key, Histogram: make(map[VehicleClass]int)}
			out[key] = agg
		}
		agg.TripCount++
		agg.Histogram[t.VehicleClass()]++
	}
	return out
}

// AggregateFlows groups counter rows by (point, date, hour), summing totals
// and per-class subtotals directly from the source counters
func AggregateFlows(rows []FlowRecord) map[AggregationKey]*FlowAggregate {
	out := make(map[AggregationKey]*FlowAggregate)
	for i := range rows {
		r := &rows[i]
		key := KeyFor(r.PointCode, r.Timestamp)
		agg := out[key]
		if agg == nil {
			agg = &FlowAggregate{Key: key}
			out[key] = agg
		}
		agg.Total += r.Total
		agg.Classes.Add(r.Classes)
	}
	return out
}

// CountTripsByKey is the count-only aggregation used by the transit-flow
// estimator, which needs per-bin endpoint counts without histograms
func CountTripsByKey(trips []TripRecord, facet Facet) map[AggregationKey]int {
	out := make(map[AggregationKey]int)
	for i := range trips {
		_, key, ok := facetEndpoint(facet, &trips[i])
		if !ok {
			continue
		}
		out[key]++
	}
	return out
}
