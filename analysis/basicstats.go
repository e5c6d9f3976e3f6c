package analysis

import "sort"

// ODPairCount is one origin/destination pair with its trip volume
type ODPairCount struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Trips       int    `json:"trips"`
}

// BasicStats is the descriptive overview of the trip set computed before any
// joining: volumes, class mix, time-of-day shape and endpoint coverage
type BasicStats struct {
	TotalTrips       int `json:"total_trips"`
	PassThroughTrips int `json:"pass_through_trips"`

	ClassCounts map[VehicleClass]int     `json:"class_counts"`
	ClassShares map[VehicleClass]float64 `json:"class_shares"`

	UniqueODPairs int           `json:"unique_od_pairs"`
	TopODPairs    []ODPairCount `json:"top_od_pairs"`

	HourlyTrips  [24]int `json:"hourly_trips"`
	WeekdayTrips [7]int  `json:"weekday_trips"` // Sunday = 0

	UniqueOrigins      int `json:"unique_origins"`
	UniqueDestinations int `json:"unique_destinations"`
}

const topODPairLimit = 20

// ComputeBasicStats summarizes the full trip set, pass-through rows included.
// Hour bins use the trip start time; pair volumes use classified endpoint
// codes so squares and gantries count under their canonical ids.
func ComputeBasicStats(trips []TripRecord) *BasicStats {
	s := &BasicStats{
		TotalTrips:  len(trips),
		ClassCounts: make(map[VehicleClass]int),
		ClassShares: make(map[VehicleClass]float64),
	}

	pairCounts := make(map[[2]string]int)
	origins := make(map[string]bool)
	dests := make(map[string]bool)

	for i := range trips {
		t := &trips[i]
		if t.IsPassThrough() {
			s.PassThroughTrips++
		}
		s.ClassCounts[t.VehicleClass()]++

		o, d := t.Origin().Code, t.Destination().Code
		pairCounts[[2]string{o, d}]++
		origins[o] = true
		dests[d] = true

		s.HourlyTrips[t.StartTime.Hour()]++
		s.WeekdayTrips[int(t.StartTime.Weekday())]++
	}

	for class, n := range s.ClassCounts {
		s.ClassShares[class] = RatioOrZero(float64(n), float64(s.TotalTrips))
	}

	s.UniqueODPairs = len(pairCounts)
	s.UniqueOrigins = len(origins)
	s.UniqueDestinations = len(dests)

	pairs := make([]ODPairCount, 0, len(pairCounts))
	for pair, n := range pairCounts {
		pairs = append(pairs, ODPairCount{Origin: pair[0], Destination: pair[1], Trips: n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Trips != pairs[j].Trips {
			return pairs[i].Trips > pairs[j].Trips
		}
		if pairs[i].Origin != pairs[j].Origin {
			return pairs[i].Origin < pairs[j].Origin
		}
		return pairs[i].Destination < pairs[j].Destination
	})
	if len(pairs) > topODPairLimit {
		pairs = pairs[:topODPairLimit]
	}
	s.TopODPairs = pairs
	return s
}
