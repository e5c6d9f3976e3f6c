package analysis

import (
	"strings"
	"time"
)

// ClassifyVehicle maps a raw vehicle type code to its coarse class using the
// first character: k -> passenger, h -> truck, t -> trailer. Unknown or empty
// codes fall into ClassOther; partial records still carry volume signal.
func ClassifyVehicle(raw string) VehicleClass {
	if raw == "" {
		return ClassOther
	}
	switch strings.ToLower(raw[:1]) {
	case "k":
		return ClassPassenger
	case "h":
		return ClassTruck
	case "t":
		return ClassTrailer
	default:
		return ClassOther
	}
}

// Endpoint is a classified trip endpoint: the canonical point id plus whether
// it is a plaza or a gantry
type Endpoint struct {
	Code string
	Type PointType
}

// ClassifyEndpoint derives the endpoint from the optional square code and the
// station code. A present square code wins and marks a toll square; otherwise
// the station (gantry) code is canonical. Both missing yields an empty-code
// gantry endpoint rather than a rejection.
func ClassifyEndpoint(squareCode, stationCode string) Endpoint {
	if squareCode != "" {
		return Endpoint{Code: squareCode, Type: PointTollSquare}
	}
	return Endpoint{Code: stationCode, Type: PointGantry}
}

// Origin returns the trip's classified origin endpoint
func (t *TripRecord) Origin() Endpoint {
	return ClassifyEndpoint(t.OriginSquareCode, t.OriginStationCode)
}

// Destination returns the trip's classified destination endpoint
func (t *TripRecord) Destination() Endpoint {
	return ClassifyEndpoint(t.DestSquareCode, t.DestStationCode)
}

// IsPassThrough reports whether origin and destination resolve to the same
// point: a vehicle crossing the tolled section without a real endpoint here.
// Such trips are a defined business exclusion, not an error.
func (t *TripRecord) IsPassThrough() bool {
	return t.Origin().Code == t.Destination().Code
}

// VehicleClass returns the trip's derived vehicle class
func (t *TripRecord) VehicleClass() VehicleClass {
	return ClassifyVehicle(t.VehicleType)
}

// BinTime maps a timestamp to its (calendar date, hour-of-day) bin using the
// value's own stored local time. Trip and flow sides use the same binning so
// keys always align.
func BinTime(ts time.Time) (date string, hour int) {
	return ts.Format("2006-01-02"), ts.Hour()
}

// KeyFor builds the aggregation key for a point at a timestamp
func KeyFor(pointCode string, ts time.Time) AggregationKey {
	date, hour := BinTime(ts)
	return AggregationKey{PointCode: pointCode, Date: date, Hour: hour}
}

// ExcludePassThrough splits trips into the analyzable set and the count of
// excluded pass-through records
func ExcludePassThrough(trips []TripRecord) ([]TripRecord, int) {
	valid := make([]TripRecord, 0, len(trips))
	excluded := 0
	for _, t := range trips {
		if t.IsPassThrough() {
			excluded++
			continue
		}
		valid = append(valid, t)
	}
	return valid, excluded
}
