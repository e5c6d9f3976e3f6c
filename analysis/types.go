// Package analysis implements the OD/flow reconciliation core: it bins trip
// and counter records into shared (point, date, hour) keys, joins the two
// sides, and derives consistency ratios, transit-flow estimates, gantry
// function labels and diagnostic samples for a bounded time window.
//
// The package is a pure batch engine. It performs no I/O: extraction feeds it
// a Dataset, and the result bundle is plain structs ready for serialization.
package analysis

import "time"

// PointType distinguishes open-road gantries from toll-square plazas
type PointType string

const (
	PointGantry     PointType = "gantry"
	PointTollSquare PointType = "toll_square"
)

// FlowRole identifies which physical counter stream produced a flow record
type FlowRole string

const (
	RoleGantry    FlowRole = "gantry"
	RoleTollEntry FlowRole = "toll_entry"
	RoleTollExit  FlowRole = "toll_exit"
)

// VehicleClass is the coarse class derived from the raw vehicle type code
type VehicleClass string

const (
	ClassPassenger VehicleClass = "passenger"
	ClassTruck     VehicleClass = "truck"
	ClassTrailer   VehicleClass = "trailer"
	ClassOther     VehicleClass = "other"
)

// Facet names one of the four reconciliation views over the joined data
type Facet string

const (
	FacetGantryOrigin      Facet = "gantry_origin"
	FacetGantryDestination Facet = "gantry_destination"
	FacetTollEntry         Facet = "toll_square_entry"
	FacetTollExit          Facet = "toll_square_exit"
)

// Facets lists all reconciliation facets in reporting order
var Facets = []Facet{FacetGantryOrigin, FacetGantryDestination, FacetTollEntry, FacetTollExit}

// IsTollSquare reports whether the facet reconciles against a plaza ramp
// stream, where flow and OD counts are expected to be near 1:1
func (f Facet) IsTollSquare() bool {
	return f == FacetTollEntry || f == FacetTollExit
}

// TripRecord is one vehicle trip from the toll-collection OD extract.
// Square codes are empty when the endpoint is a gantry; the station code is
// then the canonical point id.
type TripRecord struct {
	PassID            string
	StartTime         time.Time
	EndTime           time.Time
	OriginSquareCode  string
	OriginStationCode string
	DestSquareCode    string
	DestStationCode   string
	VehicleType       string
}

// FlowRecord is one aggregate counter row from a gantry or ramp stream
type FlowRecord struct {
	PointCode string
	Role      FlowRole
	Timestamp time.Time
	Total     int64
	Classes   ClassTotals
}

// ClassTotals holds per-class counter subtotals (k/h/t in the source schema)
type ClassTotals struct {
	Passenger int64 `json:"passenger"`
	Truck     int64 `json:"truck"`
	Trailer   int64 `json:"trailer"`
}

// Add accumulates another set of subtotals
func (c *ClassTotals) Add(o ClassTotals) {
	c.Passenger += o.Passenger
	c.Truck += o.Truck
	c.Trailer += o.Trailer
}

// AggregationKey is the shared temporal-spatial join key for both sides
type AggregationKey struct {
	PointCode string `json:"point_code"`
	Date      string `json:"date"` // calendar date, YYYY-MM-DD, record-local time
	Hour      int    `json:"hour"` // 0..23
}

// TripAggregate is the trip-side rollup for one key
type TripAggregate struct {
	Key       AggregationKey       `json:"key"`
	TripCount int                  `json:"trip_count"`
	Histogram map[VehicleClass]int `json:"vehicle_class_histogram"`
}

// FlowAggregate is the counter-side rollup for one key
type FlowAggregate struct {
	Key     AggregationKey `json:"key"`
	Total   int64          `json:"flow_total"`
	Classes ClassTotals    `json:"flow_class_totals"`
}

// QualityFlag marks a matched toll-square row as inside or outside the
// expected flow/OD consistency band
type QualityFlag string

const (
	QualityNormal   QualityFlag = "normal"
	QualityAbnormal QualityFlag = "abnormal"
	QualityUnknown  QualityFlag = "" // gantry facets and unmatched rows carry no flag
)

// ClassComparison compares the vehicle-class mix of the two sides for one class
type ClassComparison struct {
	TripShare float64 `json:"trip_share"`
	FlowShare float64 `json:"flow_share"`
	RatioDiff float64 `json:"ratio_diff"` // trip_share - flow_share
}

// CorrelationRecord is one joined row: a trip aggregate with its (possibly
// missing) flow counterpart and the derived consistency ratios.
// FlowTotal is nil when the key had no counter data; such rows participate in
// coverage accounting but never in ratio statistics. Ratio fields are
// meaningful only when Defined is true (FlowTotal non-nil and positive).
type CorrelationRecord struct {
	Key       AggregationKey       `json:"key"`
	TripCount int                  `json:"trip_count"`
	Histogram map[VehicleClass]int `json:"vehicle_class_histogram"`

	FlowTotal   *int64      `json:"flow_total"`
	FlowClasses ClassTotals `json:"flow_class_totals"`

	Defined     bool        `json:"ratios_defined"`
	ODFlowRatio float64     `json:"od_flow_ratio"`
	FlowODRatio float64     `json:"flow_od_ratio"`
	Quality     QualityFlag `json:"quality_flag,omitempty"`

	ClassDiffs map[VehicleClass]ClassComparison `json:"class_ratio_diffs,omitempty"`
}

// Matched reports whether a flow aggregate was found for the row's key
func (r *CorrelationRecord) Matched() bool { return r.FlowTotal != nil }

// Coverage accounts for key overlap between the two sides of a facet over the
// full left-joined set, unmatched rows included
type Coverage struct {
	TotalRows      int      `json:"total_rows"`
	MatchedRows    int      `json:"matched_rows"`
	UnmatchedRows  int      `json:"unmatched_rows"`
	MatchRate      float64  `json:"match_rate"`
	SharedPoints   []string `json:"shared_points"`
	TripOnlyPoints []string `json:"trip_only_points"`
	FlowOnlyPoints []string `json:"flow_only_points"`
}

// TransitEstimate is the derived through-traffic estimate for one gantry bin.
// TransitFlow is clipped at zero; ODRatio is deliberately not clamped so that
// values above 1 remain visible as a clipping signal.
type TransitEstimate struct {
	GantryCode         string  `json:"gantry_code"`
	Date               string  `json:"date"`
	Hour               int     `json:"hour"`
	OriginODCount      int     `json:"origin_od_count"`
	DestinationODCount int     `json:"destination_od_count"`
	TotalFlow          int64   `json:"total_flow"`
	ODRelatedFlow      int     `json:"od_related_flow"`
	TransitFlow        int64   `json:"transit_flow"`
	TransitRatio       float64 `json:"transit_ratio"`
	ODRatio            float64 `json:"od_ratio"`
}

// FunctionType labels the dominant role a gantry plays in the network
type FunctionType string

const (
	FunctionOriginDominant FunctionType = "origin_dominant"
	FunctionChannel        FunctionType = "channel"
	FunctionMixed          FunctionType = "mixed"
)

// FunctionLabel is the per-gantry functional classification
type FunctionLabel struct {
	GantryCode       string       `json:"gantry_code"`
	MeanODRatio      float64      `json:"mean_od_ratio"`
	MeanTransitRatio float64      `json:"mean_transit_ratio"`
	TotalFlow        int64        `json:"total_flow"`
	Label            FunctionType `json:"label"`
}
