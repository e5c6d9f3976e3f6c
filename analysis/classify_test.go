package analysis

import (
	"testing"
	"time"
)

func TestClassifyVehicle(t *testing.T) {
	tests := []struct {
		raw      string
		expected VehicleClass
	}{
		{"k1", ClassPassenger},
		{"K3", ClassPassenger},
		{"h2", ClassTruck},
		{"H5", ClassTruck},
		{"t1", ClassTrailer},
		{"T2", ClassTrailer},
		{"x9", ClassOther},
		{"", ClassOther},
		{"1k", ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ClassifyVehicle(tt.raw); got != tt.expected {
				t.Errorf("ClassifyVehicle(%q) = %s, want %s", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestClassifyEndpoint(t *testing.T) {
	tests := []struct {
		name         string
		square       string
		station      string
		expectedCode string
		expectedType PointType
	}{
		{"square wins over station", "S01", "G01", "S01", PointTollSquare},
		{"station when no square", "", "G01", "G01", PointGantry},
		{"both missing yields empty gantry", "", "", "", PointGantry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := ClassifyEndpoint(tt.square, tt.station)
			if ep.Code != tt.expectedCode || ep.Type != tt.expectedType {
				t.Errorf("got (%q, %s), want (%q, %s)", ep.Code, ep.Type, tt.expectedCode, tt.expectedType)
			}
		})
	}
}

func TestClassificationIsIdempotent(t *testing.T) {
	trip := gantryTrip("P1", "G01", "G02", ts("2025-07-07", 8), ts("2025-07-07", 9))
	first := trip.Origin()
	for i := 0; i < 3; i++ {
		if got := trip.Origin(); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestIsPassThrough(t *testing.T) {
	start, end := ts("2025-07-07", 8), ts("2025-07-07", 9)

	same := gantryTrip("P1", "G01", "G01", start, end)
	if !same.IsPassThrough() {
		t.Error("same origin and destination code should be pass-through")
	}

	diff := gantryTrip("P2", "G01", "G02", start, end)
	if diff.IsPassThrough() {
		t.Error("distinct endpoints should not be pass-through")
	}

	// square code on one side, station on the other, same literal code
	mixed := TripRecord{
		PassID:           "P3",
		StartTime:        start,
		EndTime:          end,
		OriginSquareCode: "X1",
		DestStationCode:  "X1",
	}
	if !mixed.IsPassThrough() {
		t.Error("pass-through compares canonical codes regardless of endpoint type")
	}
}

func TestBinTimeUsesRecordLocalTime(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	at := time.Date(2025, 7, 7, 23, 59, 59, 0, loc)

	date, hour := BinTime(at)
	if date != "2025-07-07" || hour != 23 {
		t.Errorf("BinTime = (%s, %d), want (2025-07-07, 23)", date, hour)
	}
}

func TestBinTimeHourBoundary(t *testing.T) {
	date, hour := BinTime(ts("2025-07-07", 8))
	if date != "2025-07-07" || hour != 8 {
		t.Errorf("BinTime = (%s, %d), want (2025-07-07, 8)", date, hour)
	}

	// 59 minutes past still bins to the same hour
	date, hour = BinTime(ts("2025-07-07", 8).Add(59 * time.Minute))
	if hour != 8 {
		t.Errorf("hour = %d, want 8", hour)
	}
	_ = date
}

func TestExcludePassThrough(t *testing.T) {
	start, end := ts("2025-07-07", 8), ts("2025-07-07", 9)
	trips := []TripRecord{
		gantryTrip("P1", "G01", "G02", start, end),
		gantryTrip("P2", "G01", "G01", start, end),
		gantryTrip("P3", "G02", "G03", start, end),
	}

	valid, excluded := ExcludePassThrough(trips)
	if excluded != 1 {
		t.Errorf("excluded = %d, want 1", excluded)
	}
	if len(valid) != 2 {
		t.Errorf("valid = %d, want 2", len(valid))
	}
	for _, trip := range valid {
		if trip.IsPassThrough() {
			t.Errorf("pass-through trip %s survived exclusion", trip.PassID)
		}
	}
}
