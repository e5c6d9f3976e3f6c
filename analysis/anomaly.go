package analysis

import (
	"sort"
	"time"
)

// Anomaly check identifiers
const (
	AnomalyDuplicatePassID  = "duplicate_pass_id"
	AnomalyReversedInterval = "reversed_interval"
	AnomalyLongTravel       = "long_travel"
	AnomalyShortTravel      = "short_travel"
	AnomalyMissingEndpoints = "missing_endpoints"
)

const anomalySampleCap = 10

// AnomalySample is one offending trip, trimmed to what a reviewer needs
type AnomalySample struct {
	PassID      string    `json:"pass_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	VehicleType string    `json:"vehicle_type"`
}

// AnomalyCheck is the outcome of a single validity rule over the trip set
type AnomalyCheck struct {
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Share   float64         `json:"share"`
	Samples []AnomalySample `json:"samples,omitempty"`
}

// AnomalyReport collects the trip validity checks run before aggregation.
// Anomalous trips are reported, not dropped: the audit compares what the two
// systems recorded, including their mistakes.
type AnomalyReport struct {
	TotalTrips int            `json:"total_trips"`
	Checks     []AnomalyCheck `json:"checks"`
}

// AnomalyThresholds configure the travel-time validity rules
type AnomalyThresholds struct {
	LongTravel  time.Duration
	ShortTravel time.Duration
}

// DetectAnomalies runs the trip validity rules: duplicated pass ids, reversed
// time intervals, implausibly long or short travel times, and rows with no
// endpoint code on either side. Short travel only flags trips with distinct
// endpoints; an instant pass-through reading is a different, already excluded
// category.
func DetectAnomalies(trips []TripRecord, th AnomalyThresholds) *AnomalyReport {
	report := &AnomalyReport{TotalTrips: len(trips)}

	seen := make(map[string]int, len(trips))
	for i := range trips {
		seen[trips[i].PassID]++
	}

	checks := []struct {
		name string
		hit  func(t *TripRecord) bool
	}{
		{AnomalyDuplicatePassID, func(t *TripRecord) bool {
			return seen[t.PassID] > 1
		}},
		{AnomalyReversedInterval, func(t *TripRecord) bool {
			return t.EndTime.Before(t.StartTime)
		}},
		{AnomalyLongTravel, func(t *TripRecord) bool {
			return t.EndTime.Sub(t.StartTime) > th.LongTravel
		}},
		{AnomalyShortTravel, func(t *TripRecord) bool {
			d := t.EndTime.Sub(t.StartTime)
			return d >= 0 && d < th.ShortTravel && !t.IsPassThrough()
		}},
		{AnomalyMissingEndpoints, func(t *TripRecord) bool {
			return t.Origin().Code == "" || t.Destination().Code == ""
		}},
	}

	for _, c := range checks {
		check := AnomalyCheck{Name: c.name}
		for i := range trips {
			t := &trips[i]
			if !c.hit(t) {
				continue
			}
			check.Count++
			if len(check.Samples) < anomalySampleCap {
				check.Samples = append(check.Samples, AnomalySample{
					PassID:      t.PassID,
					StartTime:   t.StartTime,
					EndTime:     t.EndTime,
					Origin:      t.Origin().Code,
					Destination: t.Destination().Code,
					VehicleType: t.VehicleType,
				})
			}
		}
		check.Share = RatioOrZero(float64(check.Count), float64(len(trips)))
		report.Checks = append(report.Checks, check)
	}
	sort.Slice(report.Checks, func(i, j int) bool { return report.Checks[i].Name < report.Checks[j].Name })
	return report
}

// AnomalyShare returns the highest single-check share, the signal watched by
// the alerting layer
func (r *AnomalyReport) AnomalyShare() float64 {
	var max float64
	for i := range r.Checks {
		if r.Checks[i].Share > max {
			max = r.Checks[i].Share
		}
	}
	return max
}
