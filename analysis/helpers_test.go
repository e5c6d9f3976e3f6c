package analysis

import "time"

// test fixture builders shared across the package tests

func ts(day string, hour int) time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func gantryTrip(passID, origin, dest string, start, end time.Time) TripRecord {
	return TripRecord{
		PassID:            passID,
		StartTime:         start,
		EndTime:           end,
		OriginStationCode: origin,
		DestStationCode:   dest,
		VehicleType:       "k1",
	}
}

func tollTrip(passID, originSquare, destSquare string, start, end time.Time) TripRecord {
	return TripRecord{
		PassID:           passID,
		StartTime:        start,
		EndTime:          end,
		OriginSquareCode: originSquare,
		DestSquareCode:   destSquare,
		VehicleType:      "k1",
	}
}

func flowRow(point string, role FlowRole, at time.Time, total int64) FlowRecord {
	return FlowRecord{
		PointCode: point,
		Role:      role,
		Timestamp: at,
		Total:     total,
	}
}

// repeatTrips builds n identical gantry trips with distinct pass ids
func repeatTrips(n int, origin, dest string, start, end time.Time) []TripRecord {
	trips := make([]TripRecord, 0, n)
	for i := 0; i < n; i++ {
		trips = append(trips, gantryTrip(passSeq(i), origin, dest, start, end))
	}
	return trips
}

func passSeq(i int) string {
	const digits = "0123456789"
	id := []byte("P00000")
	for pos := len(id) - 1; i > 0 && pos > 0; pos-- {
		id[pos] = digits[i%10]
		i /= 10
	}
	return string(id)
}
