package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"od-flow-audit/analysis"
)

// TripRepository extracts OD trip records from the warehouse
type TripRepository struct {
	db *DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *DB) *TripRepository {
	return &TripRepository{db: db}
}

// LoadTrips extracts trips for the half-open window [start, end). A trip
// belongs to the window when either its entry or its exit falls inside it;
// rows reachable through both sides are deduplicated by pass id.
func (r *TripRepository) LoadTrips(ctx context.Context, start, end time.Time) ([]analysis.TripRecord, error) {
	query := `
		SELECT pass_id, entry_time, exit_time,
		       entry_square_code, entry_station_code,
		       exit_square_code, exit_station_code,
		       vehicle_type
		FROM dwd_od_trip
		WHERE (entry_time >= $1 AND entry_time < $2)
		   OR (exit_time >= $1 AND exit_time < $2)
	`

	rows, err := r.db.conn.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var trips []analysis.TripRecord
	for rows.Next() {
		var (
			t                         analysis.TripRecord
			entrySquare, entryStation sql.NullString
			exitSquare, exitStation   sql.NullString
			vehicleType               sql.NullString
		)
		if err := rows.Scan(&t.PassID, &t.StartTime, &t.EndTime,
			&entrySquare, &entryStation, &exitSquare, &exitStation,
			&vehicleType); err != nil {
			return nil, fmt.Errorf("failed to scan trip row: %w", err)
		}
		if seen[t.PassID] {
			continue
		}
		seen[t.PassID] = true

		t.OriginSquareCode = entrySquare.String
		t.OriginStationCode = entryStation.String
		t.DestSquareCode = exitSquare.String
		t.DestStationCode = exitStation.String
		t.VehicleType = vehicleType.String
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trip row iteration failed: %w", err)
	}

	log.Printf("📊 Loaded %d trips for window %s .. %s", len(trips),
		start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
	return trips, nil
}

// FlowRepository extracts counter flow records from the warehouse
type FlowRepository struct {
	db *DB
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(db *DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// source tables per counter stream
var flowTables = map[analysis.FlowRole]string{
	analysis.RoleGantry:    "dwd_gantry_flow",
	analysis.RoleTollEntry: "dwd_toll_entry_flow",
	analysis.RoleTollExit:  "dwd_toll_exit_flow",
}

// LoadFlows extracts one counter stream for the half-open window [start, end)
func (r *FlowRepository) LoadFlows(ctx context.Context, role analysis.FlowRole, start, end time.Time) ([]analysis.FlowRecord, error) {
	table, ok := flowTables[role]
	if !ok {
		return nil, fmt.Errorf("unknown flow role %q", role)
	}

	query := fmt.Sprintf(`
		SELECT point_code, stat_time, total_flow, k_flow, h_flow, t_flow
		FROM %s
		WHERE stat_time >= $1 AND stat_time < $2
	`, table)

	rows, err := r.db.conn.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var records []analysis.FlowRecord
	for rows.Next() {
		var (
			rec     analysis.FlowRecord
			total   sql.NullInt64
			k, h, t sql.NullInt64
		)
		if err := rows.Scan(&rec.PointCode, &rec.Timestamp, &total, &k, &h, &t); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		rec.Role = role
		rec.Total = total.Int64
		rec.Classes = analysis.ClassTotals{
			Passenger: k.Int64,
			Truck:     h.Int64,
			Trailer:   t.Int64,
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s row iteration failed: %w", table, err)
	}

	log.Printf("📊 Loaded %d %s counter rows", len(records), role)
	return records, nil
}

// InsertFlows stores counter rows received from the live feed collector into
// the same tables the batch extraction reads
func (r *FlowRepository) InsertFlows(ctx context.Context, records []analysis.FlowRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin flow insert: %w", err)
	}
	defer tx.Rollback()

	stmts := make(map[analysis.FlowRole]*sql.Stmt, len(flowTables))
	for role, table := range flowTables {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (point_code, stat_time, total_flow, k_flow, h_flow, t_flow)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (point_code, stat_time) DO UPDATE SET
				total_flow = EXCLUDED.total_flow,
				k_flow = EXCLUDED.k_flow,
				h_flow = EXCLUDED.h_flow,
				t_flow = EXCLUDED.t_flow
		`, table))
		if err != nil {
			return fmt.Errorf("failed to prepare %s insert: %w", table, err)
		}
		defer stmt.Close()
		stmts[role] = stmt
	}

	for i := range records {
		rec := &records[i]
		stmt, ok := stmts[rec.Role]
		if !ok {
			return fmt.Errorf("unknown flow role %q", rec.Role)
		}
		if _, err := stmt.ExecContext(ctx, rec.PointCode, rec.Timestamp,
			rec.Total, rec.Classes.Passenger, rec.Classes.Truck, rec.Classes.Trailer); err != nil {
			return fmt.Errorf("failed to insert flow row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flow insert: %w", err)
	}
	return nil
}
