package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"od-flow-audit/analysis"
)

// ResultRepository persists reconciliation run outcomes to the result store
type ResultRepository struct {
	db *Database
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *Database) *ResultRepository {
	return &ResultRepository{db: db}
}

// InitSchema performs auto-migration of the result-store tables
func (r *ResultRepository) InitSchema() error {
	if err := r.db.db.AutoMigrate(
		&RunSnapshot{},
		&GantryLabelRow{},
		&FacetQualityRow{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	log.Println("✅ Result store schema ready")
	return nil
}

// SaveRun persists one run: the full payload snapshot plus the queryable
// gantry-label and facet-quality rollups
func (r *ResultRepository) SaveRun(windowStart, windowEnd string, result *analysis.Result) (uint, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run payload: %w", err)
	}

	snapshot := RunSnapshot{
		WindowStart:         windowStart,
		WindowEnd:           windowEnd,
		GeneratedAt:         result.GeneratedAt,
		TripCount:           result.TripCount,
		PassThroughExcluded: result.PassThroughExcluded,
		Payload:             string(payload),
	}
	if err := r.db.db.Create(&snapshot).Error; err != nil {
		return 0, fmt.Errorf("failed to save run snapshot: %w", err)
	}

	for i := range result.Labels {
		l := &result.Labels[i]
		row := GantryLabelRow{
			RunID:            snapshot.ID,
			GantryCode:       l.GantryCode,
			Label:            string(l.Label),
			MeanODRatio:      l.MeanODRatio,
			MeanTransitRatio: l.MeanTransitRatio,
			TotalFlow:        l.TotalFlow,
		}
		if err := r.db.db.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("failed to save gantry label %s: %w", l.GantryCode, err)
		}
	}

	for facet, fr := range result.Facets {
		row := FacetQualityRow{
			RunID:       snapshot.ID,
			Facet:       string(facet),
			TotalRows:   fr.Coverage.TotalRows,
			MatchedRows: fr.Coverage.MatchedRows,
			MatchRate:   fr.Coverage.MatchRate,
		}
		if fr.Summary != nil && fr.Summary.Quality != nil {
			row.NormalRecords = fr.Summary.Quality.NormalRecords
			row.AbnormalRecords = fr.Summary.Quality.AbnormalRecords
			row.NormalRatio = fr.Summary.Quality.NormalRatio
		}
		if err := r.db.db.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("failed to save facet quality row %s: %w", facet, err)
		}
	}

	log.Printf("✅ Saved run %d (%d labels, %d facets)", snapshot.ID, len(result.Labels), len(result.Facets))
	return snapshot.ID, nil
}

// LatestRun loads the most recent run snapshot, decoding the payload back
// into a full result. Returns nil when no run has been saved yet.
func (r *ResultRepository) LatestRun() (*RunSnapshot, *analysis.Result, error) {
	var snapshot RunSnapshot
	err := r.db.db.Order("generated_at DESC").First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	var result analysis.Result
	if err := json.Unmarshal([]byte(snapshot.Payload), &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode run %d payload: %w", snapshot.ID, err)
	}
	return &snapshot, &result, nil
}

// LabelHistory returns the saved labels of one gantry across runs, most
// recent first
func (r *ResultRepository) LabelHistory(gantryCode string, limit int) ([]GantryLabelRow, error) {
	var rows []GantryLabelRow
	err := r.db.db.
		Where("gantry_code = ?", gantryCode).
		Order("run_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load label history for %s: %w", gantryCode, err)
	}
	return rows, nil
}
