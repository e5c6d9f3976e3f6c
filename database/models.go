// Package database provides data access for the OD/flow reconciliation
// pipeline.
//
// Two connection layers coexist on purpose:
//   - a database/sql + lib/pq connection for the large window extraction
//     scans against the toll data warehouse (read side);
//   - a GORM connection for the audit result store, where run snapshots,
//     gantry labels and quality rollups are persisted (write side).
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the GORM connection used by the audit result store.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes the result-store connection using GORM
func Connect(host, port, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the result-store connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunSnapshot is one persisted reconciliation run
type RunSnapshot struct {
	ID          uint      `gorm:"primaryKey"`
	WindowStart string    `gorm:"index;size:32"`
	WindowEnd   string    `gorm:"size:32"`
	GeneratedAt time.Time `gorm:"index"`

	TripCount           int
	PassThroughExcluded int

	// full result bundle, stored as JSON for later inspection
	Payload string `gorm:"type:jsonb"`

	CreatedAt time.Time
}

// GantryLabelRow is one persisted gantry function label
type GantryLabelRow struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            uint   `gorm:"index"`
	GantryCode       string `gorm:"index;size:64"`
	Label            string `gorm:"size:32"`
	MeanODRatio      float64
	MeanTransitRatio float64
	TotalFlow        int64

	CreatedAt time.Time
}

// FacetQualityRow is the per-facet quality rollup of one run
type FacetQualityRow struct {
	ID    uint   `gorm:"primaryKey"`
	RunID uint   `gorm:"index"`
	Facet string `gorm:"size:32"`

	TotalRows       int
	MatchedRows     int
	MatchRate       float64
	NormalRecords   int
	AbnormalRecords int
	NormalRatio     float64

	CreatedAt time.Time
}
