package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"sensor_data_service/models"
)

// ReadingRepository persists sensor readings in the sensor_data table.
// Every call runs in its own session derived from ctx; each statement is its
// own implicit transaction.
type ReadingRepository struct {
	db *gorm.DB
}

// Stats summarizes the stored readings
type Stats struct {
	Total         int64
	UniqueSensors int64
	Earliest      *time.Time
	Latest        *time.Time
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *gorm.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Create inserts reading and fills in its generated ID.
func (r *ReadingRepository) Create(ctx context.Context, reading *models.SensorReading) error {
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// CreateInBatches inserts readings batchSize rows at a time.
func (r *ReadingRepository) CreateInBatches(ctx context.Context, readings []models.SensorReading, batchSize int) error {
	if len(readings) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(readings, batchSize).Error; err != nil {
		return fmt.Errorf("batch insert readings: %w", err)
	}
	return nil
}

// List returns a page of readings in insertion order.
func (r *ReadingRepository) List(ctx context.Context, offset, limit int) ([]models.SensorReading, error) {
	readings := []models.SensorReading{}
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return readings, nil
}

// FindBySensor returns the readings of sensorID within rng, oldest first.
func (r *ReadingRepository) FindBySensor(ctx context.Context, sensorID string, rng models.TimeRange) ([]models.SensorReading, error) {
	readings := []models.SensorReading{}
	err := r.bySensor(r.db.WithContext(ctx), sensorID, rng).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("find readings for %s: %w", sensorID, err)
	}
	return readings, nil
}

// DeleteBySensor removes the readings of sensorID within rng and reports how many went.
func (r *ReadingRepository) DeleteBySensor(ctx context.Context, sensorID string, rng models.TimeRange) (int64, error) {
	result := r.bySensor(r.db.WithContext(ctx), sensorID, rng).Delete(&models.SensorReading{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete readings for %s: %w", sensorID, result.Error)
	}
	return result.RowsAffected, nil
}

// ExistsBySensor reports whether any reading of sensorID is stored.
func (r *ReadingRepository) ExistsBySensor(ctx context.Context, sensorID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SensorReading{}).
		Where("sensor_id = ?", sensorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check sensor %s: %w", sensorID, err)
	}
	return count > 0, nil
}

// Stats returns row count, distinct sensor count and timestamp bounds.
func (r *ReadingRepository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.SensorReading{}).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("count readings: %w", err)
	}
	if err := db.Model(&models.SensorReading{}).Distinct("sensor_id").Count(&stats.UniqueSensors).Error; err != nil {
		return stats, fmt.Errorf("count sensors: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var earliest, latest models.SensorReading
	if err := db.Order("timestamp ASC").Order("id ASC").Take(&earliest).Error; err != nil {
		return stats, fmt.Errorf("earliest reading: %w", err)
	}
	if err := db.Order("timestamp DESC").Order("id DESC").Take(&latest).Error; err != nil {
		return stats, fmt.Errorf("latest reading: %w", err)
	}
	stats.Earliest = &earliest.Timestamp
	stats.Latest = &latest.Timestamp

	return stats, nil
}

func (r *ReadingRepository) bySensor(db *gorm.DB, sensorID string, rng models.TimeRange) *gorm.DB {
	q := db.Where("sensor_id = ?", sensorID)
	if rng.Start != nil {
		q = q.Where("timestamp >= ?", rng.Start.UTC())
	}
	if rng.End != nil {
		q = q.Where("timestamp <= ?", rng.End.UTC())
	}
	return q
}
