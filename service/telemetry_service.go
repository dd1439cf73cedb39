package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sensor_data_service/models"
)

// HealthMessage is returned by the liveness endpoint
const HealthMessage = "Sensor Data Service"

// ReadingStore is the persistence the service needs.
type ReadingStore interface {
	Create(ctx context.Context, reading *models.SensorReading) error
	List(ctx context.Context, offset, limit int) ([]models.SensorReading, error)
	FindBySensor(ctx context.Context, sensorID string, rng models.TimeRange) ([]models.SensorReading, error)
	DeleteBySensor(ctx context.Context, sensorID string, rng models.TimeRange) (int64, error)
	ExistsBySensor(ctx context.Context, sensorID string) (bool, error)
}

// Pinger reports whether the backing database answers.
type Pinger func(ctx context.Context) error

// Options tune ingestion behaviour.
type Options struct {
	UniqueSensorID bool
}

// TelemetryService implements the reading operations on top of a ReadingStore.
type TelemetryService struct {
	store  ReadingStore
	ping   Pinger
	opts   Options
	logger *zap.Logger
}

// NewTelemetryService returns service instance. ping may be nil.
func NewTelemetryService(store ReadingStore, ping Pinger, opts Options, logger *zap.Logger) *TelemetryService {
	return &TelemetryService{
		store:  store,
		ping:   ping,
		opts:   opts,
		logger: logger,
	}
}

// Ingest validates in, stores it and returns the generated id.
func (s *TelemetryService) Ingest(ctx context.Context, in ReadingInput) (uint, error) {
	reading, err := ParseReading(in)
	if err != nil {
		return 0, err
	}

	if s.opts.UniqueSensorID {
		exists, err := s.store.ExistsBySensor(ctx, reading.SensorID)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, ErrConflict
		}
	}

	if err := s.store.Create(ctx, &reading); err != nil {
		return 0, err
	}

	s.logger.Debug("reading stored",
		zap.Uint("id", reading.ID),
		zap.String("sensor_id", reading.SensorID),
		zap.Time("timestamp", reading.Timestamp),
	)
	return reading.ID, nil
}

// ListAll returns a page of readings in insertion order.
func (s *TelemetryService) ListAll(ctx context.Context, skip, limit int) ([]models.SensorReading, error) {
	if err := ValidatePage(skip, limit); err != nil {
		return nil, err
	}
	return s.store.List(ctx, skip, limit)
}

// ListBySensor returns the readings of sensorID inside rng, or ErrNotFound.
func (s *TelemetryService) ListBySensor(ctx context.Context, sensorID string, rng models.TimeRange) ([]models.SensorReading, error) {
	readings, err := s.store.FindBySensor(ctx, sensorID, rng)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrNotFound
	}
	return readings, nil
}

// DeleteBySensor removes the readings of sensorID inside rng and returns how
// many were removed, or ErrNotFound when none matched.
func (s *TelemetryService) DeleteBySensor(ctx context.Context, sensorID string, rng models.TimeRange) (int64, error) {
	deleted, err := s.store.DeleteBySensor(ctx, sensorID, rng)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, ErrNotFound
	}

	s.logger.Info("readings deleted",
		zap.String("sensor_id", sensorID),
		zap.Int64("deleted_count", deleted),
	)
	return deleted, nil
}

// Health returns the static liveness message.
func (s *TelemetryService) Health() string {
	return HealthMessage
}

// Ready checks that the database answers.
func (s *TelemetryService) Ready(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	if err := s.ping(ctx); err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	return nil
}
