package generator

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"sensor_data_service/models"
	"sensor_data_service/scanner"
)

type countingWriter struct {
	mu    sync.Mutex
	count int
}

func (c *countingWriter) Create(context.Context, *models.SensorReading) error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return nil
}

func (c *countingWriter) CreateInBatches(_ context.Context, readings []models.SensorReading, _ int) error {
	c.mu.Lock()
	c.count += len(readings)
	c.mu.Unlock()
	return nil
}

func TestReadings_Shape(t *testing.T) {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	readings := Readings("s1", start, 2, 0, rand.New(rand.NewSource(1)))

	if len(readings) != 48 {
		t.Fatalf("expected 48 hourly readings, got %d", len(readings))
	}
	for i, r := range readings {
		if !r.Timestamp.Equal(start.Add(time.Duration(i) * time.Hour)) {
			t.Fatalf("reading %d has timestamp %v", i, r.Timestamp)
		}
		hour := r.Timestamp.Hour()
		if (hour < 6 || hour > 18) && r.PanelPower != 0 {
			t.Errorf("panel should be idle at %02d:00, got %.2f W", hour, r.PanelPower)
		}
		if r.Luminosity < 0 {
			t.Errorf("negative luminosity at %v", r.Timestamp)
		}
	}
	if readings[12].Luminosity <= readings[0].Luminosity {
		t.Error("expected noon to be brighter than midnight")
	}
}

func TestGenerate_RoundTripsThroughScanner(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Sensors: []string{"a", "b"},
		Days:    1,
		Start:   time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		Seed:    42,
	}

	paths, err := Generate(dir, opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %d", len(paths))
	}

	store := &countingWriter{}
	summary, err := scanner.NewCSVScanner(store, zap.NewNop()).ScanDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Records != 48 || summary.ParseErrors != 0 {
		t.Errorf("expected 48 clean records, got %+v", summary)
	}
	if store.count != 48 {
		t.Errorf("expected 48 stored readings, got %d", store.count)
	}
}

func TestGenerate_RejectsEmptyOptions(t *testing.T) {
	if _, err := Generate(t.TempDir(), Options{Days: 0, Sensors: []string{"a"}}); err == nil {
		t.Error("expected error for zero days")
	}
	if _, err := Generate(t.TempDir(), Options{Days: 1}); err == nil {
		t.Error("expected error for no sensors")
	}
}
