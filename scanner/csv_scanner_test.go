package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"sensor_data_service/models"
)

type fakeWriter struct {
	mu        sync.Mutex
	readings  []models.SensorReading
	failBatch bool
	rejectID  string
	batches   int
}

func (f *fakeWriter) Create(_ context.Context, r *models.SensorReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.SensorID == f.rejectID {
		return errors.New("constraint failed")
	}
	f.readings = append(f.readings, *r)
	return nil
}

func (f *fakeWriter) CreateInBatches(_ context.Context, readings []models.SensorReading, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.failBatch {
		return errors.New("batch failed")
	}
	f.readings = append(f.readings, readings...)
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings)
}

func writeCSV(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

var header = strings.Join(Columns, ",")

func row(sensorID, ts string) string {
	return sensorID + "," + ts + ",1013.2,12.6,0.8,10.08,18.1,0.5,9.05,24.5,350,-71"
}

func TestParseRecord(t *testing.T) {
	r, err := parseRecord(strings.Split(row("s1", "2024-09-11 12:00:00"), ","))
	if err != nil {
		t.Fatalf("parseRecord failed: %v", err)
	}
	if r.SensorID != "s1" || !r.Timestamp.Equal(time.Date(2024, 9, 11, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected identity %+v", r)
	}
	if r.Pressure != 1013.2 || r.Luminosity != 350 || r.PowerSignal != -71 {
		t.Errorf("unexpected measurements %+v", r)
	}

	if _, err := parseRecord(strings.Split(row("s1", "2024-09-11T12:00:00Z"), ",")); err != nil {
		t.Errorf("RFC 3339 timestamps should be accepted: %v", err)
	}

	bad := [][]string{
		strings.Split(row("", "2024-09-11 12:00:00"), ","),
		strings.Split(row("s1", "2024/09/11"), ","),
		strings.Split(strings.Replace(row("s1", "2024-09-11 12:00:00"), "350", "bright", 1), ","),
		{"s1", "2024-09-11 12:00:00", "1.0"},
	}
	for _, record := range bad {
		if _, err := parseRecord(record); err == nil {
			t.Errorf("expected error for %v", record)
		}
	}
}

func TestIsHeaderRow(t *testing.T) {
	if !isHeaderRow(Columns) {
		t.Error("column names should be detected as header")
	}
	if isHeaderRow(strings.Split(row("s1", "2024-09-11 12:00:00"), ",")) {
		t.Error("data row misdetected as header")
	}
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "station_a.csv", header,
		row("a1", "2024-09-11 12:00:00"),
		row("a1", "2024-09-11 13:00:00"),
		row("a1", "not-a-time"),
		"",
	)
	writeCSV(t, dir, "station_b.CSV",
		row("b1", "2024-09-11 12:00:00"),
	)
	writeCSV(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	writeCSV(t, filepath.Join(dir, "nested"), "deep.csv", row("n1", "2024-09-11 12:00:00"))

	store := &fakeWriter{}
	cs := NewCSVScanner(store, zap.NewNop())
	cs.SetWorkerCount(2)

	summary, err := cs.ScanDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ScanDirectory failed: %v", err)
	}

	if summary.Files != 2 || summary.Successful != 2 || summary.Failed != 0 {
		t.Errorf("unexpected file counts %+v", summary)
	}
	if summary.Records != 3 || summary.ParseErrors != 1 {
		t.Errorf("unexpected record counts %+v", summary)
	}
	if store.count() != 3 {
		t.Errorf("expected 3 stored readings, got %d", store.count())
	}
}

func TestScanDirectory_MissingDirectory(t *testing.T) {
	cs := NewCSVScanner(&fakeWriter{}, zap.NewNop())
	if _, err := cs.ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestScanDirectory_FallsBackToIndividualInserts(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "mixed.csv", header,
		row("good", "2024-09-11 12:00:00"),
		row("bad", "2024-09-11 12:00:00"),
		row("good", "2024-09-11 13:00:00"),
	)

	store := &fakeWriter{failBatch: true, rejectID: "bad"}
	cs := NewCSVScanner(store, zap.NewNop())
	cs.SetBatchSize(2)

	summary, err := cs.ScanDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if store.batches != 2 {
		t.Errorf("expected 2 batch attempts, got %d", store.batches)
	}
	if store.count() != 2 || summary.Records != 2 {
		t.Errorf("expected 2 readings to survive row-by-row insert, got %d stored / %+v", store.count(), summary)
	}
}

func TestScanDirectory_AllRowsRejected(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bad.csv", header, row("bad", "2024-09-11 12:00:00"))

	store := &fakeWriter{failBatch: true, rejectID: "bad"}
	summary, err := NewCSVScanner(store, zap.NewNop()).ScanDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("expected the file to be reported as failed, got %+v", summary)
	}
}
