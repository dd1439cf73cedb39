package scanner

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sensor_data_service/models"
)

// Columns is the expected CSV layout, header included.
var Columns = []string{
	"sensor_id", "timestamp", "pressure",
	"battery_voltage", "battery_current", "battery_power",
	"panel_voltage", "panel_current", "panel_power",
	"battery_temperature", "luminosity", "power_signal",
}

var timestampLayouts = []string{
	models.TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

const (
	defaultBatchSize  = 1000
	maxDefaultWorkers = 8
)

// ReadingWriter stores imported readings.
type ReadingWriter interface {
	Create(ctx context.Context, reading *models.SensorReading) error
	CreateInBatches(ctx context.Context, readings []models.SensorReading, batchSize int) error
}

// CSVScanner handles scanning and processing CSV files
type CSVScanner struct {
	store       ReadingWriter
	log         *zap.SugaredLogger
	workerCount int
	batchSize   int
}

// FileJob represents a CSV file to be processed
type FileJob struct {
	FilePath string
	FileName string
}

// ProcessResult contains the result of processing a CSV file
type ProcessResult struct {
	FilePath    string
	RecordCount int
	ErrorCount  int
	Duration    time.Duration
	Error       error
}

// Summary aggregates the results of a directory scan
type Summary struct {
	Files        int
	Successful   int
	Failed       int
	Records      int
	ParseErrors  int
	TotalElapsed time.Duration
}

// NewCSVScanner creates a new CSV scanner
func NewCSVScanner(store ReadingWriter, log *zap.Logger) *CSVScanner {
	workerCount := runtime.NumCPU()
	if workerCount > maxDefaultWorkers {
		workerCount = maxDefaultWorkers
	}

	return &CSVScanner{
		store:       store,
		log:         log.Sugar(),
		workerCount: workerCount,
		batchSize:   defaultBatchSize,
	}
}

// SetWorkerCount sets the number of parallel workers
func (cs *CSVScanner) SetWorkerCount(count int) {
	if count > 0 {
		cs.workerCount = count
	}
}

// SetBatchSize sets how many rows go into one insert
func (cs *CSVScanner) SetBatchSize(size int) {
	if size > 0 {
		cs.batchSize = size
	}
}

// ScanDirectory imports every CSV file directly inside directoryPath
func (cs *CSVScanner) ScanDirectory(ctx context.Context, directoryPath string) (Summary, error) {
	cs.log.Infof("Scanning directory: %s", directoryPath)

	if _, err := os.Stat(directoryPath); os.IsNotExist(err) {
		return Summary{}, fmt.Errorf("directory does not exist: %s", directoryPath)
	}

	csvFiles, err := cs.findCSVFiles(directoryPath)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to find CSV files: %w", err)
	}

	if len(csvFiles) == 0 {
		cs.log.Info("No CSV files found in the directory")
		return Summary{}, nil
	}

	cs.log.Infof("Found %d CSV file(s) to process with %d parallel workers", len(csvFiles), cs.workerCount)

	results := cs.processFilesParallel(ctx, csvFiles)
	return cs.summarize(results), nil
}

func (cs *CSVScanner) findCSVFiles(directoryPath string) ([]FileJob, error) {
	var csvFiles []FileJob

	entries, err := os.ReadDir(directoryPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".csv" {
			csvFiles = append(csvFiles, FileJob{
				FilePath: filepath.Join(directoryPath, entry.Name()),
				FileName: entry.Name(),
			})
		}
	}

	return csvFiles, nil
}

func (cs *CSVScanner) processFilesParallel(ctx context.Context, files []FileJob) []ProcessResult {
	jobs := make(chan FileJob, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < cs.workerCount; i++ {
		wg.Add(1)
		go cs.worker(ctx, jobs, results, &wg)
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []ProcessResult
	for result := range results {
		allResults = append(allResults, result)
	}

	return allResults
}

func (cs *CSVScanner) worker(ctx context.Context, jobs <-chan FileJob, results chan<- ProcessResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		results <- cs.processCSVFile(ctx, job)
	}
}

func (cs *CSVScanner) processCSVFile(ctx context.Context, job FileJob) ProcessResult {
	startTime := time.Now()
	result := ProcessResult{
		FilePath: job.FilePath,
	}
	fail := func(err error) ProcessResult {
		result.Error = err
		result.Duration = time.Since(startTime)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	cs.log.Infof("Processing file: %s", job.FileName)

	file, err := os.Open(job.FilePath)
	if err != nil {
		return fail(fmt.Errorf("failed to open file: %w", err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return fail(fmt.Errorf("failed to read CSV: %w", err))
	}
	if len(records) == 0 {
		return fail(fmt.Errorf("empty CSV file"))
	}

	readings, errorCount := cs.parseCSVRecords(records, job.FileName)
	result.RecordCount = len(readings)
	result.ErrorCount = errorCount

	if len(readings) > 0 {
		inserted, err := cs.batchInsert(ctx, readings)
		result.RecordCount = inserted
		if err != nil {
			return fail(fmt.Errorf("failed to insert data: %w", err))
		}
	}

	result.Duration = time.Since(startTime)
	cs.log.Infof("Completed %s: %d records processed, %d errors in %v",
		job.FileName, result.RecordCount, result.ErrorCount, result.Duration)

	return result
}

func (cs *CSVScanner) parseCSVRecords(records [][]string, fileName string) ([]models.SensorReading, int) {
	var readings []models.SensorReading
	var errorCount int

	startRow := 0
	if len(records) > 0 && isHeaderRow(records[0]) {
		startRow = 1
	}

	for i := startRow; i < len(records); i++ {
		record := records[i]

		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		reading, err := parseRecord(record)
		if err != nil {
			errorCount++
			cs.log.Warnf("Row %d in %s: %v", i+1, fileName, err)
			continue
		}
		readings = append(readings, reading)
	}

	return readings, errorCount
}

func parseRecord(record []string) (models.SensorReading, error) {
	var reading models.SensorReading

	if len(record) < len(Columns) {
		return reading, fmt.Errorf("insufficient columns (expected %d, got %d)", len(Columns), len(record))
	}

	reading.SensorID = strings.TrimSpace(record[0])
	if reading.SensorID == "" {
		return reading, fmt.Errorf("empty sensor id")
	}

	ts, err := parseTimestamp(record[1])
	if err != nil {
		return reading, err
	}
	reading.Timestamp = ts

	values := []*float64{
		&reading.Pressure,
		&reading.BatteryVoltage, &reading.BatteryCurrent, &reading.BatteryPower,
		&reading.PanelVoltage, &reading.PanelCurrent, &reading.PanelPower,
		&reading.BatteryTemperature, &reading.Luminosity, &reading.PowerSignal,
	}
	for j, dst := range values {
		raw := strings.TrimSpace(record[j+2])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return reading, fmt.Errorf("invalid %s: %q", Columns[j+2], raw)
		}
		*dst = v
	}

	return reading, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp format: %s", raw)
}

// isHeaderRow checks whether the first row names columns instead of holding data
func isHeaderRow(row []string) bool {
	if len(row) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	if first == "sensor_id" || first == "sensor" {
		return true
	}
	_, err := parseTimestamp(row[1])
	return err != nil
}

// batchInsert inserts readings in batches and returns how many were stored
func (cs *CSVScanner) batchInsert(ctx context.Context, readings []models.SensorReading) (int, error) {
	inserted := 0
	for i := 0; i < len(readings); i += cs.batchSize {
		end := i + cs.batchSize
		if end > len(readings) {
			end = len(readings)
		}
		batch := readings[i:end]

		if err := cs.store.CreateInBatches(ctx, batch, cs.batchSize); err != nil {
			n, err := cs.individualInsert(ctx, batch)
			inserted += n
			if err != nil {
				return inserted, err
			}
			continue
		}
		inserted += len(batch)
	}
	return inserted, nil
}

// individualInsert retries a failed batch row by row to isolate bad records
func (cs *CSVScanner) individualInsert(ctx context.Context, readings []models.SensorReading) (int, error) {
	var lastError error
	successCount := 0

	for i := range readings {
		record := readings[i]
		if err := cs.store.Create(ctx, &record); err != nil {
			lastError = err
			cs.log.Warnf("Failed to insert record %s at %s: %v",
				record.SensorID, models.FormatTimestamp(record.Timestamp), err)
			continue
		}
		successCount++
	}

	if successCount == 0 && lastError != nil {
		return 0, fmt.Errorf("failed to insert any records: %w", lastError)
	}
	if lastError != nil {
		cs.log.Infof("Inserted %d out of %d records with some errors", successCount, len(readings))
	}

	return successCount, nil
}

func (cs *CSVScanner) summarize(results []ProcessResult) Summary {
	summary := Summary{Files: len(results)}

	cs.log.Info(strings.Repeat("=", 60))
	cs.log.Info("PROCESSING SUMMARY")
	cs.log.Info(strings.Repeat("=", 60))

	for _, result := range results {
		if result.Error != nil {
			summary.Failed++
			cs.log.Infof("%s: FAILED - %v", filepath.Base(result.FilePath), result.Error)
		} else {
			summary.Successful++
			summary.Records += result.RecordCount
			summary.ParseErrors += result.ErrorCount
			cs.log.Infof("%s: %d records, %d errors (%v)",
				filepath.Base(result.FilePath), result.RecordCount, result.ErrorCount, result.Duration)
		}
		summary.TotalElapsed += result.Duration
	}

	cs.log.Info(strings.Repeat("-", 60))
	cs.log.Infof("Total files processed: %d", summary.Files)
	cs.log.Infof("Successful: %d", summary.Successful)
	cs.log.Infof("Failed: %d", summary.Failed)
	cs.log.Infof("Total records imported: %d", summary.Records)
	cs.log.Infof("Total parsing errors: %d", summary.ParseErrors)
	cs.log.Infof("Total processing time: %v", summary.TotalElapsed)

	return summary
}
