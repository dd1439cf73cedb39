package generator

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"sensor_data_service/models"
	"sensor_data_service/scanner"
)

// Options controls how much sample data is produced
type Options struct {
	Sensors []string
	Days    int
	Start   time.Time
	Seed    int64
}

// DefaultOptions returns one month of hourly readings for three stations
func DefaultOptions() Options {
	return Options{
		Sensors: []string{"station_01", "station_02", "station_03"},
		Days:    30,
		Start:   time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -30),
		Seed:    time.Now().UnixNano(),
	}
}

// Generate writes one CSV file per sensor into outputDir and returns the file paths
func Generate(outputDir string, opts Options) ([]string, error) {
	if opts.Days <= 0 || len(opts.Sensors) == 0 {
		return nil, fmt.Errorf("nothing to generate: %d days, %d sensors", opts.Days, len(opts.Sensors))
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	paths := make([]string, len(opts.Sensors))
	errs := make([]error, len(opts.Sensors))

	var wg sync.WaitGroup
	for i, sensor := range opts.Sensors {
		wg.Add(1)
		go func(i int, sensor string) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
			path := filepath.Join(outputDir, sensor+".csv")
			errs[i] = writeCSV(path, Readings(sensor, opts.Start, opts.Days, float64(i), rng))
			paths[i] = path
		}(i, sensor)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", paths[i], err)
		}
	}
	return paths, nil
}

// Readings simulates hourly readings of a solar powered station. Luminosity and
// panel output follow the sun, the battery charges by day and drains at night.
func Readings(sensorID string, start time.Time, days int, offset float64, rng *rand.Rand) []models.SensorReading {
	readings := make([]models.SensorReading, 0, days*24)
	charge := 0.6

	for h := 0; h < days*24; h++ {
		ts := start.Add(time.Duration(h) * time.Hour).UTC()
		hour := float64(ts.Hour())

		sun := 0.0
		if hour >= 6 && hour <= 18 {
			sun = math.Sin((hour - 6) * math.Pi / 12)
		}
		luminosity := math.Max(0, 1000*sun*(0.8+rng.Float64()*0.4)+rng.Float64()*10)

		panelVoltage := 0.0
		panelCurrent := 0.0
		if sun > 0 {
			panelVoltage = 17 + 2*sun + rng.Float64()*0.5
			panelCurrent = 1.2 * sun * (0.8 + rng.Float64()*0.4)
		}
		panelPower := panelVoltage * panelCurrent

		batteryCurrent := panelCurrent - 0.3 - rng.Float64()*0.1
		charge = math.Max(0.05, math.Min(1, charge+batteryCurrent*0.01))
		batteryVoltage := 11.8 + 1.0*charge + rng.Float64()*0.05

		readings = append(readings, models.SensorReading{
			SensorID:           sensorID,
			Timestamp:          ts,
			Pressure:           1013.25 + 2*math.Sin(hour*math.Pi/12) + rng.Float64()*0.5 - 0.25 + offset*0.1,
			BatteryVoltage:     batteryVoltage,
			BatteryCurrent:     batteryCurrent,
			BatteryPower:       batteryVoltage * batteryCurrent,
			PanelVoltage:       panelVoltage,
			PanelCurrent:       panelCurrent,
			PanelPower:         panelPower,
			BatteryTemperature: 20 + 8*math.Sin((hour-9)*math.Pi/12) + rng.Float64()*2 - 1 + offset*0.5,
			Luminosity:         luminosity,
			PowerSignal:        -60 - rng.Float64()*30,
		})
	}

	return readings
}

func writeCSV(path string, readings []models.SensorReading) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(scanner.Columns); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	for _, r := range readings {
		record := []string{
			r.SensorID,
			models.FormatTimestamp(r.Timestamp),
			f(r.Pressure),
			f(r.BatteryVoltage), f(r.BatteryCurrent), f(r.BatteryPower),
			f(r.PanelVoltage), f(r.PanelCurrent), f(r.PanelPower),
			f(r.BatteryTemperature), f(r.Luminosity), f(r.PowerSignal),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
