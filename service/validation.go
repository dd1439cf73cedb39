package service

import (
	"strings"

	"sensor_data_service/config"
	"sensor_data_service/models"
)

const (
	// DefaultLimit is the page size used when none is requested
	DefaultLimit = 100
	// MaxLimit is the largest accepted page size
	MaxLimit = config.MaxPageLimit
)

// ReadingInput is an ingestion request before validation. Measurements are
// pointers so that a missing field can be told apart from an explicit zero.
type ReadingInput struct {
	SensorID           string   `json:"sensor_id"`
	Timestamp          *string  `json:"timestamp"`
	Pressure           *float64 `json:"pressure"`
	BatteryVoltage     *float64 `json:"battery_voltage"`
	BatteryCurrent     *float64 `json:"battery_current"`
	BatteryPower       *float64 `json:"battery_power"`
	PanelVoltage       *float64 `json:"panel_voltage"`
	PanelCurrent       *float64 `json:"panel_current"`
	PanelPower         *float64 `json:"panel_power"`
	BatteryTemperature *float64 `json:"battery_temperature"`
	Luminosity         *float64 `json:"luminosity"`
	PowerSignal        *float64 `json:"power_signal"`
}

// ParseReading validates in and builds the reading to persist. A missing
// timestamp is stamped with the ingestion time.
func ParseReading(in ReadingInput) (models.SensorReading, error) {
	var reading models.SensorReading

	sensorID := strings.TrimSpace(in.SensorID)
	if sensorID == "" {
		return reading, invalid("sensor_id", "field required")
	}
	reading.SensorID = sensorID

	if in.Timestamp != nil {
		ts, err := models.ParseTimestamp(*in.Timestamp)
		if err != nil {
			return reading, invalid("timestamp", "%s", err.Error())
		}
		reading.Timestamp = ts
	} else {
		reading.Timestamp = models.Now()
	}

	measurements := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"pressure", in.Pressure, &reading.Pressure},
		{"battery_voltage", in.BatteryVoltage, &reading.BatteryVoltage},
		{"battery_current", in.BatteryCurrent, &reading.BatteryCurrent},
		{"battery_power", in.BatteryPower, &reading.BatteryPower},
		{"panel_voltage", in.PanelVoltage, &reading.PanelVoltage},
		{"panel_current", in.PanelCurrent, &reading.PanelCurrent},
		{"panel_power", in.PanelPower, &reading.PanelPower},
		{"battery_temperature", in.BatteryTemperature, &reading.BatteryTemperature},
		{"luminosity", in.Luminosity, &reading.Luminosity},
		{"power_signal", in.PowerSignal, &reading.PowerSignal},
	}
	for _, m := range measurements {
		if m.src == nil {
			return reading, invalid(m.name, "field required")
		}
		*m.dst = *m.src
	}

	return reading, nil
}

// ParseTimeRange parses optional start/end query values into an inclusive range.
func ParseTimeRange(start, end string) (models.TimeRange, error) {
	var rng models.TimeRange

	if start != "" {
		ts, err := models.ParseTimestamp(start)
		if err != nil {
			return rng, invalid("start_date", "%s", err.Error())
		}
		rng.Start = &ts
	}
	if end != "" {
		ts, err := models.ParseTimestamp(end)
		if err != nil {
			return rng, invalid("end_date", "%s", err.Error())
		}
		rng.End = &ts
	}
	if rng.Start != nil && rng.End != nil && rng.Start.After(*rng.End) {
		return rng, invalid("start_date", "must not be after end_date")
	}

	return rng, nil
}

// ValidatePage checks paging bounds: skip >= 0 and 1 <= limit <= MaxLimit.
func ValidatePage(skip, limit int) error {
	if skip < 0 {
		return invalid("skip", "must be greater than or equal to 0")
	}
	if limit < 1 || limit > MaxLimit {
		return invalid("limit", "must be between 1 and %d", MaxLimit)
	}
	return nil
}
