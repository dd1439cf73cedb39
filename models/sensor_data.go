package models

import (
	"encoding/json"
	"time"
)

// SensorReading is one timestamped set of measurements from a sensor
type SensorReading struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SensorID           string    `gorm:"index:idx_sensor_timestamp,priority:1;not null;size:255" json:"sensor_id"`
	Timestamp          time.Time `gorm:"index:idx_sensor_timestamp,priority:2;index;not null" json:"timestamp"`
	Pressure           float64   `json:"pressure"`
	BatteryVoltage     float64   `json:"battery_voltage"`
	BatteryCurrent     float64   `json:"battery_current"`
	BatteryPower       float64   `json:"battery_power"`
	PanelVoltage       float64   `json:"panel_voltage"`
	PanelCurrent       float64   `json:"panel_current"`
	PanelPower         float64   `json:"panel_power"`
	BatteryTemperature float64   `json:"battery_temperature"`
	Luminosity         float64   `json:"luminosity"`
	PowerSignal        float64   `json:"power_signal"`
}

// TableName customizes the table name
func (SensorReading) TableName() string {
	return "sensor_data"
}

// MarshalJSON renders the timestamp in the wire layout
func (r SensorReading) MarshalJSON() ([]byte, error) {
	type plain SensorReading
	return json.Marshal(struct {
		plain
		Timestamp string `json:"timestamp"`
	}{
		plain:     plain(r),
		Timestamp: FormatTimestamp(r.Timestamp),
	})
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&SensorReading{},
	}
}
