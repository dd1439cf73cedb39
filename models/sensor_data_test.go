package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("accepts wire layout", func(t *testing.T) {
		ts, err := ParseTimestamp("2024-09-11 12:00:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2024, 9, 11, 12, 0, 0, 0, time.UTC)
		if !ts.Equal(want) {
			t.Errorf("expected %v, got %v", want, ts)
		}
		if ts.Location() != time.UTC {
			t.Errorf("expected UTC, got %v", ts.Location())
		}
	})

	for _, bad := range []string{"2024/09/11", "2024-09-11", "2024-09-11T12:00:00Z", "2024-13-01 00:00:00", "",
		"2024-09-11 12:00:00.5", " 2024-09-11 12:00:00", "2024-09-11 12:00:00 ", "2024-9-11 12:00:00"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			if _, err := ParseTimestamp(bad); err == nil {
				t.Errorf("expected error for %q", bad)
			}
		})
	}
}

func TestTimeRange_Contains(t *testing.T) {
	start := time.Date(2024, 9, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC)
	r := TimeRange{Start: &start, End: &end}

	if !r.Contains(start) || !r.Contains(end) {
		t.Error("range bounds must be inclusive")
	}
	if r.Contains(start.Add(-time.Second)) || r.Contains(end.Add(time.Second)) {
		t.Error("values outside the range must be excluded")
	}
	if !(TimeRange{}).Contains(start) || !(TimeRange{}).IsOpen() {
		t.Error("an open range contains everything")
	}
}

func TestSensorReading_MarshalJSON(t *testing.T) {
	reading := SensorReading{
		ID:         7,
		SensorID:   "s1",
		Timestamp:  time.Date(2024, 9, 11, 12, 0, 0, 0, time.UTC),
		Pressure:   1013.25,
		Luminosity: 420,
	}

	data, err := json.Marshal(reading)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded["timestamp"] != "2024-09-11 12:00:00" {
		t.Errorf("expected wire timestamp, got %v", decoded["timestamp"])
	}
	if decoded["sensor_id"] != "s1" || decoded["id"] != float64(7) {
		t.Errorf("unexpected identity fields: %v", decoded)
	}
	for _, field := range []string{"battery_voltage", "battery_current", "battery_power", "panel_voltage",
		"panel_current", "panel_power", "battery_temperature", "power_signal"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("missing field %s", field)
		}
	}
}

func TestSensorReading_TableName(t *testing.T) {
	if (SensorReading{}).TableName() != "sensor_data" {
		t.Error("unexpected table name")
	}
}
