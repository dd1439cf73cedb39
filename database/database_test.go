package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sensor_data_service/config"
	"sensor_data_service/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.SQLite.Path = filepath.Join(dir, "sensordata.db")
	cfg.Migration.Directory = filepath.Join(dir, "migrations")
	cfg.Logging.LogLevel = "error"
	return cfg
}

func openTestDB(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()
	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	if _, err := Connect(cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestInitialize_CreatesReadingTable(t *testing.T) {
	cfg := testConfig(t)
	db := openTestDB(t, cfg)

	if err := Initialize(db, cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !db.Migrator().HasTable(&models.SensorReading{}) {
		t.Fatal("expected sensor_data table to exist")
	}
	if !db.Migrator().HasIndex(&models.SensorReading{}, "idx_sensor_timestamp") {
		t.Error("expected composite sensor/timestamp index")
	}

	// Running it again must be harmless.
	if err := Initialize(db, cfg); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
}

func TestInitialize_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Migration.AutoMigrate = false
	db := openTestDB(t, cfg)

	if err := Initialize(db, cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if db.Migrator().HasTable(&models.SensorReading{}) {
		t.Error("table should not be created when auto_migrate is off")
	}
}

func TestGetDatabaseInfo(t *testing.T) {
	cfg := testConfig(t)
	db := openTestDB(t, cfg)

	info := GetDatabaseInfo(db, cfg)
	if info["driver"] != "sqlite" {
		t.Errorf("unexpected driver %v", info["driver"])
	}
	if info["connected"] != true {
		t.Error("expected connected database")
	}
	if info["path"] != cfg.Database.SQLite.Path {
		t.Errorf("unexpected path %v", info["path"])
	}
	if !IsConnected(db) {
		t.Error("IsConnected should be true")
	}
	if IsConnected(nil) {
		t.Error("IsConnected(nil) should be false")
	}
}

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestMigrationRunner_AppliesPendingOnce(t *testing.T) {
	cfg := testConfig(t)
	db := openTestDB(t, cfg)
	if err := Initialize(db, cfg); err != nil {
		t.Fatal(err)
	}

	writeMigration(t, cfg.Migration.Directory, "20240911_120000_add_sensor_notes.sql",
		"CREATE TABLE sensor_notes (id INTEGER PRIMARY KEY, sensor_id TEXT NOT NULL, note TEXT);")
	writeMigration(t, cfg.Migration.Directory, "20240910_080000_add_luminosity_index.sql",
		"CREATE INDEX idx_sensor_data_luminosity ON sensor_data (luminosity);")
	writeMigration(t, cfg.Migration.Directory, "README.md", "not a migration")

	runner := NewMigrationRunner(db, cfg, zap.NewNop())

	files, err := runner.GetMigrationFiles()
	if err != nil {
		t.Fatalf("GetMigrationFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 migration files, got %d", len(files))
	}
	if files[0].Version != "20240910_080000" || files[0].Name != "add luminosity index" {
		t.Errorf("unexpected ordering or naming: %+v", files[0])
	}

	if err := runner.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if !db.Migrator().HasTable("sensor_notes") {
		t.Error("expected migration to create sensor_notes")
	}

	// A second run has nothing to do; re-executing CREATE TABLE would fail.
	if err := runner.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	status, err := runner.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	for _, m := range status {
		if !m.Applied {
			t.Errorf("expected %s to be applied", m.Version)
		}
	}

	var count int64
	db.Table(cfg.Migration.MigrationTable).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 recorded migrations, got %d", count)
	}
}

func TestMigrationRunner_FailedMigrationIsNotRecorded(t *testing.T) {
	cfg := testConfig(t)
	db := openTestDB(t, cfg)

	writeMigration(t, cfg.Migration.Directory, "20240911_120000_broken.sql", "CREATE TABLE (;")

	runner := NewMigrationRunner(db, cfg, zap.NewNop())
	if err := runner.RunMigrations(); err == nil {
		t.Fatal("expected broken migration to fail")
	}

	pending, err := runner.GetPendingMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("expected broken migration to stay pending, got %d pending", len(pending))
	}
}

func TestMigrationRunner_InvalidFilename(t *testing.T) {
	cfg := testConfig(t)
	writeMigration(t, cfg.Migration.Directory, "broken.sql", "SELECT 1;")

	runner := NewMigrationRunner(nil, cfg, zap.NewNop())
	if _, err := runner.GetMigrationFiles(); err == nil {
		t.Fatal("expected error for badly named migration")
	}
}

func TestMigrationRunner_CreateMigration(t *testing.T) {
	cfg := testConfig(t)
	runner := NewMigrationRunner(nil, cfg, zap.NewNop())

	path, err := runner.CreateMigration("Add Panel Index")
	if err != nil {
		t.Fatalf("CreateMigration failed: %v", err)
	}
	if !strings.HasSuffix(path, "_add_panel_index.sql") {
		t.Errorf("unexpected file name %s", path)
	}

	files, err := runner.GetMigrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "add panel index" {
		t.Errorf("unexpected migration files: %+v", files)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	file, err := parseMigrationFilename("migrations", "20240911_120000_add_sensor_notes.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Version != "20240911_120000" || file.Name != "add sensor notes" || file.Description != "add_sensor_notes" {
		t.Errorf("unexpected migration file %+v", file)
	}
	if file.FilePath != filepath.Join("migrations", "20240911_120000_add_sensor_notes.sql") {
		t.Errorf("unexpected path %s", file.FilePath)
	}

	for _, bad := range []string{
		"broken.sql",
		"20240911_120000_.sql",
		"20240911-120000_notes.sql",
		"2024091_1200000_notes.sql",
		"20241311_120000_notes.sql",
		"abcdefgh_120000_notes.sql",
	} {
		t.Run(bad, func(t *testing.T) {
			if _, err := parseMigrationFilename("migrations", bad); err == nil {
				t.Errorf("expected %s to be rejected", bad)
			}
		})
	}
}

func TestMigrationRunner_CreateMigrationRequiresName(t *testing.T) {
	runner := NewMigrationRunner(nil, testConfig(t), zap.NewNop())
	if _, err := runner.CreateMigration("   "); err == nil {
		t.Fatal("expected error for blank migration name")
	}
}
