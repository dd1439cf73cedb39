package database

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"sensor_data_service/config"
	"sensor_data_service/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationVersionLayout = "20060102_150405"
	migrationExt           = ".sql"
)

// Migration is a row of the migration bookkeeping table
type Migration struct {
	ID          uint   `gorm:"primaryKey"`
	Version     string `gorm:"unique;not null;size:32"`
	Name        string `gorm:"not null"`
	Applied     bool   `gorm:"default:false"`
	AppliedAt   *time.Time
	Description string
}

// MigrationFile is a SQL file named <version>_<description>.sql, where the
// version is a YYYYMMDD_HHMMSS creation stamp.
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	FilePath    string
	Applied     bool
}

// MigrationRunner applies SQL files from a directory on top of the
// auto-migrated schema and records each one in migrationTable.
type MigrationRunner struct {
	db             *gorm.DB
	log            *zap.SugaredLogger
	migrationTable string
	migrationDir   string
}

// NewMigrationRunner creates a new migration runner. db may be nil when only
// CreateMigration or GetMigrationFiles are used.
func NewMigrationRunner(db *gorm.DB, cfg *config.Config, log *zap.Logger) *MigrationRunner {
	mr := &MigrationRunner{
		db:             db,
		log:            log.Sugar(),
		migrationTable: cfg.Migration.MigrationTable,
		migrationDir:   cfg.Migration.Directory,
	}
	if mr.migrationTable == "" {
		mr.migrationTable = "schema_migrations"
	}
	if mr.migrationDir == "" {
		mr.migrationDir = "migrations"
	}
	return mr
}

func (mr *MigrationRunner) table(tx *gorm.DB) *gorm.DB {
	return tx.Table(mr.migrationTable)
}

// InitializeMigrationTable creates the bookkeeping table if it doesn't exist
func (mr *MigrationRunner) InitializeMigrationTable() error {
	return mr.table(mr.db).AutoMigrate(&Migration{})
}

func parseMigrationFilename(dir, filename string) (MigrationFile, error) {
	base := strings.TrimSuffix(filename, migrationExt)
	if len(base) <= len(migrationVersionLayout)+1 || base[len(migrationVersionLayout)] != '_' {
		return MigrationFile{}, fmt.Errorf("invalid migration filename %s: expected YYYYMMDD_HHMMSS_description.sql", filename)
	}

	version := base[:len(migrationVersionLayout)]
	if _, err := time.Parse(migrationVersionLayout, version); err != nil {
		return MigrationFile{}, fmt.Errorf("invalid migration version in %s: %w", filename, err)
	}

	description := base[len(migrationVersionLayout)+1:]
	return MigrationFile{
		Version:     version,
		Name:        strings.ReplaceAll(description, "_", " "),
		Description: description,
		FilePath:    filepath.Join(dir, filename),
	}, nil
}

// GetMigrationFiles lists the .sql files of the migration directory, oldest
// version first. A missing directory means no migrations.
func (mr *MigrationRunner) GetMigrationFiles() ([]MigrationFile, error) {
	entries, err := os.ReadDir(mr.migrationDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != migrationExt {
			continue
		}
		file, err := parseMigrationFilename(mr.migrationDir, entry.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	slices.SortFunc(files, func(a, b MigrationFile) int {
		return strings.Compare(a.Version, b.Version)
	})
	return files, nil
}

// GetAppliedMigrations returns the recorded migrations, oldest first
func (mr *MigrationRunner) GetAppliedMigrations() ([]Migration, error) {
	if err := mr.InitializeMigrationTable(); err != nil {
		return nil, fmt.Errorf("failed to initialize migration table: %w", err)
	}

	var applied []Migration
	if err := mr.table(mr.db).Where("applied = ?", true).Order("version ASC").Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return applied, nil
}

// GetMigrationStatus returns every migration file marked Applied or not
func (mr *MigrationRunner) GetMigrationStatus() ([]MigrationFile, error) {
	files, err := mr.GetMigrationFiles()
	if err != nil {
		return nil, err
	}

	applied, err := mr.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(applied))
	for _, m := range applied {
		done[m.Version] = struct{}{}
	}
	for i := range files {
		_, files[i].Applied = done[files[i].Version]
	}
	return files, nil
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (mr *MigrationRunner) GetPendingMigrations() ([]MigrationFile, error) {
	files, err := mr.GetMigrationStatus()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(files, func(f MigrationFile) bool { return f.Applied }), nil
}

// RunMigrations applies pending migrations in version order and stops at the first failure
func (mr *MigrationRunner) RunMigrations() error {
	pending, err := mr.GetPendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if len(pending) == 0 {
		mr.log.Info("No pending migrations to run")
		return nil
	}

	mr.log.Infof("Running %d pending migration(s)", len(pending))
	for _, file := range pending {
		if err := mr.apply(file); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", file.Version, err)
		}
	}
	mr.log.Info("All migrations completed successfully")
	return nil
}

// apply executes one file and records it in the same transaction, so a
// failing script leaves no bookkeeping row behind.
func (mr *MigrationRunner) apply(file MigrationFile) error {
	mr.log.Infof("Running migration: %s - %s", file.Version, file.Name)

	script, err := os.ReadFile(file.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return mr.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(script)).Error; err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		appliedAt := models.Now()
		return mr.table(tx).Create(&Migration{
			Version:     file.Version,
			Name:        file.Name,
			Description: file.Description,
			Applied:     true,
			AppliedAt:   &appliedAt,
		}).Error
	})
}

// CreateMigration writes an empty migration file stamped with the current
// time and returns its path
func (mr *MigrationRunner) CreateMigration(name string) (string, error) {
	description := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	if description == "" {
		return "", fmt.Errorf("migration name is empty")
	}
	if err := os.MkdirAll(mr.migrationDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := models.Now()
	path := filepath.Join(mr.migrationDir, now.Format(migrationVersionLayout)+"_"+description+migrationExt)

	header := fmt.Sprintf("-- Migration: %s\n-- Created: %s UTC\n\n"+
		"-- Statements run in one transaction, e.g. on the %s table:\n"+
		"-- CREATE INDEX idx_sensor_data_luminosity ON sensor_data (luminosity);\n",
		name, models.FormatTimestamp(now), models.SensorReading{}.TableName())

	if err := os.WriteFile(path, []byte(header), 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return path, nil
}
