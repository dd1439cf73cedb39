package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sensor_data_service/api"
	"sensor_data_service/config"
	"sensor_data_service/database"
	"sensor_data_service/generator"
	"sensor_data_service/logger"
	"sensor_data_service/models"
	"sensor_data_service/repository"
	"sensor_data_service/scanner"
	"sensor_data_service/service"
)

type app struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]
	if command == "help" {
		showHelp()
		return
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	logger.LogCommand(zl, os.Args[0], os.Args)

	a := &app{cfg: cfg, log: zl}
	if err := a.run(command, os.Args[2:]); err != nil {
		zl.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "serve":
		return a.serveCommand()
	case "connect":
		return a.connectCommand()
	case "migrate":
		return a.migrateCommand()
	case "migrate:create":
		if len(args) < 1 {
			fmt.Println("Error: migration name required")
			fmt.Println("Usage: sensor_data_service migrate:create <migration_name>")
			return errors.New("migration name required")
		}
		return a.createMigrationCommand(args[0])
	case "migrate:status":
		return a.migrationStatusCommand()
	case "db:info":
		return a.dbInfoCommand()
	case "scan":
		if len(args) < 1 {
			fmt.Println("Error: directory path required")
			fmt.Println("Usage: sensor_data_service scan <directory_path>")
			return errors.New("directory path required")
		}
		return a.scanCommand(args[0])
	case "generate":
		if len(args) < 1 {
			fmt.Println("Error: output directory required")
			fmt.Println("Usage: sensor_data_service generate <output_directory>")
			return errors.New("output directory required")
		}
		return a.generateCommand(args[0])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func showHelp() {
	fmt.Println("Sensor Data Service - Telemetry Store and Database Management Tool")
	fmt.Println("")
	fmt.Println("Usage: sensor_data_service <command> [arguments]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  serve                 Run the HTTP service")
	fmt.Println("  connect               Test database connection")
	fmt.Println("  migrate               Initialize schema and run pending migrations")
	fmt.Println("  migrate:create <name> Create a new migration file")
	fmt.Println("  migrate:status        Show migration status")
	fmt.Println("  db:info               Show database information")
	fmt.Println("  scan <directory>      Import sensor readings from CSV files (non-recursive)")
	fmt.Println("  generate <directory>  Write sample CSV files for scan")
	fmt.Println("  help                  Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Println("  config.yaml (or the file named by CONFIG_FILE), overridden by SENSOR_* environment variables")
	fmt.Println("")
	fmt.Println("CSV File Format:")
	fmt.Printf("  Expected columns: %s\n", strings.Join(scanner.Columns, ","))
	fmt.Printf("  Timestamp format: %s (RFC 3339 also accepted)\n", models.TimestampLayout)
}

// openDatabase connects and runs the one-time schema step.
func (a *app) openDatabase() (*gorm.DB, error) {
	db, err := database.Connect(a.cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Initialize(db, a.cfg); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

func (a *app) serveCommand() error {
	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := database.NewMigrationRunner(db, a.cfg, a.log).RunMigrations(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	svc := service.NewTelemetryService(
		repository.NewReadingRepository(db),
		func(ctx context.Context) error { return database.Ping(ctx, db) },
		service.Options{UniqueSensorID: a.cfg.Ingest.UniqueSensorID},
		a.log,
	)
	handler := api.NewRouter(api.NewReadingHandler(svc, a.log), a.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.NewServer(a.cfg.Server, handler, a.log).Run(ctx)
}

func (a *app) connectCommand() error {
	a.log.Info("Testing database connection...")

	db, err := database.Connect(a.cfg)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer database.Close(db)

	a.log.Info(fmt.Sprintf("✓ Successfully connected to %s database", a.cfg.Database.Driver))

	infoJSON, _ := json.MarshalIndent(database.GetDatabaseInfo(db, a.cfg), "", "  ")
	a.log.Info(fmt.Sprintf("Connection info: %s", infoJSON))
	return nil
}

func (a *app) migrateCommand() error {
	a.log.Info("Running database migrations...")

	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	return database.NewMigrationRunner(db, a.cfg, a.log).RunMigrations()
}

func (a *app) createMigrationCommand(name string) error {
	a.log.Info("Creating migration", zap.String("name", name))

	// files only, no connection needed
	filePath, err := database.NewMigrationRunner(nil, a.cfg, a.log).CreateMigration(name)
	if err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}

	a.log.Info(fmt.Sprintf("✓ Migration created: %s", filePath))
	return nil
}

func (a *app) migrationStatusCommand() error {
	db, err := database.Connect(a.cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	migrations, err := database.NewMigrationRunner(db, a.cfg, a.log).GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(migrations) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	fmt.Printf("%-20s %-40s %s\n", "Version", "Name", "Status")
	fmt.Println(strings.Repeat("-", 67))
	for _, migration := range migrations {
		status := "Pending"
		if migration.Applied {
			status = "Applied"
		}
		fmt.Printf("%-20s %-40s %s\n", migration.Version, migration.Name, status)
	}
	return nil
}

func (a *app) dbInfoCommand() error {
	db, err := database.Connect(a.cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	info := database.GetDatabaseInfo(db, a.cfg)

	fmt.Println("Database Information:")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Database Type:     %v\n", info["driver"])
	fmt.Printf("Connection Status: %v\n", connectionStatusText(info["connected"]))

	switch a.cfg.Database.Driver {
	case "mysql", "postgres":
		fmt.Printf("Host:              %v\n", info["host"])
		fmt.Printf("Port:              %v\n", info["port"])
		fmt.Printf("Database:          %v\n", info["database"])
	case "sqlite":
		fmt.Printf("File Path:         %v\n", info["path"])
	}

	if info["connected"] != true {
		fmt.Println("\nConnection failed - unable to retrieve detailed information")
		fmt.Println(strings.Repeat("=", 50))
		return nil
	}

	fmt.Println("\nConnection Pool:")
	fmt.Printf("  Max Connections: %v\n", info["max_open_connections"])
	fmt.Printf("  Open Connections:%v\n", info["open_connections"])
	fmt.Printf("  In Use:          %v\n", info["in_use"])
	fmt.Printf("  Idle:            %v\n", info["idle"])

	stats, err := repository.NewReadingRepository(db).Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read table statistics: %w", err)
	}

	fmt.Println("\nData Information:")
	fmt.Printf("  Total Records:   %d\n", stats.Total)
	fmt.Printf("  Unique Sensors:  %d\n", stats.UniqueSensors)
	if stats.Earliest != nil && stats.Latest != nil {
		fmt.Printf("  Date Range:      %s to %s\n",
			models.FormatTimestamp(*stats.Earliest), models.FormatTimestamp(*stats.Latest))
	}
	fmt.Println(strings.Repeat("=", 50))
	return nil
}

func connectionStatusText(connected interface{}) string {
	if conn, ok := connected.(bool); ok && conn {
		return "✓ Connected"
	}
	return "✗ Disconnected"
}

func (a *app) scanCommand(directoryPath string) error {
	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	csvScanner := scanner.NewCSVScanner(repository.NewReadingRepository(db), a.log)
	csvScanner.SetWorkerCount(a.cfg.Scanner.Workers)
	csvScanner.SetBatchSize(a.cfg.Scanner.BatchSize)

	summary, err := csvScanner.ScanDirectory(ctx, directoryPath)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	a.log.Info("✓ Directory scan completed",
		zap.Int("files", summary.Files),
		zap.Int("failed", summary.Failed),
		zap.Int("records", summary.Records))
	return nil
}

func (a *app) generateCommand(outputDir string) error {
	paths, err := generator.Generate(outputDir, generator.DefaultOptions())
	if err != nil {
		return err
	}
	for _, p := range paths {
		a.log.Info("generated sample data", zap.String("file", p))
	}
	return nil
}
