package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/posledger/internal/infrastructure/config"
	"github.com/erp/posledger/internal/infrastructure/logger"
	"github.com/erp/posledger/internal/infrastructure/migration"
	"github.com/erp/posledger/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so the database and migrator are closed
// before the process exits
func run() int {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "migrations", "Directory new migration files are written to")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return 1
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"}, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	log.Info("Migration CLI started", zap.String("command", command))

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Error("Migration name required. Usage: migrate create <name>")
			return 1
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1])
		if err != nil {
			log.Error("Failed to create migration", zap.Error(err))
			return 1
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return 0
	case "list":
		files, err := migration.ListMigrations(migrations.FS)
		if err != nil {
			log.Error("Failed to list migrations", zap.Error(err))
			return 1
		}
		fmt.Printf("%-8s %s\n", "VERSION", "NAME")
		for _, f := range files {
			fmt.Printf("%06d   %s\n", f.Version, f.Name)
		}
		return 0
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		return 1
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.Error(err),
		)
		return 1
	}

	m, err := migration.New(db, log)
	if err != nil {
		log.Error("Failed to create migrator", zap.Error(err))
		return 1
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	if err := runCommand(m, command, args[1:]); err != nil {
		log.Error("Migration command failed", zap.String("command", command), zap.Error(err))
		return 1
	}
	return 0
}

func runCommand(m *migration.Migrator, command string, args []string) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		if len(args) < 1 {
			return fmt.Errorf("step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", args[0], err)
		}
		return m.Steps(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version: %d dirty: %t\n", version, dirty)
		return nil
	case "force":
		if len(args) < 1 {
			return fmt.Errorf("version required. Usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return m.Force(v)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command> [args]

Commands:
  up              Apply all pending migrations
  down            Roll back all migrations
  step <n>        Apply n migrations (negative rolls back)
  version         Print the current schema version
  force <v>       Set the version without running migrations (clears dirty state)
  create <name>   Write a new up/down migration pair to -path
  list            List migrations embedded in this binary

Flags:
  -path string       Directory for new migrations (default "migrations")
  -log-level string  Log level (default "info")

The database connection is read from POS_DATABASE_* environment variables
or config.toml.`)
}
