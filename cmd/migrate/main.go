// Command migrate manages the clinic booking schema (customers and bookings)
// embedded in the migrations package.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/migrations"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const usage = `usage: migrate [command]

Applies the clinic booking schema (customers, bookings) to DATABASE_URL.

commands:
  up               apply every pending migration (default)
  down             roll back the most recent migration
  version          print the applied schema version
  force <version>  mark <version> as applied after a failed migration
  help             show this message
`

var errUsage = errors.New("migrate: invalid arguments")

// schemaMigrator is the part of *migrate.Migrate the commands use.
type schemaMigrator interface {
	Up() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Print(usage)
		return
	}

	databaseURL := strings.TrimSpace(cfg.DatabaseURL)
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required to migrate the booking schema")
		os.Exit(1)
	}

	m, closeFn, err := openMigrator(databaseURL)
	if err != nil {
		logger.Error("failed to open booking schema migrator", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	if err := run(args, m, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		logger.Error("booking schema migration failed", "error", err)
		closeFn()
		os.Exit(1)
	}
}

func openMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}

// run executes one command against m and reports the result on out.
func run(args []string, m schemaMigrator, out io.Writer) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up":
		if len(args) > 1 {
			return errUsage
		}
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Fprintln(out, "booking schema already up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		fmt.Fprintln(out, "booking schema migrated")
		return nil
	case "down":
		if len(args) > 1 {
			return errUsage
		}
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		fmt.Fprintln(out, "rolled back one booking schema migration")
		return nil
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "booking schema not migrated yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		if dirty {
			fmt.Fprintf(out, "booking schema at version %d (dirty, run force after fixing)\n", version)
			return nil
		}
		fmt.Fprintf(out, "booking schema at version %d\n", version)
		return nil
	case "force":
		if len(args) != 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: version %q is not a number", errUsage, args[1])
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		fmt.Fprintf(out, "booking schema forced to version %d\n", version)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}
