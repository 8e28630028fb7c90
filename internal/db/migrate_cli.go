package db

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUnknownMigrateAction is returned for an unrecognised migrate action.
var ErrUnknownMigrateAction = errors.New("unknown migrate action")

// RunMigrateCommand handles the 'migrate' subcommand: up, down, status or
// force <version>.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 || args[0] == "help" {
		PrintMigrateHelp(w)
		if len(args) < 1 {
			return errors.New("missing migrate action")
		}
		return nil
	}

	migrations, err := MigrationsFS()
	if err != nil {
		return fmt.Errorf("failed to get migrations filesystem: %w", err)
	}

	// Migrations manage the schema, so open without applying them.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(w, "✓ All migrations applied successfully")
	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(w, "✓ Migration rolled back successfully")
	case "status":
	case "force":
		if len(args) < 2 {
			return errors.New("usage: devicetool migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if err := database.MigrateForce(migrations, v); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Forced version to %d\n", v)
	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("%w: %s", ErrUnknownMigrateAction, args[0])
	}

	st, err := database.GetMigrationStatus(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Migration Status ===")
	fmt.Fprintf(w, "Current version: %d\n", st.Current)
	fmt.Fprintf(w, "Latest version: %d\n", st.Latest)
	fmt.Fprintf(w, "Dirty: %v\n", st.Dirty)
	if st.Dirty {
		fmt.Fprintln(w, "\n⚠️  WARNING: Database is in a dirty state!")
		fmt.Fprintln(w, "A migration failed mid-execution. Inspect the database, then run:")
		fmt.Fprintln(w, "  devicetool migrate force <version>")
	} else if !st.UpToDate {
		fmt.Fprintln(w, "Run 'devicetool migrate up' to apply pending migrations.")
	}
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: devicetool migrate <action> [--db path]

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show current and latest schema version
  force <version>    Record <version> without running migrations (recovery)
  help               Show this help
`)
}
