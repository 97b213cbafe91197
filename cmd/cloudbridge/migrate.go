package main

import (
	"fmt"
	"io"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/diagdb"
)

const migrateUsage = "usage: cloudbridge [-config path] migrate up|down|version"

// runMigrate handles the 'migrate' subcommand against the diagnostics
// database. Open has already applied pending migrations, so "up" only
// reports the resulting version.
func runMigrate(db *diagdb.DB, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%s", migrateUsage)
	}

	switch args[0] {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q; %s", args[0], migrateUsage)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Fprintf(out, "schema version %d (dirty=%v)\n", version, dirty)
	return nil
}
