// Package database owns the SQLite connection used by the telemetry core.
//
// The connection is opened with foreign keys enforced, because user and
// device deletion rely on ON DELETE CASCADE to remove dependent devices and
// data points. WAL mode keeps readers unblocked while the single writer
// connection commits.
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.{up,down}.sql and
// are applied oldest first, each inside its own transaction.
package database
