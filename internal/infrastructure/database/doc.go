// Package database provides the SQLite store behind the action audit log.
//
// It manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Versioned migrations from an embedded filesystem
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// The database file is created with 0600 permissions. All queries use
// parameterised statements.
package database
