package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// TargetSchemaVersion is the highest schema version this build supports for the moodsdb component.
	TargetSchemaVersion int64 = 1
	// MoodsDBComponent names the mood entry tables in the versions table.
	MoodsDBComponent = "moodsdb"
)

// migration moves the schema from version-1 to version.
type migration struct {
	version    int64
	statements string
}

// migrations are applied in order; each runs in its own transaction.
var migrations = []migration{
	{version: 1, statements: SchemaV1},
}

const versionsTableSQL = `
CREATE TABLE IF NOT EXISTS moodiary_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);`

const setVersionSQL = `
INSERT INTO moodiary_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version, created_at = unixepoch();`

// GetComponentSchemaVersion returns the recorded schema version of a
// component, or 0 when the database has no record of it yet.
func GetComponentSchemaVersion(db *sql.DB, componentName string) (int64, error) {
	var table string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'moodiary_versions';`).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up versions table: %w", err)
	}

	var version int64
	err = db.QueryRow(`SELECT version FROM moodiary_versions WHERE component = ?;`, componentName).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan version for component '%s': %w", componentName, err)
	}
	return version, nil
}

// InitializeSchema applies every migration up to schemaVersionToSet on a
// database that has none of them.
func InitializeSchema(db *sql.DB, schemaVersionToSet int64) error {
	return migrate(db, 0, schemaVersionToSet)
}

// UpgradeDB brings the moodsdb component of db to appTargetSchemaVersion.
// dbIdentifierForLog is only used in messages. A database written by a
// newer build is refused rather than downgraded.
func UpgradeDB(db *sql.DB, dbIdentifierForLog string, appTargetSchemaVersion int64) error {
	current, err := GetComponentSchemaVersion(db, MoodsDBComponent)
	if err != nil {
		return err
	}

	switch {
	case current == appTargetSchemaVersion:
		slog.Debug("database up to date", "component", MoodsDBComponent, "db", dbIdentifierForLog, "version", current)
		return nil
	case current > appTargetSchemaVersion:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is newer than application's target schema version %d. Please upgrade the application",
			MoodsDBComponent, dbIdentifierForLog, current, appTargetSchemaVersion)
	}

	slog.Info("upgrading database", "component", MoodsDBComponent, "db", dbIdentifierForLog, "from", current, "to", appTargetSchemaVersion)
	if err := migrate(db, current, appTargetSchemaVersion); err != nil {
		return fmt.Errorf("failed to upgrade component %s in database '%s': %w", MoodsDBComponent, dbIdentifierForLog, err)
	}
	return nil
}

func migrate(db *sql.DB, from, to int64) error {
	if to > migrations[len(migrations)-1].version {
		return fmt.Errorf("no migration to schema version %d", to)
	}
	if _, err := db.Exec(versionsTableSQL); err != nil {
		return fmt.Errorf("failed to create versions table: %w", err)
	}

	for _, m := range migrations {
		if m.version <= from || m.version > to {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		slog.Debug("schema migrated", "component", MoodsDBComponent, "version", m.version)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.statements); err != nil {
		return fmt.Errorf("failed to execute schema v%d SQL: %w", m.version, err)
	}
	if _, err := tx.Exec(setVersionSQL, MoodsDBComponent, m.version); err != nil {
		return fmt.Errorf("failed to record version %d for component %s: %w", m.version, MoodsDBComponent, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}
