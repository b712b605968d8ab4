package db

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver, needed for tests
)

// checkTableExists is a test helper to verify if a table exists in the database.
func checkTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()
	query := fmt.Sprintf("SELECT name FROM sqlite_master WHERE type='table' AND name='%s';", tableName)
	var name string
	err := db.QueryRow(query).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			t.Errorf("Table '%s' does not exist, but it should.", tableName)
			return
		}
		t.Fatalf("Error checking if table '%s' exists: %v", tableName, err)
	}
	if name != tableName {
		t.Errorf("Table check query returned '%s' but expected '%s'", name, tableName)
	}
}

func TestUpgradeDB_NewDatabase(t *testing.T) {
	db, err := OpenDBConnection(":memory:", true, "NORMAL")
	if err != nil {
		t.Fatalf("OpenDBConnection failed for in-memory DB: %v", err)
	}
	defer db.Close()

	err = UpgradeDB(db, ":memory:", TargetSchemaVersion)
	if err != nil {
		t.Fatalf("UpgradeDB failed on a new in-memory database: %v", err)
	}

	expectedTables := []string{"moodiary_versions", "mood_entries"}
	for _, tableName := range expectedTables {
		checkTableExists(t, db, tableName)
	}

	version, err := GetComponentSchemaVersion(db, MoodsDBComponent)
	if err != nil {
		t.Fatalf("GetComponentSchemaVersion failed after UpgradeDB: %v", err)
	}

	if version != TargetSchemaVersion {
		t.Errorf("Expected component '%s' to be at version %d, but got %d", MoodsDBComponent, TargetSchemaVersion, version)
	}
}

func TestUpgradeDB_AlreadyUpToDate(t *testing.T) {
	db, err := OpenDBConnection(":memory:", true, "NORMAL")
	if err != nil {
		t.Fatalf("OpenDBConnection failed for in-memory DB: %v", err)
	}
	defer db.Close()

	// Initialize the database to the TargetSchemaVersion first
	if err := InitializeSchema(db, TargetSchemaVersion); err != nil {
		t.Fatalf("InitializeSchema failed: %v", err)
	}

	// Now, call UpgradeDB again. It should detect it's up to date.
	err = UpgradeDB(db, ":memory:", TargetSchemaVersion)
	if err != nil {
		t.Fatalf("UpgradeDB failed on an up-to-date database: %v", err)
	}

	// Verify the component version is still TargetSchemaVersion
	version, err := GetComponentSchemaVersion(db, MoodsDBComponent)
	if err != nil {
		t.Fatalf("GetComponentSchemaVersion failed: %v", err)
	}
	if version != TargetSchemaVersion {
		t.Errorf("Expected component '%s' to be at version %d, but got %d", MoodsDBComponent, TargetSchemaVersion, version)
	}
}

func TestUpgradeDB_UnknownTargetVersion(t *testing.T) {
	db, err := OpenDBConnection(":memory:", true, "NORMAL")
	if err != nil {
		t.Fatalf("OpenDBConnection failed for in-memory DB: %v", err)
	}
	defer db.Close()

	if err := InitializeSchema(db, TargetSchemaVersion); err != nil {
		t.Fatalf("InitializeSchema failed: %v", err)
	}

	err = UpgradeDB(db, ":memory:", TargetSchemaVersion+1)
	if err == nil {
		t.Fatalf("UpgradeDB should fail when no migration reaches the target version")
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("no migration to schema version %d", TargetSchemaVersion+1)) {
		t.Errorf("unexpected error: %v", err)
	}

	version, err := GetComponentSchemaVersion(db, MoodsDBComponent)
	if err != nil {
		t.Fatalf("GetComponentSchemaVersion failed: %v", err)
	}
	if version != TargetSchemaVersion {
		t.Errorf("failed upgrade changed the version from %d to %d", TargetSchemaVersion, version)
	}
}

func TestUpgradeDB_NewerVersionUnsupported(t *testing.T) {
	db, err := OpenDBConnection(":memory:", true, "NORMAL")
	if err != nil {
		t.Fatalf("OpenDBConnection failed for in-memory DB: %v", err)
	}
	defer db.Close()

	if err := InitializeSchema(db, TargetSchemaVersion); err != nil {
		t.Fatalf("InitializeSchema failed: %v", err)
	}
	// Pretend a newer build touched this database.
	const newer = TargetSchemaVersion + 1
	if _, err := db.Exec(setVersionSQL, MoodsDBComponent, newer); err != nil {
		t.Fatalf("failed to bump version: %v", err)
	}

	err = UpgradeDB(db, ":memory:", TargetSchemaVersion)
	if err == nil {
		t.Fatalf("UpgradeDB should have failed for a newer DB version, but it did not")
	}

	expectedErrorMsg := fmt.Sprintf("component %s in database ':memory:' has schema version %d, which is newer than application's target schema version %d", MoodsDBComponent, newer, TargetSchemaVersion)
	if !strings.Contains(err.Error(), expectedErrorMsg) {
		t.Errorf("UpgradeDB error message mismatch.\nExpected to contain: %s\nGot: %s", expectedErrorMsg, err.Error())
	}

	currentVersion, getErr := GetComponentSchemaVersion(db, MoodsDBComponent)
	if getErr != nil {
		t.Fatalf("GetComponentSchemaVersion failed after attempted upgrade: %v", getErr)
	}
	if currentVersion != newer {
		t.Errorf("Database schema version changed from %d to %d after a refused upgrade", newer, currentVersion)
	}
}

func TestGetComponentSchemaVersion_EmptyDatabase(t *testing.T) {
	db, err := OpenDBConnection(":memory:", true, "NORMAL")
	if err != nil {
		t.Fatalf("OpenDBConnection failed for in-memory DB: %v", err)
	}
	defer db.Close()

	version, err := GetComponentSchemaVersion(db, MoodsDBComponent)
	if err != nil {
		t.Fatalf("GetComponentSchemaVersion failed on an empty database: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on an empty database, got %d", version)
	}
}

func TestSchema_DateIsUnique(t *testing.T) {
	db, err := Open(":memory:", false, "NORMAL")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	insert := `INSERT INTO mood_entries (date, mood, title, body, created_at, updated_at) VALUES (?, ?, '', '', 0, 0)`
	if _, err := db.Exec(insert, "2024-03-10", "happy"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := db.Exec(insert, "2024-03-10", "sad"); err == nil {
		t.Fatalf("second insert on the same date should violate the unique index")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM mood_entries WHERE date = ?`, "2024-03-10").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one row for 2024-03-10, got %d", count)
	}
}

func TestSchema_RejectsUnknownMood(t *testing.T) {
	db, err := Open(":memory:", false, "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO mood_entries (date, mood, created_at, updated_at) VALUES ('2024-01-01', 'ecstatic', 0, 0)`)
	if err == nil {
		t.Fatalf("expected CHECK constraint to reject unknown mood")
	}
}

func TestOpenDBConnection_InvalidSync(t *testing.T) {
	if _, err := OpenDBConnection(":memory:", false, "SOMETIMES"); err == nil {
		t.Fatalf("expected error for invalid sync pragma")
	}
}
