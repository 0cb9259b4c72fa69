package database

import "testing"

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'members'").Scan(&name)
	if err != nil {
		t.Fatalf("members table missing: %v", err)
	}

	var version int64
	if err := db.QueryRow("SELECT MAX(version_id) FROM goose_db_version").Scan(&version); err != nil {
		t.Fatalf("goose version: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}
