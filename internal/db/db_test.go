package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	// Schema must be in place.
	var n int
	err = d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='claims'`).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if n != 1 {
		t.Errorf("claims table count = %d, want 1", n)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "claimdeck.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO claims (id, claim_number) VALUES ('c1', 'CLM-1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var got string
	if err := d.QueryRow(`SELECT claim_number FROM claims WHERE id = 'c1'`).Scan(&got); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "CLM-1" {
		t.Errorf("claim_number = %q, want CLM-1", got)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	var enabled int
	if err := d.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		t.Fatalf("reading foreign_keys pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatal("foreign key enforcement should be enabled")
	}

	stmts := []string{
		`INSERT INTO claims (id, claim_number) VALUES ('c1', 'CLM-1')`,
		`INSERT INTO claim_runs (id, claim_id) VALUES ('r1', 'c1')`,
		`INSERT INTO run_facts (run_id, position, name) VALUES ('r1', 0, 'mileage')`,
		`INSERT INTO run_checks (run_id, check_number, check_name, result) VALUES ('r1', 1, 'policy_active', 'PASS')`,
	}
	for _, stmt := range stmts {
		if _, err := d.Exec(stmt); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	// Deleting the run must cascade to every run-scoped table; snapshot
	// replacement in the claims store depends on this.
	if _, err := d.Exec(`DELETE FROM claim_runs WHERE id = 'r1'`); err != nil {
		t.Fatalf("deleting run: %v", err)
	}

	for _, table := range []string{"run_facts", "run_checks"} {
		var n int
		if err := d.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows after run delete = %d, want 0", table, n)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
