package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write migration file: %v", err)
	}
}

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "010_documents.sql", "CREATE TABLE documents ();")
	writeMigration(t, dir, "001_patients.sql", "CREATE TABLE patients ();")
	writeMigration(t, dir, "002_medical_records.sql", "CREATE TABLE medical_records ();")

	m := NewMigrator(nil, dir)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	for i, want := range []int{1, 2, 10} {
		if migs[i].Version != want {
			t.Errorf("position %d: expected version %d, got %d", i, want, migs[i].Version)
		}
	}
	if migs[0].SQL != "CREATE TABLE patients ();" {
		t.Errorf("unexpected SQL content: %q", migs[0].SQL)
	}
}

func TestLoadMigrations_SkipsNonNumeric(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_patients.sql", "CREATE TABLE patients ();")
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "notes_only.sql", "-- no version prefix")

	m := NewMigrator(nil, dir)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migs))
	}
}

func TestMigrationVersion(t *testing.T) {
	cases := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_create_patient.sql", 1, true},
		{"010_documents.sql", 10, true},
		{"notes_only.sql", 0, false},
		{"nounderscore.sql", 0, false},
		{"abc_def.sql", 0, false},
	}
	for _, tc := range cases {
		v, ok := migrationVersion(tc.name)
		if v != tc.version || ok != tc.ok {
			t.Errorf("%s: expected (%d, %v), got (%d, %v)", tc.name, tc.version, tc.ok, v, ok)
		}
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing migrations directory")
	}
}
