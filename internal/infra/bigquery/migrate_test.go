package bigquery

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_tables.sql", true, 1, "create_tables"},
		{"0012_seed.sql", true, 12, "seed"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationName(tt.filename)
			if ok != tt.valid || version != tt.version || name != tt.name {
				t.Errorf("parseMigrationName(%q) = %d, %q, %v, want %d, %q, %v",
					tt.filename, version, name, ok, tt.version, tt.name, tt.valid)
			}
		})
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	ds := Dataset{ProjectID: "proj", DatasetID: "budget"}

	migrations, err := LoadMigrations(ds)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}

	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("%s still has placeholders", m.Filename)
		}
		if !strings.Contains(m.SQL, "`proj.budget.") {
			t.Errorf("%s does not reference the target dataset", m.Filename)
		}
		if len(m.Checksum) != 64 {
			t.Errorf("%s checksum = %q", m.Filename, m.Checksum)
		}
	}
}

func TestLoadMigrations_ChecksumIgnoresDataset(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_b.sql":   {Data: []byte("SELECT 2 FROM `{{PROJECT_ID}}.{{DATASET_ID}}.t`")},
		"m/0001_a.sql":   {Data: []byte("SELECT 1")},
		"m/README.md":    {Data: []byte("ignored")},
		"m/bad_name.sql": {Data: []byte("ignored")},
	}

	a, err := loadMigrations(fsys, "m", Dataset{ProjectID: "p1", DatasetID: "d1"})
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	b, err := loadMigrations(fsys, "m", Dataset{ProjectID: "p2", DatasetID: "d2"})
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}

	if len(a) != 2 || a[0].Name != "a" || a[1].Name != "b" {
		t.Fatalf("unexpected migrations: %+v", a)
	}
	if a[1].SQL == b[1].SQL {
		t.Error("SQL should differ per dataset")
	}
	if a[1].Checksum != b[1].Checksum {
		t.Error("checksum should not depend on the dataset")
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("SELECT 1")},
		"m/0001_b.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := loadMigrations(fsys, "m", Dataset{}); err == nil {
		t.Error("expected error for duplicate versions")
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	pending := pendingMigrations(all, applied)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("pendingMigrations() = %+v, want only version 2", pending)
	}
}
