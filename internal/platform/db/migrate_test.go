package db

import (
	"testing"
	"testing/fstest"
)

func TestMigrator_Load(t *testing.T) {
	files := fstest.MapFS{
		"003_user_oauth.sql":   {Data: []byte("ALTER TABLE user_table ADD COLUMN oauth_provider TEXT;")},
		"001_core.sql":         {Data: []byte("CREATE TABLE user_table (email_address TEXT PRIMARY KEY);")},
		"002_documents_v2.sql": {Data: []byte("CREATE TABLE eob_records_v2 (id BIGINT);")},
		"README.md":            {Data: []byte("not a migration")},
		"seed.sql":             {Data: []byte("-- no numeric prefix")},
		"abc_notes.sql":        {Data: []byte("-- non-numeric prefix")},
	}

	migrations, err := NewMigrator(nil, files).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []int{1, 2, 3} {
		if migrations[i].Version != want {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, want)
		}
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("expected 001_core.sql first, got %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE user_table (email_address TEXT PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
}

func TestMigrator_Load_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":  {Data: []byte("SELECT 1;")},
		"001_other.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(nil, files).Load(); err == nil {
		t.Fatal("expected error for duplicate migration version")
	}
}

func TestMigrator_Load_Empty(t *testing.T) {
	migrations, err := NewMigrator(nil, fstest.MapFS{}).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("expected no migrations, got %d", len(migrations))
	}
}
