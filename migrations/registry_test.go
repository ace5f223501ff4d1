package migrations

import (
	"context"
	"io/fs"
	"testing"
)

func TestFilesystemsReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound, sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}
	if !postgresFound {
		t.Fatal("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatal("expected sqlite filesystem")
	}
}

func TestRegisterUsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(calls) != 1 || calls[0] != DialectSQLite {
		t.Fatalf("register calls = %v, want only sqlite", calls)
	}
}

func TestRegisterRequiresRegisterFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil register function")
	}
}

func TestRegisterAppliesSourceLabel(t *testing.T) {
	var label string
	_, err := Register(context.Background(), func(_ context.Context, _ string, sourceLabel string, _ fs.FS) error {
		label = sourceLabel
		return nil
	}, WithValidationTargets(DialectSQLite), WithSourceLabel("custom-label"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if label != "custom-label" {
		t.Fatalf("source label = %q, want custom-label", label)
	}
}
