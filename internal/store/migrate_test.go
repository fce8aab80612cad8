package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const migrationsDir = "../../db/migrations"

func TestMigrationFilesPresent(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}
	sort.Strings(files)

	// Filename order is application order; every file needs a numeric prefix.
	for _, file := range files {
		base := filepath.Base(file)
		if len(base) < 5 || base[4] != '_' {
			t.Errorf("migration %s does not follow the NNNN_name.up.sql convention", base)
		}
	}
}

func TestInitialMigrationCoversSchema(t *testing.T) {
	contents, err := os.ReadFile(filepath.Join(migrationsDir, "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read initial migration: %v", err)
	}
	sql := strings.ToLower(string(contents))

	tables := []string{
		"users",
		"refresh_sessions",
		"boards",
		"board_memberships",
		"columns",
		"swimlanes",
		"cards",
		"comments",
		"labels",
		"card_labels",
		"card_assignees",
		"attachments",
		"activities",
		"notifications",
	}
	for _, table := range tables {
		if !strings.Contains(sql, "create table "+table+" (") {
			t.Errorf("initial migration missing table %s", table)
		}
	}

	// The per-scope unique position indexes back the ordering engine.
	if !strings.Contains(sql, "unique (board_id, position)") {
		t.Error("initial migration missing per-board unique position constraint")
	}
	if !strings.Contains(sql, "unique (column_id, swimlane_id, position)") {
		t.Error("initial migration missing per-cell unique position constraint")
	}
}
