package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/wa-returns-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestReturnsMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"*_create_returns_table.sql": {
			"CREATE TABLE IF NOT EXISTS returns",
			"refund_amount NUMERIC(12,2) NOT NULL",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_returns_return_id",
			"CREATE INDEX IF NOT EXISTS idx_returns_shiprocket_return_id",
		},
		"*_create_exchanges_table.sql": {
			"CREATE TABLE IF NOT EXISTS exchanges",
			"price_difference NUMERIC(12,2) NOT NULL",
			"payment_link_id TEXT",
			"CREATE INDEX IF NOT EXISTS idx_exchanges_shiprocket_exchange_id",
		},
		"*_add_open_request_indexes.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_returns_open_order ON returns (order_id)",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_exchanges_open_order ON exchanges (order_id)",
			"DROP INDEX IF EXISTS idx_exchanges_open_order",
		},
		"*_create_orders_tables.sql": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE TABLE IF NOT EXISTS order_line_items",
			"CREATE TABLE IF NOT EXISTS products",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration file found for %s", pattern)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Refund Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_refund_notes.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename error")
	}
}
