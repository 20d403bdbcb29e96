package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationsFSFixture(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys["sql/migrations/"+name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := migrationsFSFixture(map[string]string{
		"0002_add_orders.up.sql":     "CREATE TABLE orders (id BIGSERIAL PRIMARY KEY);",
		"0002_add_orders.down.sql":   "DROP TABLE orders;",
		"0001_add_products.up.sql":   "CREATE TABLE products (id BIGSERIAL PRIMARY KEY);",
		"0001_add_products.down.sql": "DROP TABLE products;",
	})

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "add_products" {
		t.Fatalf("unexpected first migration: %d_%s", migrations[0].Version, migrations[0].Name)
	}
	if migrations[1].Version != 2 || migrations[1].Name != "add_orders" {
		t.Fatalf("unexpected second migration: %d_%s", migrations[1].Version, migrations[1].Name)
	}
	if !strings.Contains(migrations[0].UpSQL, "CREATE TABLE products") {
		t.Fatalf("unexpected up sql: %s", migrations[0].UpSQL)
	}
	if !strings.Contains(migrations[1].DownSQL, "DROP TABLE orders") {
		t.Fatalf("unexpected down sql: %s", migrations[1].DownSQL)
	}
}

func TestLoadMigrationsFromFS_MissingDown(t *testing.T) {
	t.Parallel()

	fsys := migrationsFSFixture(map[string]string{
		"0001_add_products.up.sql": "CREATE TABLE products (id BIGSERIAL PRIMARY KEY);",
	})

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for migration without down file")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_InvalidFileName(t *testing.T) {
	t.Parallel()

	fsys := migrationsFSFixture(map[string]string{
		"add_products.sql": "CREATE TABLE products (id BIGSERIAL PRIMARY KEY);",
	})

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for invalid migration file name")
	}
	if !strings.Contains(err.Error(), "invalid migration file name") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_NameMismatch(t *testing.T) {
	t.Parallel()

	fsys := migrationsFSFixture(map[string]string{
		"0001_add_products.up.sql": "CREATE TABLE products (id BIGSERIAL PRIMARY KEY);",
		"0001_add_users.down.sql":  "DROP TABLE users;",
	})

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for migration name mismatch")
	}
	if !strings.Contains(err.Error(), "name mismatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsFromFS_EmptyFile(t *testing.T) {
	t.Parallel()

	fsys := migrationsFSFixture(map[string]string{
		"0001_add_products.up.sql":   "   \n",
		"0001_add_products.down.sql": "DROP TABLE products;",
	})

	_, err := loadMigrationsFromFS(fsys)
	if err == nil {
		t.Fatal("expected error for empty migration file")
	}
	if !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Fatalf("migrations are not sorted: %d after %d",
				migrations[i].Version, migrations[i-1].Version)
		}
	}
}
