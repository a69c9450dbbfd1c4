package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	bad := fstest.MapFS{"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}}
	require.ErrorContains(t, ValidateFS(bad), "invalid migration filename")

	noDown := fstest.MapFS{"20260101000000_things.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}}
	require.ErrorContains(t, ValidateFS(noDown), "missing")

	dup := fstest.MapFS{
		"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.ErrorContains(t, ValidateFS(dup), "duplicate migration version")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	path, err := CreateSQLMigration(dir, "Add Order Notes!", now)
	require.NoError(t, err)
	require.Equal(t, "20260402103000_add_order_notes.sql", filepath.Base(path))

	next, err := CreateSQLMigration(dir, "index notes", now)
	require.NoError(t, err)
	require.Equal(t, "20260402103001_index_notes.sql", filepath.Base(next))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))
}

func TestRunUpAndDownOnSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	migrator, err := New(sqlDB, "sqlite")
	require.NoError(t, err)
	applied, err := migrator.Up(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, applied)

	for _, table := range []string{"stores", "products", "offers", "shipping_rules", "orders", "checkout_attempts", "outbox_events"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}

	require.NoError(t, migrator.To(ctx, 20260301090000))
	require.False(t, conn.Migrator().HasTable("orders"))
	require.True(t, conn.Migrator().HasTable("products"))

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	require.True(t, statuses[0].Applied)
	require.Equal(t, "20260301090000_create_catalog.sql", statuses[0].Name)
	require.False(t, statuses[2].Applied)
}

func TestValidateFSReportsAllProblems(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.sql":                      {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_only_up.sql":   {Data: []byte("-- +goose Up\n")},
		"20260101000001_only_down.sql": {Data: []byte("-- +goose Down\n")},
	}
	require.Len(t, multierr.Errors(ValidateFS(fsys)), 3)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301090100")
	require.NoError(t, err)
	require.Equal(t, int64(20260301090100), v)

	_, err = ParseVersion("2026")
	require.Error(t, err)
	_, err = ParseVersion("2026030109010x")
	require.Error(t, err)
}

func TestDialect(t *testing.T) {
	require.Equal(t, goose.DialectSQLite3, Dialect("SQLite"))
	require.Equal(t, goose.DialectPostgres, Dialect("postgres"))
	require.Equal(t, goose.DialectPostgres, Dialect(""))
}
