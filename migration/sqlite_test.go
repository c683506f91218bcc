package migration_test

import (
	"context"
	"testing"

	"github.com/denismitr/shale/ddl"
	"github.com/denismitr/shale/internal/database"
	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/migration"
	"github.com/denismitr/shale/schema"
	"github.com/denismitr/shale/schema/sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteTarget(t *testing.T) migration.Target {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	conn, err := db.Connx(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = db.Close()
	})

	return migration.Target{
		Adapter: database.NewSQLAdapter(conn, sqlite.New(), logger.NullLogger{}),
		Logger:  logger.NullLogger{},
	}
}

func createPeople() *migration.Migration {
	return migration.New(1, "create_people", func(a *migration.Actions) {
		a.Up(func(ctx context.Context, c migration.Context) error {
			return c.CreateTable(ctx, "people", func(tc *ddl.TableCreator) {
				tc.Column("id", schema.Serial)
				tc.Column("name", schema.String, schema.NotNull(), schema.Default("John"))
			})
		})

		a.Down(func(ctx context.Context, c migration.Context) error {
			return c.DropTable(ctx, "people")
		})
	})
}

func TestMigration_AgainstSqlite(t *testing.T) {
	ctx := context.Background()

	t.Run("up down and up again", func(t *testing.T) {
		target := sqliteTarget(t)
		m := createPeople()

		needsUp, err := m.NeedsUp(ctx, target.Adapter)
		require.NoError(t, err)
		assert.True(t, needsUp)

		res, err := m.PerformUp(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, migration.Performed, res)

		exists, err := target.Adapter.StorageExists(ctx, "people")
		require.NoError(t, err)
		assert.True(t, exists)

		names, err := migration.NewLedger(target.Adapter).Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"create_people"}, names)

		res, err = m.PerformUp(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, migration.Skipped, res)

		needsDown, err := m.NeedsDown(ctx, target.Adapter)
		require.NoError(t, err)
		assert.True(t, needsDown)

		res, err = m.PerformDown(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, migration.Performed, res)

		exists, err = target.Adapter.StorageExists(ctx, "people")
		require.NoError(t, err)
		assert.False(t, exists)

		res, err = m.PerformUp(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, migration.Performed, res)
	})

	t.Run("modify table and select", func(t *testing.T) {
		target := sqliteTarget(t)
		_, err := createPeople().PerformUp(ctx, target)
		require.NoError(t, err)

		var names []string
		m := migration.New(2, "rename_name", func(a *migration.Actions) {
			a.Up(func(ctx context.Context, c migration.Context) error {
				if err := c.ModifyTable(ctx, "people", func(tm *ddl.TableModifier) {
					tm.RenameColumn("name", "first_name")
					tm.AddColumn("nickname", schema.String, schema.Size(20))
				}); err != nil {
					return err
				}

				if err := c.Execute(ctx, `INSERT INTO "people" ("nickname") VALUES (?)`, "Johnny"); err != nil {
					return err
				}

				return c.Select(ctx, &names, `SELECT "first_name" FROM "people"`)
			})
		})

		_, err = m.PerformUp(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, []string{"John"}, names)

		table, err := sqlite.New().IntrospectTable(ctx, target.Adapter, "people")
		require.NoError(t, err)
		_, ok := table.Column("first_name")
		assert.True(t, ok)
		_, ok = table.Column("nickname")
		assert.True(t, ok)
	})

	t.Run("failed migration is rolled back with its schema changes", func(t *testing.T) {
		target := sqliteTarget(t)

		m := migration.New(1, "half_done", func(a *migration.Actions) {
			a.Up(func(ctx context.Context, c migration.Context) error {
				if err := c.Execute(ctx, `CREATE TABLE "half" ("v" INTEGER)`); err != nil {
					return err
				}
				return c.Execute(ctx, `INSERT INTO "missing" VALUES (1)`)
			})
		})

		res, err := m.PerformUp(ctx, target)
		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrStatementExecutionFailed))
		assert.Equal(t, migration.Skipped, res)

		exists, err := target.Adapter.StorageExists(ctx, "half")
		require.NoError(t, err)
		assert.False(t, exists)

		needsUp, err := m.NeedsUp(ctx, target.Adapter)
		require.NoError(t, err)
		assert.True(t, needsUp)
	})

	t.Run("unsupported alteration fails before running anything", func(t *testing.T) {
		target := sqliteTarget(t)
		_, err := createPeople().PerformUp(ctx, target)
		require.NoError(t, err)

		m := migration.New(2, "change_name", func(a *migration.Actions) {
			a.Up(func(ctx context.Context, c migration.Context) error {
				return c.ModifyTable(ctx, "people", func(tm *ddl.TableModifier) {
					tm.AddColumn("age", schema.Integer)
					tm.ChangeColumn("name", schema.Text)
				})
			})
		})

		_, err = m.PerformUp(ctx, target)
		assert.True(t, errors.Is(err, schema.ErrDialectUnsupported))

		table, err := sqlite.New().IntrospectTable(ctx, target.Adapter, "people")
		require.NoError(t, err)
		_, ok := table.Column("age")
		assert.False(t, ok)
	})

	t.Run("ledger table without the name column", func(t *testing.T) {
		target := sqliteTarget(t)
		require.NoError(t, target.Adapter.Exec(ctx, `CREATE TABLE "migration_info" ("other" TEXT)`))
		require.NoError(t, target.Adapter.Exec(ctx, `INSERT INTO "migration_info" ("other") VALUES ('x')`))

		m := createPeople()

		_, err := m.NeedsUp(ctx, target.Adapter)
		assert.True(t, errors.Is(err, migration.ErrLedgerInconsistent))

		res, err := m.PerformUp(ctx, target)
		assert.True(t, errors.Is(err, migration.ErrLedgerInconsistent))
		assert.Equal(t, migration.Skipped, res)

		exists, err := target.Adapter.StorageExists(ctx, "people")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = migration.NewLedger(target.Adapter).Names(ctx)
		assert.True(t, errors.Is(err, migration.ErrLedgerInconsistent))
	})
}
