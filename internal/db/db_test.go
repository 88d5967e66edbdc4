package db_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nssnepal/membership/internal/db"
)

// TestWALMode verifies that the DSN parameters enable WAL journal mode and foreign keys.
func TestWALMode(t *testing.T) {
	gdb, err := db.Open(filepath.Join(t.TempDir(), "wal_test.db"), true)
	require.NoError(t, err)

	var mode string
	gdb.Raw("PRAGMA journal_mode").Scan(&mode)
	assert.Equal(t, "wal", mode)

	var fk int
	gdb.Raw("PRAGMA foreign_keys").Scan(&fk)
	assert.Equal(t, 1, fk)
}

func TestInit_CreatesIndexes(t *testing.T) {
	require.NoError(t, db.Init(filepath.Join(t.TempDir(), "init.db")))

	sqlDB, err := db.Conn().DB()
	require.NoError(t, err)

	members := indexNames(t, sqlDB, "members")
	for _, want := range []string{"idx_member_type_valid", "idx_member_join"} {
		assert.True(t, members[want], "index %q missing from members; found %v", want, members)
	}
	assert.True(t, indexNames(t, sqlDB, "payments")["idx_payment_mode"])
}

func indexNames(t *testing.T, sqlDB *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := sqlDB.Query("PRAGMA index_list(" + table + ")")
	require.NoError(t, err)
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var seq int
		var name string
		var unique bool
		var origin, partial string
		require.NoError(t, rows.Scan(&seq, &name, &unique, &origin, &partial))
		out[name] = true
	}
	return out
}
