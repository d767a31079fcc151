package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routethat/playsim/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestManager_SQLiteInMemory(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(DialectSQLite, ""))
	defer m.Close()

	assert.Equal(t, DialectSQLite, m.Dialect)
	require.NoError(t, m.Setup())

	for _, tbl := range []string{"plays", "runs", "frames", "results"} {
		assert.True(t, m.DB.Migrator().HasTable(tbl), tbl)
	}
}

func TestManager_InMemoryDatabasesAreIsolated(t *testing.T) {
	a := NewManager(zerolog.Nop())
	require.NoError(t, a.Connect(DialectSQLite, ""))
	defer a.Close()
	require.NoError(t, a.Setup())

	b := NewManager(zerolog.Nop())
	require.NoError(t, b.Connect(DialectSQLite, ""))
	defer b.Close()
	require.NoError(t, b.Setup())

	require.NoError(t, a.DB.Create(&model.Play{Name: "Verts", Routes: datatypes.JSON("{}")}).Error)

	var count int64
	require.NoError(t, b.DB.Model(&model.Play{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestManager_UnknownDialect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.ErrorContains(t, m.Connect("mysql", ""), "unknown database dialect")
}

func TestManager_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.ErrorIs(t, m.Setup(), ErrNotConnected)
	assert.ErrorIs(t, m.DumpMemoryToDisk("x.db"), ErrNotConnected)
	assert.NoError(t, m.Close())
}

func TestDumpMemoryToDisk(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(DialectSQLite, ""))
	defer m.Close()
	require.NoError(t, m.Setup())
	require.NoError(t, m.DB.Create(&model.Play{Name: "Flood", Routes: datatypes.JSON("{}")}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, m.DumpMemoryToDisk(path))
	// a second dump replaces the first
	require.NoError(t, m.DumpMemoryToDisk(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	disk := NewManager(zerolog.Nop())
	require.NoError(t, disk.Connect(DialectSQLite, path))
	defer disk.Close()

	var plays []model.Play
	require.NoError(t, disk.DB.Find(&plays).Error)
	require.Len(t, plays, 1)
	assert.Equal(t, "Flood", plays[0].Name)
}

func TestDumpMemoryDBToDisk_EmptyPath(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestPostgresDSN(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "sim")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "playsim")

	assert.Equal(t, "host=db.internal port=6543 user=sim password=pw dbname=playsim sslmode=disable", PostgresDSN())
}
