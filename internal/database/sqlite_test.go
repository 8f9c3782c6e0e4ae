package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type kvRow struct {
	Name  string `gorm:"primaryKey"`
	Value string
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("", zap.NewNop())
	require.Error(t, err)
}

func TestOpenSQLite_MigratesModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	db, err := OpenSQLite(path, zap.NewNop(), &kvRow{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&kvRow{Name: "a", Value: "1"}).Error)
	var got kvRow
	require.NoError(t, db.Where("name = ?", "a").Take(&got).Error)
	require.Equal(t, "1", got.Value)
}
