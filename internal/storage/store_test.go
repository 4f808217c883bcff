package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/models"
)

func TestStore_OpenClose(t *testing.T) {
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)

	require.NotNil(t, store.DB())
	assert.NoError(t, store.Close())
}

func TestStore_DBExposesRawQueries(t *testing.T) {
	// The raw handle supports direct badgerhold access alongside the typed
	// stores, for maintenance queries the stores don't wrap.
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	asset := &models.Asset{ID: "raw-1", Symbol: "RELIANCE", Class: models.ClassStock}
	require.NoError(t, store.DB().Upsert(asset.ID, asset))

	var assets []models.Asset
	require.NoError(t, store.DB().Find(&assets, nil))
	require.Len(t, assets, 1)
	assert.Equal(t, "RELIANCE", assets[0].Symbol)
}

func TestStore_CloseWithoutOpen(t *testing.T) {
	store := &Store{}
	assert.NoError(t, store.Close())
}
