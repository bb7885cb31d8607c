package archipelago

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.json")

	c := loadDataCache(path)
	c.merge(map[string]GameData{
		GameName: {
			ItemNameToID:     map[string]int64{"Cerberus": 0x6F3016},
			LocationNameToID: map[string]int64{"Mission #3 - Cerberus": 42},
			Checksum:         "abc",
		},
	})
	require.NoError(t, c.save(path))

	back := loadDataCache(path)
	assert.Equal(t, "abc", back.Checksums[GameName])
	assert.Equal(t, int64(0x6F3016), back.DataPackage[GameName].ItemNameToID["Cerberus"])
}

func TestDataCacheLoadToleratesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	c := loadDataCache(path)
	assert.NotNil(t, c.Checksums)
	assert.NotNil(t, c.DataPackage)
	assert.Empty(t, c.Checksums)
}

func TestDataCacheStale(t *testing.T) {
	c := loadDataCache(filepath.Join(t.TempDir(), "none.json"))
	c.merge(map[string]GameData{
		"A": {Checksum: "1"},
		"B": {Checksum: "2"},
	})

	stale := c.stale(map[string]string{"A": "1", "B": "9", "C": "3"})
	assert.ElementsMatch(t, []string{"B", "C"}, stale)

	// A matching checksum with no cached package body still counts.
	delete(c.DataPackage, "A")
	stale = c.stale(map[string]string{"A": "1"})
	assert.Equal(t, []string{"A"}, stale)
}
