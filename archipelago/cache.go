package archipelago

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GameData is one game's slice of the server data package.
type GameData struct {
	ItemNameToID     map[string]int64 `json:"item_name_to_id"`
	LocationNameToID map[string]int64 `json:"location_name_to_id"`
	Checksum         string           `json:"checksum"`
}

// dataCache is the on-disk mirror of previously fetched data packages,
// keyed by game name. Checksums let us skip the fetch when the server
// still serves the same package.
type dataCache struct {
	Checksums   map[string]string   `json:"checksums"`
	DataPackage map[string]GameData `json:"data_package"`
}

func loadDataCache(path string) dataCache {
	c := dataCache{
		Checksums:   map[string]string{},
		DataPackage: map[string]GameData{},
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return dataCache{
			Checksums:   map[string]string{},
			DataPackage: map[string]GameData{},
		}
	}
	if c.Checksums == nil {
		c.Checksums = map[string]string{}
	}
	if c.DataPackage == nil {
		c.DataPackage = map[string]GameData{}
	}
	return c
}

func (c dataCache) save(path string) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cache dir: %w", err)
		}
	}
	return os.WriteFile(path, raw, 0o644)
}

// merge folds freshly fetched games into the cache.
func (c *dataCache) merge(games map[string]GameData) {
	for name, gd := range games {
		c.DataPackage[name] = gd
		c.Checksums[name] = gd.Checksum
	}
}

// stale reports which of the server's games need a fresh fetch.
func (c dataCache) stale(serverSums map[string]string) []string {
	var out []string
	for game, sum := range serverSums {
		if c.Checksums[game] != sum {
			out = append(out, game)
			continue
		}
		if _, ok := c.DataPackage[game]; !ok {
			out = append(out, game)
		}
	}
	return out
}
