package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var out []entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	w.Record("checked", map[string]any{"key": "Mission #1 - Vital Star S", "room": 5})
	w.Record("goal", nil)
	require.NoError(t, w.Close())

	day := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(dir, "session-"+day+".jsonl.zst")
	entries := readEntries(t, path)

	require.Len(t, entries, 2)
	assert.Equal(t, "checked", entries[0].Kind)
	assert.Equal(t, "Mission #1 - Vital Star S", entries[0].Attrs["key"])
	assert.Equal(t, "goal", entries[1].Kind)
	assert.Nil(t, entries[1].Attrs)
}

func TestRecordNeverPanicsOnBadDir(t *testing.T) {
	// A file where the directory should be makes every write fail; the
	// journal swallows that instead of disturbing the session.
	dir := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	w := NewWriter(dir, nil)
	assert.NotPanics(t, func() { w.Record("checked", nil) })
	assert.NoError(t, w.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	w.Record("connected", nil)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
