package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamops/vapor/pkg/errors"
)

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func writePlain(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadJSONSkipsMalformedLines(t *testing.T) {
	content := `{"id": "1", "price": 9.99}
not json at all

{"id": "2", "metascore": 85}
`
	path := writeGzip(t, t.TempDir(), "games.json.gz", content)

	records, stats, err := NewReader().ReadJSON(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 1, stats.Malformed)

	// Integral JSON numbers come back as int64, fractional as float64.
	assert.Equal(t, 9.99, records[0]["price"])
	assert.Equal(t, int64(85), records[1]["metascore"])
}

func TestReadJSONPlainFile(t *testing.T) {
	path := writePlain(t, t.TempDir(), "games.json", `{"id": "1"}`+"\n")
	records, _, err := NewReader().ReadJSON(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0]["id"])
}

func TestReadLiteralsSkipsMalformedLines(t *testing.T) {
	content := `{'user_id': 'u1', 'reviews': [{'recommend': True, 'review': 'good'}]}
{broken
{'user_id': 'u2', 'reviews': []}
`
	path := writePlain(t, t.TempDir(), "reviews.json", content)

	records, stats, err := NewReader().ReadLiterals(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, "u1", records[0]["user_id"])
}

func TestReadMissingFileIsSourceUnavailable(t *testing.T) {
	_, _, err := NewReader().ReadJSON(filepath.Join(t.TempDir(), "absent.json.gz"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceUnavailable))
}

func TestReadCorruptGzipIsSourceUnavailable(t *testing.T) {
	path := writePlain(t, t.TempDir(), "corrupt.json.gz", "this is not gzip")
	_, _, err := NewReader().ReadJSON(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceUnavailable))
}

func TestNormalizeNumbersRecurses(t *testing.T) {
	rec := map[string]interface{}{
		"n":    float64(3),
		"f":    2.5,
		"list": []interface{}{float64(1), 1.5},
		"obj":  map[string]interface{}{"deep": float64(7)},
	}
	normalizeNumbers(rec)

	assert.Equal(t, int64(3), rec["n"])
	assert.Equal(t, 2.5, rec["f"])
	assert.Equal(t, []interface{}{int64(1), 1.5}, rec["list"])
	assert.Equal(t, int64(7), rec["obj"].(map[string]interface{})["deep"])
}
