package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamops/vapor/pkg/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	rows := []map[string]interface{}{
		{"id": "10", "name": "alpha", "price": 9.99, "count": int64(3), "owned": true},
		{"id": "20", "name": "alpha", "price": nil, "count": nil, "owned": false},
		{"id": "30", "name": "beta", "price": float64(0), "count": int64(250), "owned": true},
	}
	return table.FromRows(rows)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.parquet")
	src := sampleTable(t)

	require.NoError(t, Write(path, src, "gzip"))

	got, err := Read(path)
	require.NoError(t, err)

	require.Equal(t, src.Columns(), got.Columns())
	require.Equal(t, src.NumRows(), got.NumRows())
	for i := 0; i < src.NumRows(); i++ {
		for _, name := range src.Columns() {
			assert.Equal(t, src.Cell(i, name), got.Cell(i, name), "row %d column %s", i, name)
		}
	}
}

func TestWriteReadOptimizedRepresentations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimized.parquet")
	src := table.OptimizeTypes(sampleTable(t))

	require.NoError(t, Write(path, src, "gzip"))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, src.NumRows(), got.NumRows())
	for i := 0; i < src.NumRows(); i++ {
		for _, name := range src.Columns() {
			assert.Equal(t, src.Cell(i, name), got.Cell(i, name), "row %d column %s", i, name)
		}
	}
}

func TestWriteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.parquet")
	require.NoError(t, Write(path, sampleTable(t), "none"))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NumRows())
}

func TestWriteRejectsUnknownCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")
	err := Write(path, sampleTable(t), "brotli")
	require.Error(t, err)
}

func TestWriteRejectsMixedColumn(t *testing.T) {
	tbl := table.New()
	col := table.NewAnyColumn(2)
	col.Append("Unknown")
	col.Append(int64(2018))
	require.NoError(t, tbl.AddColumn("year", col))

	err := Write(filepath.Join(t.TempDir(), "mixed.parquet"), tbl, "gzip")
	require.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.parquet"))
	require.Error(t, err)
}
