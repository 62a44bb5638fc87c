package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRowsSchemaIndependentOfRowOrder(t *testing.T) {
	rows := []map[string]interface{}{
		{"b": int64(1), "a": "x"},
		{"c": 2.5},
	}
	reversed := []map[string]interface{}{rows[1], rows[0]}

	first := FromRows(rows)
	second := FromRows(reversed)

	assert.Equal(t, []string{"a", "b", "c"}, first.Columns())
	assert.Equal(t, first.Columns(), second.Columns())

	// Missing keys become nil cells.
	assert.Nil(t, first.Cell(1, "a"))
	assert.Nil(t, first.Cell(0, "c"))
	assert.Equal(t, int64(1), first.Cell(0, "b"))
}

func TestFromRowsCanonicalizesNumbers(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"n": int(7), "f": float32(1.5)},
	})
	assert.Equal(t, int64(7), tbl.Cell(0, "n"))
	assert.Equal(t, float64(1.5), tbl.Cell(0, "f"))
}

func TestSelectAndDrop(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"a": "1", "b": "2", "c": "3"},
	})

	sel, err := tbl.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())

	_, err = tbl.Select("missing")
	require.Error(t, err)

	// Drop ignores unknown names.
	dropped := tbl.Drop("b", "missing")
	assert.Equal(t, []string{"a", "c"}, dropped.Columns())
}

func TestFilterPreservesOrder(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"v": int64(3)},
		{"v": int64(1)},
		{"v": int64(4)},
		{"v": int64(1)},
	})
	odd := tbl.Filter(func(r Row) bool { return r.Get("v").(int64)%2 == 1 })
	require.Equal(t, 3, odd.NumRows())
	assert.Equal(t, int64(3), odd.Cell(0, "v"))
	assert.Equal(t, int64(1), odd.Cell(1, "v"))
	assert.Equal(t, int64(1), odd.Cell(2, "v"))
}

func TestDropEmptyRows(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"a": "x", "b": nil},
		{"a": nil, "b": nil},
		{"a": nil, "b": int64(1)},
	})
	kept := tbl.DropEmptyRows()
	require.Equal(t, 2, kept.NumRows())
	assert.Equal(t, "x", kept.Cell(0, "a"))
	assert.Equal(t, int64(1), kept.Cell(1, "b"))
}

func TestDropDuplicatesKeepsFirst(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"a": "x", "b": int64(1)},
		{"a": "x", "b": int64(1)},
		{"a": "x", "b": int64(2)},
	})
	deduped := tbl.DropDuplicates()
	require.Equal(t, 2, deduped.NumRows())
	assert.Equal(t, int64(1), deduped.Cell(0, "b"))
	assert.Equal(t, int64(2), deduped.Cell(1, "b"))
}

func TestDropDuplicatesDistinguishesNilFromEmptyString(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"a": nil},
		{"a": ""},
	})
	assert.Equal(t, 2, tbl.DropDuplicates().NumRows())
}

func TestWithColumnReplacesInPlace(t *testing.T) {
	tbl := FromRows([]map[string]interface{}{
		{"a": "1", "b": "2"},
	})
	col := NewAnyColumn(1)
	col.Append("replaced")

	out, err := tbl.WithColumn("a", col)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Columns())
	assert.Equal(t, "replaced", out.Cell(0, "a"))
	// The input table is untouched.
	assert.Equal(t, "1", tbl.Cell(0, "a"))

	short := NewAnyColumn(0)
	_, err = tbl.WithColumn("a", short)
	require.Error(t, err)
}

func TestBuilderIgnoresUndeclaredKeys(t *testing.T) {
	b := NewBuilder("x", "y")
	b.Append(map[string]interface{}{"x": int64(1), "z": "dropped"})
	b.Append(map[string]interface{}{"y": "only"})

	tbl := b.Table()
	assert.Equal(t, []string{"x", "y"}, tbl.Columns())
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, int64(1), tbl.Cell(0, "x"))
	assert.Nil(t, tbl.Cell(0, "y"))
	assert.Equal(t, "only", tbl.Cell(1, "y"))
	assert.False(t, tbl.Has("z"))
}
