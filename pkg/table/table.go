package table

import (
	"fmt"
	"sort"

	stringpool "github.com/steamops/vapor/pkg/strings"
)

// Table is an ordered set of equally sized named columns. Tables are treated
// as immutable by the pipelines: every transform returns a new Table, sharing
// untouched columns with its input.
type Table struct {
	names  []string
	byName map[string]Column
}

// New creates an empty table.
func New() *Table {
	return &Table{byName: make(map[string]Column)}
}

// FromRows builds a table from decoded records. The column set is the union
// of keys across all rows, in sorted order so the schema does not depend on
// row order. Missing keys become nil cells.
func FromRows(rows []map[string]interface{}) *Table {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)

	t := New()
	for _, name := range names {
		col := NewAnyColumn(len(rows))
		for _, row := range rows {
			col.Append(row[name])
		}
		t.names = append(t.names, name)
		t.byName[name] = col
	}
	return t
}

// AddColumn appends a named column. The column length must match the table.
func (t *Table) AddColumn(name string, col Column) error {
	if _, exists := t.byName[name]; exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(t.names) > 0 && col.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", name, col.Len(), t.NumRows())
	}
	t.names = append(t.names, name)
	t.byName[name] = col
	return nil
}

// WithColumn returns a table with the named column replaced (keeping its
// position) or appended when new.
func (t *Table) WithColumn(name string, col Column) (*Table, error) {
	if len(t.names) > 0 && col.Len() != t.NumRows() {
		return nil, fmt.Errorf("column %q has %d rows, table has %d", name, col.Len(), t.NumRows())
	}
	out := t.clone()
	if _, exists := out.byName[name]; !exists {
		out.names = append(out.names, name)
	}
	out.byName[name] = col
	return out, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	col, ok := t.byName[name]
	return col, ok
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.names) == 0 {
		return 0
	}
	return t.byName[t.names[0]].Len()
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.names) }

// Cell returns the logical value at (row, column), nil when missing.
func (t *Table) Cell(row int, name string) interface{} {
	col, ok := t.byName[name]
	if !ok {
		return nil
	}
	return col.Get(row)
}

// Row provides access to one row of a table.
type Row struct {
	t *Table
	i int
}

// Row returns an accessor for row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Get returns the row's value in the named column, nil when missing.
func (r Row) Get(name string) interface{} { return r.t.Cell(r.i, name) }

// Index returns the row's position in its table.
func (r Row) Index() int { return r.i }

// Select returns a table with exactly the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := New()
	for _, name := range names {
		col, ok := t.byName[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		out.names = append(out.names, name)
		out.byName[name] = col
	}
	return out, nil
}

// Drop returns a table without the named columns. Unknown names are ignored,
// matching the permissive semantics of column pruning on inferred schemas.
func (t *Table) Drop(names ...string) *Table {
	dropped := make(map[string]struct{}, len(names))
	for _, n := range names {
		dropped[n] = struct{}{}
	}
	out := New()
	for _, name := range t.names {
		if _, skip := dropped[name]; skip {
			continue
		}
		out.names = append(out.names, name)
		out.byName[name] = t.byName[name]
	}
	return out
}

// Filter returns a table with only the rows the predicate accepts, preserving
// order.
func (t *Table) Filter(pred func(Row) bool) *Table {
	idx := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if pred(t.Row(i)) {
			idx = append(idx, i)
		}
	}
	return t.take(idx)
}

// DropEmptyRows removes rows whose every cell is missing.
func (t *Table) DropEmptyRows() *Table {
	return t.Filter(func(r Row) bool {
		for _, name := range t.names {
			if r.Get(name) != nil {
				return true
			}
		}
		return false
	})
}

// DropDuplicates removes exact-duplicate rows, keeping the first occurrence.
func (t *Table) DropDuplicates() *Table {
	seen := make(map[string]struct{}, t.NumRows())
	idx := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		key := t.rowKey(i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		idx = append(idx, i)
	}
	return t.take(idx)
}

// rowKey builds a deduplication key over every cell of a row. The unit
// separator keeps adjacent cells from colliding; nil cells carry a marker
// distinct from the empty string.
func (t *Table) rowKey(i int) string {
	builder := stringpool.GetBuilder()
	defer stringpool.PutBuilder(builder)

	for _, name := range t.names {
		v := t.byName[name].Get(i)
		if v == nil {
			builder.WriteString("\x00")
		} else {
			builder.WriteString(stringpool.ValueToString(v))
		}
		builder.WriteByte(0x1f)
	}
	return stringpool.Clone(builder.String())
}

// take materializes the given row indexes into a new table.
func (t *Table) take(idx []int) *Table {
	out := New()
	for _, name := range t.names {
		out.names = append(out.names, name)
		out.byName[name] = t.byName[name].gather(idx)
	}
	return out
}

func (t *Table) clone() *Table {
	out := New()
	out.names = make([]string, len(t.names))
	copy(out.names, t.names)
	for k, v := range t.byName {
		out.byName[k] = v
	}
	return out
}

// Builder accumulates rows for a known column set, backing each column with
// the generic representation.
type Builder struct {
	names []string
	cols  []*AnyColumn
}

// NewBuilder creates a builder for the given columns, in order.
func NewBuilder(names ...string) *Builder {
	b := &Builder{names: names}
	for range names {
		b.cols = append(b.cols, NewAnyColumn(0))
	}
	return b
}

// Append adds one row. Keys absent from the map become nil cells; keys
// outside the declared column set are ignored.
func (b *Builder) Append(row map[string]interface{}) {
	for i, name := range b.names {
		b.cols[i].Append(row[name])
	}
}

// Table returns the accumulated table.
func (b *Builder) Table() *Table {
	t := New()
	for i, name := range b.names {
		t.names = append(t.names, name)
		t.byName[name] = b.cols[i]
	}
	return t
}
