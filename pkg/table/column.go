// Package table provides the in-memory column table the batch pipelines
// operate on. Columns hold logical values (string, int64, float64, bool, or
// nil for missing); the physical representation can be narrowed without
// changing logical values.
package table

// PhysicalType identifies the physical representation of a column.
type PhysicalType int

const (
	PhysAny PhysicalType = iota
	PhysCategorical
	PhysInt8
	PhysInt16
	PhysInt32
	PhysInt64
	PhysFloat32
	PhysFloat64
	PhysBool
)

// Column is the base interface for all column representations.
// Get returns the logical value at i, nil when missing. Logical values are
// always one of string, int64, float64, bool, or nil regardless of the
// physical representation.
type Column interface {
	Physical() PhysicalType
	Len() int
	Get(i int) interface{}
	gather(idx []int) Column
}

// AnyColumn stores arbitrary logical values. It is the working representation
// used while a pipeline is still transforming a table.
type AnyColumn struct {
	values []interface{}
}

// NewAnyColumn creates an empty generic column.
func NewAnyColumn(capacity int) *AnyColumn {
	return &AnyColumn{values: make([]interface{}, 0, capacity)}
}

func (c *AnyColumn) Physical() PhysicalType { return PhysAny }
func (c *AnyColumn) Len() int               { return len(c.values) }
func (c *AnyColumn) Get(i int) interface{}  { return c.values[i] }

// Append adds a logical value. Numeric values are canonicalized to int64 or
// float64 so downstream passes see a single representation per family.
func (c *AnyColumn) Append(v interface{}) {
	c.values = append(c.values, canonicalize(v))
}

func (c *AnyColumn) gather(idx []int) Column {
	out := make([]interface{}, len(idx))
	for i, j := range idx {
		out[i] = c.values[j]
	}
	return &AnyColumn{values: out}
}

// canonicalize maps numeric variants onto int64/float64.
func canonicalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// CategoricalColumn stores repeated strings dictionary-encoded: one code per
// row pointing into a shared value dictionary. Code -1 marks a missing value.
type CategoricalColumn struct {
	dict  []string
	index map[string]int32
	codes []int32
}

// NewCategoricalColumn creates an empty dictionary-encoded column.
func NewCategoricalColumn(capacity int) *CategoricalColumn {
	return &CategoricalColumn{
		index: make(map[string]int32),
		codes: make([]int32, 0, capacity),
	}
}

func (c *CategoricalColumn) Physical() PhysicalType { return PhysCategorical }
func (c *CategoricalColumn) Len() int               { return len(c.codes) }

func (c *CategoricalColumn) Get(i int) interface{} {
	code := c.codes[i]
	if code < 0 {
		return nil
	}
	return c.dict[code]
}

// AppendString adds a value, extending the dictionary when the value is new.
func (c *CategoricalColumn) AppendString(s string) {
	code, ok := c.index[s]
	if !ok {
		code = int32(len(c.dict))
		c.dict = append(c.dict, s)
		c.index[s] = code
	}
	c.codes = append(c.codes, code)
}

// AppendNull adds a missing value.
func (c *CategoricalColumn) AppendNull() {
	c.codes = append(c.codes, -1)
}

// Cardinality returns the number of distinct values in the dictionary.
func (c *CategoricalColumn) Cardinality() int { return len(c.dict) }

func (c *CategoricalColumn) gather(idx []int) Column {
	out := NewCategoricalColumn(len(idx))
	for _, j := range idx {
		if v := c.Get(j); v == nil {
			out.AppendNull()
		} else {
			out.AppendString(v.(string))
		}
	}
	return out
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// IntColumn stores integers at a fixed width with a null mask.
type IntColumn[T signed] struct {
	values []T
	nulls  []bool
	phys   PhysicalType
}

func newIntColumn[T signed](phys PhysicalType, capacity int) *IntColumn[T] {
	return &IntColumn[T]{
		values: make([]T, 0, capacity),
		nulls:  make([]bool, 0, capacity),
		phys:   phys,
	}
}

// NewInt8Column creates an 8-bit integer column.
func NewInt8Column(capacity int) *IntColumn[int8] { return newIntColumn[int8](PhysInt8, capacity) }

// NewInt16Column creates a 16-bit integer column.
func NewInt16Column(capacity int) *IntColumn[int16] { return newIntColumn[int16](PhysInt16, capacity) }

// NewInt32Column creates a 32-bit integer column.
func NewInt32Column(capacity int) *IntColumn[int32] { return newIntColumn[int32](PhysInt32, capacity) }

// NewInt64Column creates a 64-bit integer column.
func NewInt64Column(capacity int) *IntColumn[int64] { return newIntColumn[int64](PhysInt64, capacity) }

func (c *IntColumn[T]) Physical() PhysicalType { return c.phys }
func (c *IntColumn[T]) Len() int               { return len(c.values) }

func (c *IntColumn[T]) Get(i int) interface{} {
	if c.nulls[i] {
		return nil
	}
	return int64(c.values[i])
}

// AppendInt adds a value. The caller guarantees the value fits the width.
func (c *IntColumn[T]) AppendInt(v int64) {
	c.values = append(c.values, T(v))
	c.nulls = append(c.nulls, false)
}

// AppendNull adds a missing value.
func (c *IntColumn[T]) AppendNull() {
	c.values = append(c.values, 0)
	c.nulls = append(c.nulls, true)
}

func (c *IntColumn[T]) gather(idx []int) Column {
	out := &IntColumn[T]{
		values: make([]T, len(idx)),
		nulls:  make([]bool, len(idx)),
		phys:   c.phys,
	}
	for i, j := range idx {
		out.values[i] = c.values[j]
		out.nulls[i] = c.nulls[j]
	}
	return out
}

type floating interface {
	~float32 | ~float64
}

// FloatColumn stores floating point values at a fixed width with a null mask.
type FloatColumn[T floating] struct {
	values []T
	nulls  []bool
	phys   PhysicalType
}

// NewFloat32Column creates a 32-bit float column.
func NewFloat32Column(capacity int) *FloatColumn[float32] {
	return &FloatColumn[float32]{
		values: make([]float32, 0, capacity),
		nulls:  make([]bool, 0, capacity),
		phys:   PhysFloat32,
	}
}

// NewFloat64Column creates a 64-bit float column.
func NewFloat64Column(capacity int) *FloatColumn[float64] {
	return &FloatColumn[float64]{
		values: make([]float64, 0, capacity),
		nulls:  make([]bool, 0, capacity),
		phys:   PhysFloat64,
	}
}

func (c *FloatColumn[T]) Physical() PhysicalType { return c.phys }
func (c *FloatColumn[T]) Len() int               { return len(c.values) }

func (c *FloatColumn[T]) Get(i int) interface{} {
	if c.nulls[i] {
		return nil
	}
	return float64(c.values[i])
}

// AppendFloat adds a value.
func (c *FloatColumn[T]) AppendFloat(v float64) {
	c.values = append(c.values, T(v))
	c.nulls = append(c.nulls, false)
}

// AppendNull adds a missing value.
func (c *FloatColumn[T]) AppendNull() {
	c.values = append(c.values, 0)
	c.nulls = append(c.nulls, true)
}

func (c *FloatColumn[T]) gather(idx []int) Column {
	out := &FloatColumn[T]{
		values: make([]T, len(idx)),
		nulls:  make([]bool, len(idx)),
		phys:   c.phys,
	}
	for i, j := range idx {
		out.values[i] = c.values[j]
		out.nulls[i] = c.nulls[j]
	}
	return out
}

// BoolColumn stores boolean values bit-packed: 64 values per uint64.
type BoolColumn struct {
	words []uint64
	count int
}

// NewBoolColumn creates an empty bit-packed boolean column.
func NewBoolColumn() *BoolColumn {
	return &BoolColumn{words: make([]uint64, 0, 16)}
}

func (c *BoolColumn) Physical() PhysicalType { return PhysBool }
func (c *BoolColumn) Len() int               { return c.count }

func (c *BoolColumn) Get(i int) interface{} {
	return (c.words[i/64] & (1 << (i % 64))) != 0
}

// AppendBool adds a value.
func (c *BoolColumn) AppendBool(v bool) {
	wordIndex := c.count / 64
	if wordIndex >= len(c.words) {
		c.words = append(c.words, 0)
	}
	if v {
		c.words[wordIndex] |= 1 << (c.count % 64)
	}
	c.count++
}

func (c *BoolColumn) gather(idx []int) Column {
	out := NewBoolColumn()
	for _, j := range idx {
		out.AppendBool(c.Get(j).(bool))
	}
	return out
}

// fitWidth returns the narrowest physical integer type that holds both
// bounds losslessly.
func fitWidth(min, max int64) PhysicalType {
	switch {
	case min >= -128 && max <= 127:
		return PhysInt8
	case min >= -32768 && max <= 32767:
		return PhysInt16
	case min >= -2147483648 && max <= 2147483647:
		return PhysInt32
	default:
		return PhysInt64
	}
}
