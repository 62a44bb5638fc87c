package table

// OptimizeTypes narrows the physical representation of every column where a
// narrower representation holds the same logical values:
//
//   - text columns whose distinct-value ratio is below 0.5 become
//     dictionary-encoded categoricals
//   - integer columns are downcast to the smallest width that holds the
//     observed range
//   - float columns are downcast to float32 when every value round-trips
//     exactly
//   - boolean columns without missing values become bit-packed
//
// The result has identical logical values, row count, and row order. A column
// with no narrower representation is passed through unchanged.
func OptimizeTypes(t *Table) *Table {
	out := New()
	for _, name := range t.names {
		out.names = append(out.names, name)
		out.byName[name] = optimizeColumn(t.byName[name])
	}
	return out
}

// categoricalThreshold is the distinct-value ratio below which a text column
// is dictionary-encoded.
const categoricalThreshold = 0.5

func optimizeColumn(col Column) Column {
	switch c := col.(type) {
	case *AnyColumn:
		return optimizeAny(c)
	case *IntColumn[int64]:
		return narrowInt64(c)
	case *FloatColumn[float64]:
		return narrowFloat64(c)
	default:
		return col
	}
}

// profile of an AnyColumn's contents
type columnProfile struct {
	strings, ints, floats, bools, nulls, other int
	distinct                                   map[string]struct{}
	minInt, maxInt                             int64
	float32Exact                               bool
}

func profileColumn(c *AnyColumn) columnProfile {
	p := columnProfile{
		distinct:     make(map[string]struct{}),
		float32Exact: true,
	}
	for i := 0; i < c.Len(); i++ {
		switch v := c.Get(i).(type) {
		case nil:
			p.nulls++
		case string:
			p.distinct[v] = struct{}{}
			p.strings++
		case int64:
			if p.ints == 0 || v < p.minInt {
				p.minInt = v
			}
			if p.ints == 0 || v > p.maxInt {
				p.maxInt = v
			}
			p.ints++
		case float64:
			if float64(float32(v)) != v {
				p.float32Exact = false
			}
			p.floats++
		case bool:
			p.bools++
		default:
			p.other++
		}
	}
	return p
}

func optimizeAny(c *AnyColumn) Column {
	n := c.Len()
	if n == 0 {
		return c
	}
	p := profileColumn(c)
	if p.other > 0 {
		return c
	}

	switch {
	case p.strings+p.nulls == n && p.strings > 0:
		if float64(len(p.distinct))/float64(n) >= categoricalThreshold {
			return c
		}
		out := NewCategoricalColumn(n)
		for i := 0; i < n; i++ {
			if v := c.Get(i); v == nil {
				out.AppendNull()
			} else {
				out.AppendString(v.(string))
			}
		}
		return out

	case p.ints+p.nulls == n && p.ints > 0:
		return buildIntColumn(c, fitWidth(p.minInt, p.maxInt))

	case p.ints+p.floats+p.nulls == n && p.floats > 0:
		if p.float32Exact && intsFitFloat32(c) {
			return buildFloatColumn[float32](c, NewFloat32Column(n))
		}
		return buildFloatColumn[float64](c, NewFloat64Column(n))

	case p.bools == n:
		out := NewBoolColumn()
		for i := 0; i < n; i++ {
			out.AppendBool(c.Get(i).(bool))
		}
		return out
	}

	return c
}

// intsFitFloat32 checks the integer members of a mixed numeric column for an
// exact float32 round-trip.
func intsFitFloat32(c *AnyColumn) bool {
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Get(i).(int64); ok {
			f := float64(v)
			if float64(float32(f)) != f {
				return false
			}
		}
	}
	return true
}

func buildIntColumn(c *AnyColumn, phys PhysicalType) Column {
	n := c.Len()
	switch phys {
	case PhysInt8:
		return fillInts(c, newIntColumn[int8](phys, n))
	case PhysInt16:
		return fillInts(c, newIntColumn[int16](phys, n))
	case PhysInt32:
		return fillInts(c, newIntColumn[int32](phys, n))
	default:
		return fillInts(c, newIntColumn[int64](phys, n))
	}
}

func fillInts[T signed](c *AnyColumn, out *IntColumn[T]) Column {
	for i := 0; i < c.Len(); i++ {
		if v := c.Get(i); v == nil {
			out.AppendNull()
		} else {
			out.AppendInt(v.(int64))
		}
	}
	return out
}

func buildFloatColumn[T floating](c *AnyColumn, out *FloatColumn[T]) Column {
	for i := 0; i < c.Len(); i++ {
		switch v := c.Get(i).(type) {
		case nil:
			out.AppendNull()
		case int64:
			out.AppendFloat(float64(v))
		case float64:
			out.AppendFloat(v)
		}
	}
	return out
}

func narrowInt64(c *IntColumn[int64]) Column {
	if c.Len() == 0 {
		return c
	}
	var min, max int64
	seen := false
	for i := 0; i < c.Len(); i++ {
		if c.nulls[i] {
			continue
		}
		v := c.values[i]
		if !seen || v < min {
			min = v
		}
		if !seen || v > max {
			max = v
		}
		seen = true
	}
	if !seen {
		return c
	}
	phys := fitWidth(min, max)
	if phys == PhysInt64 {
		return c
	}
	switch phys {
	case PhysInt8:
		return recastInts(c, newIntColumn[int8](phys, c.Len()))
	case PhysInt16:
		return recastInts(c, newIntColumn[int16](phys, c.Len()))
	default:
		return recastInts(c, newIntColumn[int32](phys, c.Len()))
	}
}

func recastInts[T signed](c *IntColumn[int64], out *IntColumn[T]) Column {
	for i := 0; i < c.Len(); i++ {
		if c.nulls[i] {
			out.AppendNull()
		} else {
			out.AppendInt(c.values[i])
		}
	}
	return out
}

func narrowFloat64(c *FloatColumn[float64]) Column {
	for i := 0; i < c.Len(); i++ {
		if c.nulls[i] {
			continue
		}
		v := c.values[i]
		if float64(float32(v)) != v {
			return c
		}
	}
	out := NewFloat32Column(c.Len())
	for i := 0; i < c.Len(); i++ {
		if c.nulls[i] {
			out.AppendNull()
		} else {
			out.AppendFloat(c.values[i])
		}
	}
	return out
}
