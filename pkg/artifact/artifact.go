// Package artifact persists finished projections as compressed Parquet
// files, one file per projection, and loads them back for serving. The file
// schema is exactly the projection's column set in order; no index column is
// written.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/steamops/vapor/pkg/errors"
	"github.com/steamops/vapor/pkg/table"
)

// Codec selects the parquet column compression.
func codecFor(name string) (compress.Compression, error) {
	switch name {
	case "", "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("unsupported compression %q", name))
	}
}

// Write persists a table to path as Parquet using the named compression
// codec ("gzip", "zstd", "snappy", or "none").
func Write(path string, t *table.Table, compression string) error {
	codec, err := codecFor(compression)
	if err != nil {
		return err
	}

	schema, err := arrowSchema(t)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create artifact directory")
	}
	f, err := os.Create(path) //nolint:gosec // G304: artifact paths come from config
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create artifact file")
	}
	defer f.Close()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
	)
	writer, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create parquet writer")
	}

	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for row := 0; row < t.NumRows(); row++ {
		for i, name := range t.Columns() {
			col, _ := t.Column(name)
			if err := appendValue(builder.Field(i), col.Get(row)); err != nil {
				return errors.Wrap(err, errors.ErrorTypeInternal,
					fmt.Sprintf("failed to append value for column %s", name))
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	if err := writer.Write(rec); err != nil {
		writer.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write parquet record")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to close parquet writer")
	}
	return nil
}

// Read loads a Parquet artifact back into a table. Column physical types
// widen to their logical representations.
func Read(path string) (*table.Table, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable,
			fmt.Sprintf("failed to open artifact %s", path))
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create parquet reader")
	}

	arrowTable, err := reader.ReadTable(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read parquet table")
	}
	defer arrowTable.Release()

	out := table.New()
	for i := 0; i < int(arrowTable.NumCols()); i++ {
		chunked := arrowTable.Column(i).Data()
		col := table.NewAnyColumn(int(arrowTable.NumRows()))
		for _, chunk := range chunked.Chunks() {
			if err := appendChunk(col, chunk); err != nil {
				return nil, err
			}
		}
		if err := out.AddColumn(arrowTable.Schema().Field(i).Name, col); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to assemble table")
		}
	}
	return out, nil
}

// arrowSchema maps the table's physical column types onto an Arrow schema.
// Generic columns must be uniformly typed; pipelines cast mixed columns
// before persisting.
func arrowSchema(t *table.Table) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, t.NumColumns())
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		dt, err := arrowType(col)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal,
				fmt.Sprintf("column %s has no parquet mapping", name))
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowType(col table.Column) (arrow.DataType, error) {
	switch col.Physical() {
	case table.PhysCategorical:
		return arrow.BinaryTypes.String, nil
	case table.PhysInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case table.PhysInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case table.PhysInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case table.PhysInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case table.PhysFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case table.PhysFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case table.PhysBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case table.PhysAny:
		return inferArrowType(col)
	default:
		return nil, fmt.Errorf("unknown physical type")
	}
}

// inferArrowType derives the Arrow type of a generic column from its values.
func inferArrowType(col table.Column) (arrow.DataType, error) {
	var inferred arrow.DataType
	for i := 0; i < col.Len(); i++ {
		v := col.Get(i)
		if v == nil {
			continue
		}
		var dt arrow.DataType
		switch v.(type) {
		case string:
			dt = arrow.BinaryTypes.String
		case int64:
			dt = arrow.PrimitiveTypes.Int64
		case float64:
			dt = arrow.PrimitiveTypes.Float64
		case bool:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			return nil, fmt.Errorf("unsupported value type %T", v)
		}
		if inferred == nil {
			inferred = dt
		} else if inferred.ID() != dt.ID() {
			return nil, fmt.Errorf("mixed value types %s and %s", inferred, dt)
		}
	}
	if inferred == nil {
		// All-null column: persist as nullable string.
		inferred = arrow.BinaryTypes.String
	}
	return inferred, nil
}

func appendValue(b array.Builder, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch builder := b.(type) {
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		builder.Append(s)
	case *array.Int8Builder:
		builder.Append(int8(v.(int64)))
	case *array.Int16Builder:
		builder.Append(int16(v.(int64)))
	case *array.Int32Builder:
		builder.Append(int32(v.(int64)))
	case *array.Int64Builder:
		builder.Append(v.(int64))
	case *array.Float32Builder:
		builder.Append(float32(v.(float64)))
	case *array.Float64Builder:
		builder.Append(v.(float64))
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		builder.Append(bv)
	default:
		return fmt.Errorf("unsupported builder type %T", b)
	}
	return nil
}

func appendChunk(col *table.AnyColumn, chunk arrow.Array) error {
	for i := 0; i < chunk.Len(); i++ {
		if chunk.IsNull(i) {
			col.Append(nil)
			continue
		}
		switch arr := chunk.(type) {
		case *array.String:
			col.Append(arr.Value(i))
		case *array.Int8:
			col.Append(int64(arr.Value(i)))
		case *array.Int16:
			col.Append(int64(arr.Value(i)))
		case *array.Int32:
			col.Append(int64(arr.Value(i)))
		case *array.Int64:
			col.Append(arr.Value(i))
		case *array.Float32:
			col.Append(float64(arr.Value(i)))
		case *array.Float64:
			col.Append(arr.Value(i))
		case *array.Boolean:
			col.Append(arr.Value(i))
		default:
			return errors.New(errors.ErrorTypeInternal,
				fmt.Sprintf("unsupported arrow array type %T", chunk))
		}
	}
	return nil
}
