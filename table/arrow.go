package table

import (
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrUnsupportedArrowType indicates a column type this package cannot
// convert between Table values and Arrow arrays.
var ErrUnsupportedArrowType = errors.New("table: unsupported arrow column type")

// FromRecord copies an Arrow record into a table. The record is not
// released; the caller keeps ownership.
func FromRecord(rec arrow.Record) (*Table, error) {
	schema := rec.Schema()
	cols := make([]Column, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		f := schema.Field(i)
		cols[i] = Column{Name: f.Name, Type: f.Type}
	}

	rows := make([][]any, rec.NumRows())
	for r := 0; r < int(rec.NumRows()); r++ {
		row := make([]any, len(cols))
		for c := 0; c < len(cols); c++ {
			v, err := arrayValue(rec.Column(c), r)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", cols[c].Name, err)
			}
			row[c] = v
		}
		rows[r] = row
	}
	return New(cols, rows)
}

// FromReader drains an Arrow record reader into a table. The reader is
// not released; the caller keeps ownership.
func FromReader(reader array.RecordReader) (*Table, error) {
	schema := reader.Schema()
	cols := make([]Column, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		f := schema.Field(i)
		cols[i] = Column{Name: f.Name, Type: f.Type}
	}

	var rows [][]any
	for reader.Next() {
		rec := reader.RecordBatch()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make([]any, len(cols))
			for c := 0; c < len(cols); c++ {
				v, err := arrayValue(rec.Column(c), r)
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", cols[c].Name, err)
				}
				row[c] = v
			}
			rows = append(rows, row)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("table: reading record batches: %w", err)
	}
	return New(cols, rows)
}

// Record builds an Arrow record from the table. The caller must release
// the returned record. A nil allocator uses the default.
func (t *Table) Record(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	fields := make([]arrow.Field, len(t.cols))
	for i, c := range t.cols {
		dt := c.Type
		if dt == nil {
			dt = arrow.Null
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for _, row := range t.rows {
		for c := range t.cols {
			if err := appendValue(builder.Field(c), row[c]); err != nil {
				return nil, fmt.Errorf("column %s: %w", t.cols[c].Name, err)
			}
		}
	}
	return builder.NewRecordBatch(), nil
}

// arrayValue extracts the Go value at idx from an Arrow array.
func arrayValue(col arrow.Array, idx int) (any, error) {
	if col.IsNull(idx) {
		return nil, nil
	}
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(idx), nil
	case *array.Int8:
		return arr.Value(idx), nil
	case *array.Int16:
		return arr.Value(idx), nil
	case *array.Int32:
		return arr.Value(idx), nil
	case *array.Int64:
		return arr.Value(idx), nil
	case *array.Uint8:
		return arr.Value(idx), nil
	case *array.Uint16:
		return arr.Value(idx), nil
	case *array.Uint32:
		return arr.Value(idx), nil
	case *array.Uint64:
		return arr.Value(idx), nil
	case *array.Float32:
		return arr.Value(idx), nil
	case *array.Float64:
		return arr.Value(idx), nil
	case *array.String:
		return arr.Value(idx), nil
	case *array.LargeString:
		return arr.Value(idx), nil
	case *array.Binary:
		return arr.Value(idx), nil
	case *array.Date32:
		return arr.Value(idx).ToTime(), nil
	case *array.Timestamp:
		dt := arr.DataType().(*arrow.TimestampType)
		return arr.Value(idx).ToTime(dt.Unit), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArrowType, col.DataType())
	}
}

// appendValue appends a Go value to an Arrow builder, coercing numeric
// widths where the value fits.
func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch bld := b.(type) {
	case *array.BooleanBuilder:
		val, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %T into BOOLEAN", ErrUnsupportedArrowType, v)
		}
		bld.Append(val)
	case *array.Int8Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into INT8", ErrUnsupportedArrowType, v)
		}
		bld.Append(int8(n))
	case *array.Int16Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into INT16", ErrUnsupportedArrowType, v)
		}
		bld.Append(int16(n))
	case *array.Int32Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into INT32", ErrUnsupportedArrowType, v)
		}
		bld.Append(int32(n))
	case *array.Int64Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into INT64", ErrUnsupportedArrowType, v)
		}
		bld.Append(n)
	case *array.Uint8Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into UINT8", ErrUnsupportedArrowType, v)
		}
		bld.Append(uint8(n))
	case *array.Uint16Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into UINT16", ErrUnsupportedArrowType, v)
		}
		bld.Append(uint16(n))
	case *array.Uint32Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T into UINT32", ErrUnsupportedArrowType, v)
		}
		bld.Append(uint32(n))
	case *array.Uint64Builder:
		switch n := v.(type) {
		case uint64:
			bld.Append(n)
		default:
			i, ok := asInt64(v)
			if !ok {
				return fmt.Errorf("%w: %T into UINT64", ErrUnsupportedArrowType, v)
			}
			bld.Append(uint64(i))
		}
	case *array.Float32Builder:
		f, ok := asFloat64(v)
		if !ok {
			return fmt.Errorf("%w: %T into FLOAT32", ErrUnsupportedArrowType, v)
		}
		bld.Append(float32(f))
	case *array.Float64Builder:
		f, ok := asFloat64(v)
		if !ok {
			return fmt.Errorf("%w: %T into FLOAT64", ErrUnsupportedArrowType, v)
		}
		bld.Append(f)
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			bld.Append(s)
		} else {
			// String columns are the fallback for driver types without a
			// closer Arrow match, so stringify.
			bld.Append(fmt.Sprint(v))
		}
	case *array.BinaryBuilder:
		val, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("%w: %T into BINARY", ErrUnsupportedArrowType, v)
		}
		bld.Append(val)
	case *array.Date32Builder:
		val, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("%w: %T into DATE32", ErrUnsupportedArrowType, v)
		}
		bld.Append(arrow.Date32FromTime(val))
	case *array.TimestampBuilder:
		val, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("%w: %T into TIMESTAMP", ErrUnsupportedArrowType, v)
		}
		dt := bld.Type().(*arrow.TimestampType)
		ts, err := arrow.TimestampFromTime(val, dt.Unit)
		if err != nil {
			return err
		}
		bld.Append(ts)
	case *array.NullBuilder:
		bld.AppendNull()
	default:
		return fmt.Errorf("%w: builder %T", ErrUnsupportedArrowType, b)
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
