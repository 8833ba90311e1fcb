package table

import (
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// ErrNotScalarSlice indicates a value that is not a flat slice of
// primitive scalars.
var ErrNotScalarSlice = errors.New("table: not a flat slice of scalar values")

// ScalarColumn is the column name under which a bare scalar sequence is
// exposed when wrapped as a table.
const ScalarColumn = "value"

// FromScalars wraps a flat slice of primitive values as a single-column
// table named "value". Supported element types are booleans, integers,
// floats, strings and time.Time; a []any slice must hold only those.
func FromScalars(v any) (*Table, error) {
	switch s := v.(type) {
	case []bool:
		return scalarTable(arrow.FixedWidthTypes.Boolean, len(s), func(i int) any { return s[i] })
	case []int:
		return scalarTable(arrow.PrimitiveTypes.Int64, len(s), func(i int) any { return int64(s[i]) })
	case []int8:
		return scalarTable(arrow.PrimitiveTypes.Int8, len(s), func(i int) any { return s[i] })
	case []int16:
		return scalarTable(arrow.PrimitiveTypes.Int16, len(s), func(i int) any { return s[i] })
	case []int32:
		return scalarTable(arrow.PrimitiveTypes.Int32, len(s), func(i int) any { return s[i] })
	case []int64:
		return scalarTable(arrow.PrimitiveTypes.Int64, len(s), func(i int) any { return s[i] })
	case []uint16:
		return scalarTable(arrow.PrimitiveTypes.Uint16, len(s), func(i int) any { return s[i] })
	case []uint32:
		return scalarTable(arrow.PrimitiveTypes.Uint32, len(s), func(i int) any { return s[i] })
	case []uint64:
		return scalarTable(arrow.PrimitiveTypes.Uint64, len(s), func(i int) any { return s[i] })
	case []float32:
		return scalarTable(arrow.PrimitiveTypes.Float32, len(s), func(i int) any { return s[i] })
	case []float64:
		return scalarTable(arrow.PrimitiveTypes.Float64, len(s), func(i int) any { return s[i] })
	case []string:
		return scalarTable(arrow.BinaryTypes.String, len(s), func(i int) any { return s[i] })
	case []time.Time:
		return scalarTable(arrow.FixedWidthTypes.Timestamp_us, len(s), func(i int) any { return s[i] })
	case []any:
		return fromAnySlice(s)
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotScalarSlice, v)
	}
}

func scalarTable(dt arrow.DataType, n int, at func(int) any) (*Table, error) {
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		rows[i] = []any{at(i)}
	}
	return New([]Column{{Name: ScalarColumn, Type: dt}}, rows)
}

// fromAnySlice wraps a []any whose elements are all primitive scalars.
// The column type follows the first non-nil element.
func fromAnySlice(s []any) (*Table, error) {
	var dt arrow.DataType
	for _, v := range s {
		if v == nil {
			continue
		}
		t, ok := scalarType(v)
		if !ok {
			return nil, fmt.Errorf("%w: element of type %T", ErrNotScalarSlice, v)
		}
		if dt == nil {
			dt = t
		}
	}
	if dt == nil {
		dt = arrow.Null
	}
	rows := make([][]any, len(s))
	for i, v := range s {
		rows[i] = []any{v}
	}
	return New([]Column{{Name: ScalarColumn, Type: dt}}, rows)
}

func scalarType(v any) (arrow.DataType, bool) {
	switch v.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean, true
	case int, int64:
		return arrow.PrimitiveTypes.Int64, true
	case int8:
		return arrow.PrimitiveTypes.Int8, true
	case int16:
		return arrow.PrimitiveTypes.Int16, true
	case int32:
		return arrow.PrimitiveTypes.Int32, true
	case uint16:
		return arrow.PrimitiveTypes.Uint16, true
	case uint32:
		return arrow.PrimitiveTypes.Uint32, true
	case uint64:
		return arrow.PrimitiveTypes.Uint64, true
	case float32:
		return arrow.PrimitiveTypes.Float32, true
	case float64:
		return arrow.PrimitiveTypes.Float64, true
	case string:
		return arrow.BinaryTypes.String, true
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us, true
	}
	return nil, false
}
