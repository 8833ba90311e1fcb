// Package source classifies opaque connection values into the small set
// of shapes the accessor knows how to read from.
//
// Classification happens once, when a value enters the library; the
// resulting Kind is carried alongside the value and never re-probed.
// A value that fits none of the shapes is an ErrUnknownShape, which the
// accessor layer converts into an empty result rather than surfacing.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/berth-go/table"
)

// ErrUnknownShape indicates a connection value that fits none of the
// recognized source shapes.
var ErrUnknownShape = errors.New("source: unrecognized connection shape")

// Kind identifies how a connection value supplies data.
type Kind int

const (
	// KindUnknown is the zero value; classification never returns it
	// without an error.
	KindUnknown Kind = iota

	// KindNative executes SQL. Filters and projections push down into
	// the engine.
	KindNative

	// KindContainer maps dataset names to values or zero-argument
	// producers.
	KindContainer

	// KindReactive is a zero-argument producer whose result is
	// classified when first needed, not at open time.
	KindReactive

	// KindDirect is already tabular data.
	KindDirect

	// KindScalar is a flat slice of primitives, wrapped as a
	// single-column table.
	KindScalar
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindContainer:
		return "container"
	case KindReactive:
		return "reactive"
	case KindDirect:
		return "direct"
	case KindScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// Querier is the SQL-execution capability that marks a connection as
// native. *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Producer is a zero-argument callable yielding a value that is
// classified on invocation.
type Producer func() any

// ProducerErr is a producer that can also fail.
type ProducerErr func() (any, error)

// Compile-time capability checks for the database/sql handle types.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Conn)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Classify determines the kind of a connection value.
//
// Probing order: SQL capability first, then already-tabular values, then
// producers, then name containers, then scalar slices. Anything else is
// an ErrUnknownShape wrapping the concrete type.
func Classify(v any) (Kind, error) {
	if v == nil {
		return KindUnknown, fmt.Errorf("%w: nil", ErrUnknownShape)
	}

	if _, ok := v.(Querier); ok {
		return KindNative, nil
	}

	switch v.(type) {
	case *table.Table, arrow.Record, array.RecordReader:
		return KindDirect, nil
	}

	if isProducer(v) {
		return KindReactive, nil
	}

	if _, ok := v.(map[string]any); ok {
		return KindContainer, nil
	}

	if isScalarSlice(v) {
		return KindScalar, nil
	}

	return KindUnknown, fmt.Errorf("%w: %T", ErrUnknownShape, v)
}

// isProducer recognizes the supported zero-argument callable forms.
func isProducer(v any) bool {
	switch v.(type) {
	case Producer, ProducerErr, func() any, func() (any, error):
		return true
	}
	return false
}

// Invoke calls a producer and normalizes its two supported forms.
func Invoke(v any) (any, error) {
	switch fn := v.(type) {
	case Producer:
		return fn(), nil
	case func() any:
		return fn(), nil
	case ProducerErr:
		return fn()
	case func() (any, error):
		return fn()
	}
	return nil, fmt.Errorf("%w: %T is not a producer", ErrUnknownShape, v)
}

// isScalarSlice recognizes flat slices of primitive values. []byte is
// excluded: a byte string is one value, not a dataset.
func isScalarSlice(v any) bool {
	switch s := v.(type) {
	case []bool, []int, []int8, []int16, []int32, []int64,
		[]uint16, []uint32, []uint64,
		[]float32, []float64, []string, []time.Time:
		return true
	case []any:
		for _, elem := range s {
			if elem == nil {
				continue
			}
			if !isPrimitive(elem) {
				return false
			}
		}
		return true
	}
	return false
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, string, time.Time:
		return true
	}
	return false
}

// ContainerLookup resolves a dataset name inside a container. The name
// itself is tried first, then its producer form with the "get_" prefix.
// The second return distinguishes a direct value from a producer that
// still needs invoking.
func ContainerLookup(c map[string]any, name string) (value any, producer bool, ok bool) {
	if v, found := c[name]; found {
		return v, false, true
	}
	if v, found := c[ProducerPrefix+name]; found {
		return v, true, true
	}
	return nil, false, false
}

// ProducerPrefix marks container keys holding dataset producers rather
// than dataset values.
const ProducerPrefix = "get_"

// reflectIsFunc reports whether v is some other function shape. Used
// only for diagnostics: such values classify as unknown, and the error
// message should say why.
func reflectIsFunc(v any) bool {
	return reflect.ValueOf(v).Kind() == reflect.Func
}

// DescribeShape returns a short diagnostic for an unclassifiable value,
// naming near-miss shapes (wrong function signature, wrong map key type).
func DescribeShape(v any) string {
	if v == nil {
		return "nil connection"
	}
	if reflectIsFunc(v) {
		return fmt.Sprintf("callable %T is not zero-argument returning any", v)
	}
	if reflect.ValueOf(v).Kind() == reflect.Map {
		return fmt.Sprintf("map %T is not map[string]any", v)
	}
	return fmt.Sprintf("value of type %T", v)
}
