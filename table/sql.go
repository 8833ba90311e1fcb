package table

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// FromSQLRows drains a database/sql result set into a table. The rows are
// closed before returning. Column types are derived from the driver's
// reported database type names.
func FromSQLRows(rows *sql.Rows) (*Table, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("table: reading result columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("table: reading result column types: %w", err)
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: arrowTypeForDatabase(colTypes[i])}
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("table: scanning row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table: iterating rows: %w", err)
	}

	return New(cols, out)
}

// arrowTypeForDatabase maps a driver-reported column type to an Arrow
// data type. Unrecognized types fall back to string.
func arrowTypeForDatabase(ct *sql.ColumnType) arrow.DataType {
	name := strings.ToUpper(ct.DatabaseTypeName())

	// Parameterized names like DECIMAL(18,3) match on their prefix.
	switch {
	case strings.HasPrefix(name, "DECIMAL"), strings.HasPrefix(name, "NUMERIC"):
		return arrow.PrimitiveTypes.Float64
	case strings.HasPrefix(name, "TIMESTAMP WITH TIME ZONE"):
		return arrow.FixedWidthTypes.Timestamp_us
	case strings.HasPrefix(name, "VARCHAR"), strings.HasPrefix(name, "CHAR"):
		return arrow.BinaryTypes.String
	}

	switch name {
	case "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "TINYINT":
		return arrow.PrimitiveTypes.Int8
	case "SMALLINT":
		return arrow.PrimitiveTypes.Int16
	case "INTEGER":
		return arrow.PrimitiveTypes.Int32
	case "BIGINT":
		return arrow.PrimitiveTypes.Int64
	case "UTINYINT":
		return arrow.PrimitiveTypes.Uint8
	case "USMALLINT":
		return arrow.PrimitiveTypes.Uint16
	case "UINTEGER":
		return arrow.PrimitiveTypes.Uint32
	case "UBIGINT":
		return arrow.PrimitiveTypes.Uint64
	case "FLOAT", "REAL":
		return arrow.PrimitiveTypes.Float32
	case "DOUBLE":
		return arrow.PrimitiveTypes.Float64
	case "BLOB":
		return arrow.BinaryTypes.Binary
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	case "TIME":
		return arrow.FixedWidthTypes.Time64us
	case "TIMESTAMP", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS", "TIMESTAMPTZ":
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}
