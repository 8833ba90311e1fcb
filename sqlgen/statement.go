package sqlgen

import "strings"

// TableBase returns the FROM clause form of a plain table name.
func TableBase(name string) string {
	return QuoteIdentifier(name)
}

// SubqueryBase returns the FROM clause form of a raw query, wrapped and
// aliased so it can stand wherever a table name can.
func SubqueryBase(query string) string {
	return "(" + strings.TrimRight(strings.TrimSpace(query), ";") + ") AS sub"
}

// SelectList renders a projection as a SELECT list. An empty projection
// selects every column.
func SelectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// SelectStatement assembles a scan over base. where may be empty.
func SelectStatement(base, selectList, where string) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList)
	sb.WriteString(" FROM ")
	sb.WriteString(base)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String()
}

// CountStatement assembles a cardinality query over base. where may be
// empty. Projections do not change cardinality and are not part of the
// statement.
func CountStatement(base, where string) string {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(base)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String()
}

// AttachStatement attaches a database file under an alias.
func AttachStatement(path, alias string, readOnly bool) string {
	stmt := "ATTACH " + QuoteLiteral(path) + " AS " + QuoteIdentifier(alias)
	if readOnly {
		stmt += " (READ_ONLY)"
	}
	return stmt
}

// DetachStatement detaches a previously attached database.
func DetachStatement(alias string) string {
	return "DETACH " + QuoteIdentifier(alias)
}

// CopyFromDatabaseStatement copies the full contents of one attached
// database into another. Available in DuckDB 0.10 and later.
func CopyFromDatabaseStatement(src, dst string) string {
	return "COPY FROM DATABASE " + QuoteIdentifier(src) + " TO " + QuoteIdentifier(dst)
}

// ExportDatabaseStatement serializes the current database to a directory.
func ExportDatabaseStatement(dir string) string {
	return "EXPORT DATABASE " + QuoteLiteral(dir)
}

// ImportDatabaseStatement loads a previously exported directory into the
// current database.
func ImportDatabaseStatement(dir string) string {
	return "IMPORT DATABASE " + QuoteLiteral(dir)
}
