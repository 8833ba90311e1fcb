package sqlgen

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "orders", "orders"},
		{"underscore", "_hidden", "_hidden"},
		{"with_digits", "col2", "col2"},
		{"empty", "", `""`},
		{"leading_digit", "2col", `"2col"`},
		{"space", "first name", `"first name"`},
		{"reserved_word", "select", `"select"`},
		{"reserved_upper", "FROM", `"FROM"`},
		{"embedded_quote", `a"b`, `"a""b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.input); got != tt.want {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "'hello'"},
		{"empty", "", "''"},
		{"single_quote", "it's", "'it''s'"},
		{"two_quotes", "''", "''''''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteLiteral(tt.input); got != tt.want {
				t.Errorf("QuoteLiteral(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
