package query

import (
	"fmt"
	"strings"

	"github.com/dot5enko/simple-column-scan/schema"
)

// ParseClause reads a "column:op:value" comparison. Only the value may contain ':'.
func ParseClause(text string, columns []schema.Column) (*Compare, error) {
	parts := strings.SplitN(text, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed filter %q, expected column:op:value", text)
	}

	idx := schema.IndexOf(columns, parts[0])
	if idx < 0 {
		return nil, fmt.Errorf("filter %q references column %q which is not scanned", text, parts[0])
	}

	op, err := ParseCondOperand(parts[1])
	if err != nil {
		return nil, err
	}

	lit := ParseLiteral(parts[2])
	// bytes columns compare against the raw text even when it looks numeric
	if columns[idx].Type == schema.BytesFieldType {
		lit = String(parts[2])
	}

	return NewCompare(idx, op, lit), nil
}
