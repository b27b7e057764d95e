package query

import (
	"fmt"
)

// Row is one result row keyed by column name.
type Row map[string]any

// String returns the column as a string. Missing, null and non-string
// values yield "".
func (r Row) String(col string) string {
	s, _ := r[col].(string)
	return s
}

// StringOr is String with a fallback for missing or empty values.
func (r Row) StringOr(col, fallback string) string {
	if s := r.String(col); s != "" {
		return s
	}
	return fallback
}

// Int64 returns the column as an int64. Neo4j returns every integer as
// int64, but test doubles and other stores may not.
func (r Row) Int64(col string) int64 {
	v, err := toInt64(r[col])
	if err != nil {
		return 0
	}
	return v
}

// Float64 returns a numeric column as a float64.
func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	n, err := toInt64(r[col])
	if err != nil {
		return 0
	}
	return float64(n)
}

// Has reports whether the column is present and not null.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// Strings returns a list column as strings. Null elements become "".
func (r Row) Strings(col string) []string {
	switch v := r[col].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			if s, ok := e.(string); ok {
				out[i] = s
			}
		}
		return out
	}
	return nil
}

// Rows converts raw client rows.
func Rows(raw []map[string]any) []Row {
	rows := make([]Row, len(raw))
	for i, m := range raw {
		rows[i] = Row(m)
	}
	return rows
}

// toInt64 converts various numeric types to int64.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > 9223372036854775807 {
			return 0, fmt.Errorf("uint64 value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}
