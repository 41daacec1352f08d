package sqlutil

import (
	"database/sql"
	"time"
)

// Helper functions for converting between Go types and sql.Null* types.
// Timestamps are stored as epoch milliseconds so both dialects share one encoding.

// ToMillis converts a time to epoch milliseconds
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ToNullMillis converts a Go time pointer to sql.NullInt64 epoch milliseconds
func ToNullMillis(val *time.Time) sql.NullInt64 {
	if val == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: val.UnixMilli(), Valid: true}
}

// FromNullMillis converts sql.NullInt64 epoch milliseconds to a Go time pointer
func FromNullMillis(val sql.NullInt64) *time.Time {
	if !val.Valid {
		return nil
	}
	t := FromMillis(val.Int64)
	return &t
}

// ToNullFloat64 converts a Go float pointer to sql.NullFloat64
func ToNullFloat64(val *float64) sql.NullFloat64 {
	if val == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *val, Valid: true}
}

// FromNullFloat64 converts sql.NullFloat64 to a Go float pointer
func FromNullFloat64(val sql.NullFloat64) *float64 {
	if !val.Valid {
		return nil
	}
	f := val.Float64
	return &f
}

// FromSqlString converts sql.NullString to Go string with default
func FromSqlString(val sql.NullString, defaultVal string) string {
	if !val.Valid {
		return defaultVal
	}
	return val.String
}
