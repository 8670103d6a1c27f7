// Package storage defines persistence contracts for cached conversions.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested conversion record is missing.
var ErrNotFound = errors.New("record not found")

// Conversion stores one cached Arabic/Roman pair. Records are immutable:
// they are inserted once and only ever removed by a bulk clear.
type Conversion struct {
	Arabic    int
	Roman     string
	CreatedAt time.Time
}

// ConversionPage stores one offset/limit window over stored conversions,
// ordered ascending by Arabic value. Total counts all stored records at
// query time; it is not snapshot-consistent with Conversions under
// concurrent inserts.
type ConversionPage struct {
	Conversions []Conversion
	Total       int64
	Limit       int
	Offset      int
}

// ConversionStore persists bidirectional conversion records.
//
// SaveConversion is first-write-wins: when a record already exists for
// either the Arabic or the Roman value, the call is a successful no-op.
// It never overwrites and never reports the conflict to the caller, and
// it must be safe under unbounded concurrent callers. Implementations
// must insert both lookup directions atomically; a conversion is never
// observable with only one side resolvable.
type ConversionStore interface {
	SaveConversion(ctx context.Context, conversion Conversion) error
	FindByArabic(ctx context.Context, arabic int) (Conversion, error)
	FindByRoman(ctx context.Context, roman string) (Conversion, error)
	ListConversions(ctx context.Context, limit, offset int) (ConversionPage, error)
	ClearConversions(ctx context.Context) (int64, error)
	HealthCheck(ctx context.Context) error
}
