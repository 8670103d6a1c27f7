// Package service orchestrates conversions against the cache store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/numeral.space/internal/platform/telemetry/metrics"
	"github.com/louisbranch/numeral.space/internal/services/numeral/roman"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultSaveTimeout = 5 * time.Second

// Service answers conversion requests: cache lookup first, compute on
// miss, and populate the cache with a detached background write that the
// request path never waits on. Correctness of the stored bijection is
// the store's job; the service holds no locks.
type Service struct {
	store       storage.ConversionStore
	tracer      trace.Tracer
	saveTimeout time.Duration
	saves       sync.WaitGroup
}

// New creates a conversion service backed by the given store.
func New(store storage.ConversionStore) *Service {
	return &Service{
		store:       store,
		tracer:      otel.Tracer("github.com/louisbranch/numeral.space/internal/services/numeral/service"),
		saveTimeout: defaultSaveTimeout,
	}
}

// ArabicToRoman converts an Arabic number in [1, 3999] to its Roman
// numeral. A cache hit returns the stored numeral without recomputing or
// re-saving; a miss computes the numeral, returns it immediately, and
// populates the cache in the background.
func (s *Service) ArabicToRoman(ctx context.Context, number int) (string, error) {
	if s == nil || s.store == nil {
		return "", fmt.Errorf("service is not configured")
	}
	ctx, span := s.tracer.Start(ctx, "numeral.ArabicToRoman",
		trace.WithAttributes(attribute.Int("numeral.arabic", number)))
	defer span.End()

	if err := roman.ValidateArabic(number); err != nil {
		return "", err
	}

	cached, err := s.store.FindByArabic(ctx, number)
	switch {
	case err == nil:
		metrics.CacheHit("arabic")
		return cached.Roman, nil
	case errors.Is(err, storage.ErrNotFound):
		metrics.CacheMiss("arabic")
	default:
		return "", fmt.Errorf("look up conversion for %d: %w", number, err)
	}

	numeral, err := roman.ToRoman(number)
	if err != nil {
		return "", err
	}
	s.saveInBackground(storage.Conversion{Arabic: number, Roman: numeral})
	return numeral, nil
}

// RomanToArabic converts a Roman numeral to its Arabic number. Input is
// normalized to uppercase and validated before any cache access.
func (s *Service) RomanToArabic(ctx context.Context, numeral string) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("service is not configured")
	}
	ctx, span := s.tracer.Start(ctx, "numeral.RomanToArabic",
		trace.WithAttributes(attribute.String("numeral.roman", numeral)))
	defer span.End()

	normalized := roman.Normalize(numeral)
	if err := roman.Validate(normalized); err != nil {
		return 0, err
	}

	cached, err := s.store.FindByRoman(ctx, normalized)
	switch {
	case err == nil:
		metrics.CacheHit("roman")
		return cached.Arabic, nil
	case errors.Is(err, storage.ErrNotFound):
		metrics.CacheMiss("roman")
	default:
		return 0, fmt.Errorf("look up conversion for %q: %w", normalized, err)
	}

	number, err := roman.ToArabic(normalized)
	if err != nil {
		return 0, err
	}
	s.saveInBackground(storage.Conversion{Arabic: number, Roman: normalized})
	return number, nil
}

// InverseHolds reports whether converting number to a Roman numeral and
// back yields number again. Any failure along the chain reports false
// rather than an error.
func (s *Service) InverseHolds(ctx context.Context, number int) bool {
	numeral, err := s.ArabicToRoman(ctx, number)
	if err != nil {
		return false
	}
	back, err := s.RomanToArabic(ctx, numeral)
	if err != nil {
		return false
	}
	return back == number
}

// Drain blocks until all in-flight background cache writes finish. The
// server calls it during shutdown; tests use it to observe save effects.
func (s *Service) Drain() {
	if s == nil {
		return
	}
	s.saves.Wait()
}

// saveInBackground persists one conversion without blocking the caller.
// The write runs on its own deadline, detached from the request context.
// Failures are logged and counted, never surfaced, never retried: a lost
// write only costs a future recomputation.
func (s *Service) saveInBackground(conversion storage.Conversion) {
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		defer cancel()
		if err := s.store.SaveConversion(ctx, conversion); err != nil {
			metrics.CacheSaveFailure()
			log.Printf("cache save (%d, %q): %v", conversion.Arabic, conversion.Roman, err)
		}
	}()
}
