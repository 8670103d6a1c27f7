// Package memory provides an in-process conversion store with atomic
// bidirectional inserts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// Store keeps conversions in two concurrent lookup maps plus an ordered
// index of Arabic values for listing. The write path runs the
// check-both-keys-then-write-three sequence inside one critical section,
// so concurrent SaveConversion calls can never split a bidirectional
// insert. Readers share the lock; they never observe a half-inserted
// pair.
type Store struct {
	mu       sync.RWMutex
	byArabic *xsync.MapOf[int, storage.Conversion]
	byRoman  *xsync.MapOf[string, storage.Conversion]
	index    []int
	clock    func() time.Time
}

// NewStore creates an empty in-memory conversion store.
func NewStore() *Store {
	return &Store{
		byArabic: xsync.NewMapOf[int, storage.Conversion](),
		byRoman:  xsync.NewMapOf[string, storage.Conversion](),
		clock:    time.Now,
	}
}

// SaveConversion inserts one bidirectional record. First write wins: when
// either the Arabic or the Roman value is already mapped, the call is a
// successful no-op.
func (s *Store) SaveConversion(ctx context.Context, conversion storage.Conversion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("store is not configured")
	}
	if conversion.Arabic <= 0 {
		return fmt.Errorf("arabic value must be greater than zero")
	}
	roman := strings.TrimSpace(conversion.Roman)
	if roman == "" {
		return fmt.Errorf("roman value is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byArabic.Load(conversion.Arabic); exists {
		return nil
	}
	if _, exists := s.byRoman.Load(roman); exists {
		return nil
	}

	record := storage.Conversion{
		Arabic:    conversion.Arabic,
		Roman:     roman,
		CreatedAt: conversion.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.clock().UTC()
	}

	s.byArabic.Store(record.Arabic, record)
	s.byRoman.Store(record.Roman, record)
	at := sort.SearchInts(s.index, record.Arabic)
	s.index = append(s.index, 0)
	copy(s.index[at+1:], s.index[at:])
	s.index[at] = record.Arabic
	return nil
}

// FindByArabic returns the conversion mapped to an Arabic value.
func (s *Store) FindByArabic(ctx context.Context, arabic int) (storage.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversion{}, err
	}
	if s == nil {
		return storage.Conversion{}, fmt.Errorf("store is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.byArabic.Load(arabic)
	if !exists {
		return storage.Conversion{}, storage.ErrNotFound
	}
	return record, nil
}

// FindByRoman returns the conversion mapped to a Roman numeral.
func (s *Store) FindByRoman(ctx context.Context, roman string) (storage.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversion{}, err
	}
	if s == nil {
		return storage.Conversion{}, fmt.Errorf("store is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.byRoman.Load(strings.TrimSpace(roman))
	if !exists {
		return storage.Conversion{}, storage.ErrNotFound
	}
	return record, nil
}

// ListConversions returns one offset/limit window ordered ascending by
// Arabic value.
func (s *Store) ListConversions(ctx context.Context, limit, offset int) (storage.ConversionPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConversionPage{}, err
	}
	if s == nil {
		return storage.ConversionPage{}, fmt.Errorf("store is not configured")
	}
	if limit <= 0 {
		return storage.ConversionPage{}, fmt.Errorf("limit must be greater than zero")
	}
	if offset < 0 {
		return storage.ConversionPage{}, fmt.Errorf("offset must not be negative")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page := storage.ConversionPage{
		Conversions: make([]storage.Conversion, 0, limit),
		Total:       int64(len(s.index)),
		Limit:       limit,
		Offset:      offset,
	}
	if offset >= len(s.index) {
		return page, nil
	}
	end := offset + limit
	if end > len(s.index) {
		end = len(s.index)
	}
	for _, arabic := range s.index[offset:end] {
		record, exists := s.byArabic.Load(arabic)
		if !exists {
			return storage.ConversionPage{}, fmt.Errorf("list conversions: index entry %d has no record", arabic)
		}
		page.Conversions = append(page.Conversions, record)
	}
	return page, nil
}

// ClearConversions removes every record and returns how many were removed.
func (s *Store) ClearConversions(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil {
		return 0, fmt.Errorf("store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := int64(len(s.index))
	s.byArabic.Clear()
	s.byRoman.Clear()
	s.index = nil
	return removed, nil
}

// HealthCheck reports liveness. The in-process store is healthy whenever
// the process is.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("store is not configured")
	}
	return nil
}

var _ storage.ConversionStore = (*Store)(nil)
