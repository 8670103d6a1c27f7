// Package storagetest runs a shared conformance suite against any
// ConversionStore implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
)

// StoreFactory creates a fresh, empty store for one subtest.
type StoreFactory func(t *testing.T) storage.ConversionStore

// RunConversionStoreTests exercises the ConversionStore contract,
// including the first-write-wins guarantees under concurrency.
func RunConversionStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SaveAndFindBothDirections", func(t *testing.T) {
			testSaveAndFindBothDirections(t, factory(t))
		})
		t.Run("SaveIsIdempotent", func(t *testing.T) {
			testSaveIsIdempotent(t, factory(t))
		})
		t.Run("FirstWriteWins", func(t *testing.T) {
			testFirstWriteWins(t, factory(t))
		})
		t.Run("ConcurrentIdenticalSaves", func(t *testing.T) {
			testConcurrentIdenticalSaves(t, factory(t))
		})
		t.Run("ConcurrentDistinctSaves", func(t *testing.T) {
			testConcurrentDistinctSaves(t, factory(t))
		})
		t.Run("ConcurrentConflictingSaves", func(t *testing.T) {
			testConcurrentConflictingSaves(t, factory(t))
		})
		t.Run("FindMissing", func(t *testing.T) {
			testFindMissing(t, factory(t))
		})
		t.Run("ListOrdering", func(t *testing.T) {
			testListOrdering(t, factory(t))
		})
		t.Run("ListWindows", func(t *testing.T) {
			testListWindows(t, factory(t))
		})
		t.Run("ListRejectsBadArguments", func(t *testing.T) {
			testListRejectsBadArguments(t, factory(t))
		})
		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory(t))
		})
		t.Run("HealthCheck", func(t *testing.T) {
			testHealthCheck(t, factory(t))
		})
	})
}

func mustSave(t *testing.T, store storage.ConversionStore, arabic int, roman string) {
	t.Helper()
	err := store.SaveConversion(context.Background(), storage.Conversion{Arabic: arabic, Roman: roman})
	if err != nil {
		t.Fatalf("save (%d, %q): %v", arabic, roman, err)
	}
}

func testSaveAndFindBothDirections(t *testing.T, store storage.ConversionStore) {
	mustSave(t, store, 2023, "MMXXIII")

	byArabic, err := store.FindByArabic(context.Background(), 2023)
	if err != nil {
		t.Fatalf("find by arabic: %v", err)
	}
	if byArabic.Roman != "MMXXIII" {
		t.Fatalf("roman = %q, want %q", byArabic.Roman, "MMXXIII")
	}
	if byArabic.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be populated")
	}

	byRoman, err := store.FindByRoman(context.Background(), "MMXXIII")
	if err != nil {
		t.Fatalf("find by roman: %v", err)
	}
	if byRoman.Arabic != 2023 {
		t.Fatalf("arabic = %d, want 2023", byRoman.Arabic)
	}
}

func testSaveIsIdempotent(t *testing.T, store storage.ConversionStore) {
	mustSave(t, store, 9, "IX")
	mustSave(t, store, 9, "IX")
	mustSave(t, store, 9, "IX")

	page, err := store.ListConversions(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list conversions: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Total)
	}
}

func testFirstWriteWins(t *testing.T, store storage.ConversionStore) {
	mustSave(t, store, 5, "V")
	// Conflicts on either side must be silent no-ops.
	mustSave(t, store, 5, "VI")
	mustSave(t, store, 6, "V")

	byArabic, err := store.FindByArabic(context.Background(), 5)
	if err != nil {
		t.Fatalf("find by arabic: %v", err)
	}
	if byArabic.Roman != "V" {
		t.Fatalf("roman = %q, want %q", byArabic.Roman, "V")
	}
	if _, err := store.FindByRoman(context.Background(), "VI"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rejected pair left an orphan roman entry: err = %v", err)
	}
	if _, err := store.FindByArabic(context.Background(), 6); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rejected pair left an orphan arabic entry: err = %v", err)
	}
}

func testConcurrentIdenticalSaves(t *testing.T, store storage.ConversionStore) {
	const writers = 128

	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- store.SaveConversion(context.Background(), storage.Conversion{Arabic: 1994, Roman: "MCMXCIV"})
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}

	page, err := store.ListConversions(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list conversions: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Total)
	}
	byArabic, err := store.FindByArabic(context.Background(), 1994)
	if err != nil {
		t.Fatalf("find by arabic: %v", err)
	}
	byRoman, err := store.FindByRoman(context.Background(), "MCMXCIV")
	if err != nil {
		t.Fatalf("find by roman: %v", err)
	}
	if byArabic.Roman != "MCMXCIV" || byRoman.Arabic != 1994 {
		t.Fatalf("directions disagree: %+v vs %+v", byArabic, byRoman)
	}
}

func testConcurrentDistinctSaves(t *testing.T, store storage.ConversionStore) {
	const pairs = 100

	var wg sync.WaitGroup
	errCh := make(chan error, pairs)
	for i := 1; i <= pairs; i++ {
		wg.Add(1)
		go func(arabic int) {
			defer wg.Done()
			errCh <- store.SaveConversion(context.Background(), storage.Conversion{
				Arabic: arabic,
				Roman:  fmt.Sprintf("R%d", arabic),
			})
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}

	page, err := store.ListConversions(context.Background(), pairs, 0)
	if err != nil {
		t.Fatalf("list conversions: %v", err)
	}
	if page.Total != pairs {
		t.Fatalf("total = %d, want %d", page.Total, pairs)
	}
	for i := 1; i <= pairs; i++ {
		byArabic, err := store.FindByArabic(context.Background(), i)
		if err != nil {
			t.Fatalf("find by arabic %d: %v", i, err)
		}
		byRoman, err := store.FindByRoman(context.Background(), byArabic.Roman)
		if err != nil {
			t.Fatalf("find by roman %q: %v", byArabic.Roman, err)
		}
		if byRoman.Arabic != i {
			t.Fatalf("pair %d resolves to %d via roman side", i, byRoman.Arabic)
		}
	}
}

func testConcurrentConflictingSaves(t *testing.T, store storage.ConversionStore) {
	const writers = 64

	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		roman := "V"
		if i%2 == 1 {
			roman = "VI"
		}
		wg.Add(1)
		go func(roman string) {
			defer wg.Done()
			errCh <- store.SaveConversion(context.Background(), storage.Conversion{Arabic: 5, Roman: roman})
		}(roman)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}

	winner, err := store.FindByArabic(context.Background(), 5)
	if err != nil {
		t.Fatalf("find by arabic: %v", err)
	}
	if winner.Roman != "V" && winner.Roman != "VI" {
		t.Fatalf("winner roman = %q, want V or VI", winner.Roman)
	}
	loser := "VI"
	if winner.Roman == "VI" {
		loser = "V"
	}
	if _, err := store.FindByRoman(context.Background(), loser); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("losing pair left an orphan roman entry %q: err = %v", loser, err)
	}
	page, err := store.ListConversions(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list conversions: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Total)
	}
}

func testFindMissing(t *testing.T, store storage.ConversionStore) {
	if _, err := store.FindByArabic(context.Background(), 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("find by arabic error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := store.FindByRoman(context.Background(), "XLII"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("find by roman error = %v, want %v", err, storage.ErrNotFound)
	}
}

func testListOrdering(t *testing.T, store storage.ConversionStore) {
	// Insert out of order; listing must come back ascending by arabic.
	numbers := []int{2023, 9, 900, 1, 40, 3999, 4, 400, 90}
	romans := map[int]string{
		1: "I", 4: "IV", 9: "IX", 40: "XL", 90: "XC",
		400: "CD", 900: "CM", 2023: "MMXXIII", 3999: "MMMCMXCIX",
	}
	for _, number := range numbers {
		mustSave(t, store, number, romans[number])
	}

	page, err := store.ListConversions(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("list conversions: %v", err)
	}
	if page.Total != 9 {
		t.Fatalf("total = %d, want 9", page.Total)
	}
	if len(page.Conversions) != 9 {
		t.Fatalf("len(conversions) = %d, want 9", len(page.Conversions))
	}
	want := []int{1, 4, 9, 40, 90, 400, 900, 2023, 3999}
	for i, conversion := range page.Conversions {
		if conversion.Arabic != want[i] {
			t.Fatalf("conversions[%d].Arabic = %d, want %d", i, conversion.Arabic, want[i])
		}
		if conversion.Roman != romans[want[i]] {
			t.Fatalf("conversions[%d].Roman = %q, want %q", i, conversion.Roman, romans[want[i]])
		}
	}
}

func testListWindows(t *testing.T, store storage.ConversionStore) {
	for i := 1; i <= 5; i++ {
		mustSave(t, store, i*10, fmt.Sprintf("R%d", i*10))
	}

	page, err := store.ListConversions(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("total = %d, want 5", page.Total)
	}
	if len(page.Conversions) != 2 {
		t.Fatalf("len(conversions) = %d, want 2", len(page.Conversions))
	}
	if page.Conversions[0].Arabic != 30 || page.Conversions[1].Arabic != 40 {
		t.Fatalf("window = [%d, %d], want [30, 40]", page.Conversions[0].Arabic, page.Conversions[1].Arabic)
	}

	past, err := store.ListConversions(context.Background(), 10, 50)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past.Conversions) != 0 {
		t.Fatalf("len(conversions) past end = %d, want 0", len(past.Conversions))
	}
	if past.Total != 5 {
		t.Fatalf("total past end = %d, want 5", past.Total)
	}
}

func testListRejectsBadArguments(t *testing.T, store storage.ConversionStore) {
	if _, err := store.ListConversions(context.Background(), 0, 0); err == nil {
		t.Fatal("expected zero limit to be rejected")
	}
	if _, err := store.ListConversions(context.Background(), 10, -1); err == nil {
		t.Fatal("expected negative offset to be rejected")
	}
}

func testClear(t *testing.T, store storage.ConversionStore) {
	for i := 1; i <= 7; i++ {
		mustSave(t, store, i*100, fmt.Sprintf("R%d", i*100))
	}

	removed, err := store.ClearConversions(context.Background())
	if err != nil {
		t.Fatalf("clear conversions: %v", err)
	}
	if removed != 7 {
		t.Fatalf("removed = %d, want 7", removed)
	}

	page, err := store.ListConversions(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if page.Total != 0 || len(page.Conversions) != 0 {
		t.Fatalf("list after clear = total %d, %d rows; want empty", page.Total, len(page.Conversions))
	}

	removed, err = store.ClearConversions(context.Background())
	if err != nil {
		t.Fatalf("clear empty store: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed from empty store = %d, want 0", removed)
	}
}

func testHealthCheck(t *testing.T, store storage.ConversionStore) {
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
}
