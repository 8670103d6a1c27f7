package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage/storagetest"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "numeral.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestConversionStoreContract(t *testing.T) {
	t.Parallel()

	storagetest.RunConversionStoreTests(t, "sqlite", func(t *testing.T) storage.ConversionStore {
		return openTempStore(t)
	})
}

func TestSaveConversionSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "numeral.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.SaveConversion(context.Background(), storage.Conversion{Arabic: 2023, Roman: "MMXXIII"}); err != nil {
		t.Fatalf("save conversion: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.FindByArabic(context.Background(), 2023)
	if err != nil {
		t.Fatalf("find by arabic after reopen: %v", err)
	}
	if got.Roman != "MMXXIII" {
		t.Fatalf("roman = %q, want %q", got.Roman, "MMXXIII")
	}
}

func TestSaveConversionSwallowsRomanConflictOnly(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.SaveConversion(context.Background(), storage.Conversion{Arabic: 5, Roman: "V"}); err != nil {
		t.Fatalf("save conversion: %v", err)
	}

	// Same roman under a different arabic hits the roman unique
	// constraint, the conflict target the insert cannot handle inline.
	if err := store.SaveConversion(context.Background(), storage.Conversion{Arabic: 6, Roman: "V"}); err != nil {
		t.Fatalf("roman-side conflict should be a no-op, got: %v", err)
	}
	if _, err := store.FindByArabic(context.Background(), 6); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("find by arabic 6 error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestIsRomanUniqueViolationIgnoresOtherErrors(t *testing.T) {
	t.Parallel()

	if isRomanUniqueViolation(nil) {
		t.Fatal("nil error must not match")
	}
	if isRomanUniqueViolation(context.Canceled) {
		t.Fatal("unrelated error must not match")
	}
}
