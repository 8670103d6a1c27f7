// Package roman converts between Arabic numbers and Roman numerals.
package roman

import (
	"errors"
	"fmt"
	"strings"
)

// MinArabic and MaxArabic bound the convertible domain.
const (
	MinArabic = 1
	MaxArabic = 3999
)

var (
	// ErrOutOfRange indicates an Arabic number outside [1, 3999].
	ErrOutOfRange = errors.New("number out of range")
	// ErrInvalidNumeral indicates a string that is not a valid Roman numeral.
	ErrInvalidNumeral = errors.New("invalid roman numeral")
)

// table maps descending values to their Roman symbols, subtractive
// forms included.
var table = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

var symbolValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// subtractivePairs holds the only two-symbol combinations where a smaller
// value may precede a larger one.
var subtractivePairs = map[string]int{
	"IV": 4, "IX": 9, "XL": 40, "XC": 90, "CD": 400, "CM": 900,
}

// ValidateArabic checks that number is inside the convertible domain.
func ValidateArabic(number int) error {
	if number < MinArabic || number > MaxArabic {
		return fmt.Errorf("%w: %d is not in [%d, %d]", ErrOutOfRange, number, MinArabic, MaxArabic)
	}
	return nil
}

// ToRoman converts an Arabic number in [1, 3999] to its Roman numeral.
func ToRoman(number int) (string, error) {
	if err := ValidateArabic(number); err != nil {
		return "", err
	}
	var sb strings.Builder
	remainder := number
	for _, entry := range table {
		for remainder >= entry.value {
			sb.WriteString(entry.symbol)
			remainder -= entry.value
		}
	}
	return sb.String(), nil
}

// Normalize uppercases and trims a candidate Roman numeral without
// validating it.
func Normalize(numeral string) string {
	return strings.ToUpper(strings.TrimSpace(numeral))
}

// ToArabic converts a Roman numeral to its Arabic number. Input is
// normalized to uppercase before validation.
func ToArabic(numeral string) (int, error) {
	normalized := Normalize(numeral)
	if err := Validate(normalized); err != nil {
		return 0, err
	}
	total := 0
	for i := 0; i < len(normalized); {
		if i+1 < len(normalized) {
			if value, ok := subtractivePairs[normalized[i:i+2]]; ok {
				total += value
				i += 2
				continue
			}
		}
		value, ok := symbolValues[normalized[i]]
		if !ok {
			return 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidNumeral, normalized[i])
		}
		total += value
		i++
	}
	return total, nil
}

// Validate checks a normalized Roman numeral against the numeral grammar:
// only the seven symbols, at most three consecutive I/X/C/M, at most one
// V/L/D, no invalid ascending pair, and no doubled symbol directly before
// a subtractive pair it participates in (e.g. "IIV").
func Validate(numeral string) error {
	if numeral == "" {
		return fmt.Errorf("%w: empty string", ErrInvalidNumeral)
	}
	for i := 0; i < len(numeral); i++ {
		if _, ok := symbolValues[numeral[i]]; !ok {
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidNumeral, numeral[i])
		}
	}

	run := 1
	for i := 1; i < len(numeral); i++ {
		if numeral[i] == numeral[i-1] {
			run++
		} else {
			run = 1
		}
		if run > maxRun(numeral[i]) {
			return fmt.Errorf("%w: %q repeated too often", ErrInvalidNumeral, numeral[i])
		}
	}

	for i := 0; i+1 < len(numeral); i++ {
		left, right := numeral[i], numeral[i+1]
		if symbolValues[left] >= symbolValues[right] {
			continue
		}
		pair := numeral[i : i+2]
		if _, ok := subtractivePairs[pair]; !ok {
			return fmt.Errorf("%w: invalid pair %q", ErrInvalidNumeral, pair)
		}
		// At most one subtractive unit: "IIV" and friends are illegal.
		if i > 0 && numeral[i-1] == left {
			return fmt.Errorf("%w: repeated %q before %q", ErrInvalidNumeral, left, right)
		}
	}
	return nil
}

func maxRun(symbol byte) int {
	switch symbol {
	case 'V', 'L', 'D':
		return 1
	default:
		return 3
	}
}
