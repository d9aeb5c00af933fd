// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxSymbolLength = 12
	MaxNameLength   = 100
	MaxNotesLength  = 500
	MaxQuantity     = 1e9
	MaxPrice        = 1e9
)

var (
	symbolRegex  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)
	bracketRegex = regexp.MustCompile(`^[0-9]{1,7}$`)
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateSymbol checks a normalized (uppercase, trimmed) ticker symbol.
func ValidateSymbol(s string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if err := ValidateStringNotEmpty(trimmed, "symbol"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(trimmed, MaxSymbolLength, "symbol"); err != nil {
		return err
	}
	if !symbolRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: symbol ('%s') may only contain letters, digits, dots and hyphens", ErrValidationFailed, s)
	}
	return nil
}

// ValidatePositiveAmount checks that a quantity or price is a positive,
// finite number within sane bounds.
func ValidatePositiveAmount(v float64, maxVal float64, fieldName string) error {
	if v != v { // NaN
		return fmt.Errorf("%w: %s is not a number", ErrValidationFailed, fieldName)
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be a positive number, got %g", ErrValidationFailed, fieldName, v)
	}
	if v > maxVal {
		return fmt.Errorf("%w: %s exceeds maximum of %g", ErrValidationFailed, fieldName, maxVal)
	}
	return nil
}

// ValidateDateString checks if a string is a valid date in "YYYY-MM-DD"
// format. Empty strings are allowed; the caller decides what default to use.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is not a valid date (expected YYYY-MM-DD): %v", ErrValidationFailed, fieldName, s, err)
	}
	if t.Format("2006-01-02") != trimmed {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is an invalid date (e.g., day/month mismatch)", ErrValidationFailed, fieldName, s)
	}
	return t, nil
}

// ValidateIncomeBracket checks the bracket selector value: a plain number of
// up to seven digits, as submitted by the tax form.
func ValidateIncomeBracket(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if !bracketRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: income bracket ('%s') is not in the expected format (digits only)", ErrValidationFailed, s)
	}
	return nil
}
