package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateRequired checks that a field is not blank
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength checks the maximum length of a string in characters
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return fmt.Errorf("%s must be at most %d characters long", fieldName, maxLength)
	}
	return nil
}

// ValidateDocumentID checks that an id can be used as a document key
func ValidateDocumentID(value, fieldName string) error {
	if err := ValidateRequired(value, fieldName); err != nil {
		return err
	}
	if strings.ContainsAny(value, "./") {
		return fmt.Errorf("%s must not contain '.' or '/'", fieldName)
	}
	return ValidateMaxLength(value, 128, fieldName)
}
