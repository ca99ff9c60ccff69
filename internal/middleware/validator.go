package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidateThreatLevel checks the 1-10 level scale.
func ValidateThreatLevel(level int) error {
	if level < 1 || level > 10 {
		return fmt.Errorf("invalid threat level: %d (allowed: 1-10)", level)
	}
	return nil
}

// ValidateReviewer validates reviewer identity format
func ValidateReviewer(reviewer string) error {
	if strings.TrimSpace(reviewer) == "" {
		return fmt.Errorf("reviewer cannot be empty")
	}

	// Allow alphanumeric, space, dot, dash, underscore (max 100 chars)
	pattern := `^[a-zA-Z0-9 ._-]{1,100}$`
	matched, _ := regexp.MatchString(pattern, reviewer)
	if !matched {
		return fmt.Errorf("invalid reviewer format (alphanumeric, space, dot, dash, underscore only, max 100 chars)")
	}

	return nil
}

// ValidateSearchQuery rejects empty or oversized search input.
func ValidateSearchQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	if len(q) > 200 {
		return fmt.Errorf("search query too long (max 200 chars)")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 3 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
