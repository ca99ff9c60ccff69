package mysql

import (
	"encoding/json"
	"strings"
)

// marshalKeywords serializes the keyword list for the JSON text column.
// A nil list is stored as an empty array, never NULL.
func marshalKeywords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalKeywords(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var words []string
	if err := json.Unmarshal([]byte(raw), &words); err != nil {
		return nil, err
	}
	if words == nil {
		words = []string{}
	}
	return words, nil
}

// escapeLikePattern escapes special characters in LIKE patterns
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
