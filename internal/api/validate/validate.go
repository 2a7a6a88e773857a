package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Title validates a user-supplied title:
// - required
// - at most 200 characters
// - no leading/trailing whitespace
func Title(v string) error {
	if v == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(v) > 200 {
		return fmt.Errorf("title exceeds 200 characters")
	}
	if strings.TrimSpace(v) != v {
		return fmt.Errorf("title must not start or end with whitespace")
	}
	return nil
}

// TeamName validates a team name with the same rules as titles but a shorter
// cap.
func TeamName(v string) error {
	if v == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(v) > 80 {
		return fmt.Errorf("name exceeds 80 characters")
	}
	if strings.TrimSpace(v) != v {
		return fmt.Errorf("name must not start or end with whitespace")
	}
	return nil
}
