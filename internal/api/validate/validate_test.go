package validate

import (
	"strings"
	"testing"
)

func TestTitle(t *testing.T) {
	if err := Title("Quarterly plan"); err != nil {
		t.Fatalf("valid title rejected: %v", err)
	}
	if err := Title(""); err == nil {
		t.Fatal("empty title accepted")
	}
	if err := Title(" leading space"); err == nil {
		t.Fatal("leading whitespace accepted")
	}
	if err := Title(strings.Repeat("x", 201)); err == nil {
		t.Fatal("overlong title accepted")
	}
}

func TestTeamName(t *testing.T) {
	if err := TeamName("Platform"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := TeamName(""); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := TeamName(strings.Repeat("x", 81)); err == nil {
		t.Fatal("overlong name accepted")
	}
}
