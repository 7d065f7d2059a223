package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateScale(t *testing.T) {
	for _, ok := range []string{"0", "5", "10", " 7 "} {
		if _, err := ValidateScale(ok); err != nil {
			t.Errorf("ValidateScale(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"-1", "11", "x", ""} {
		if _, err := ValidateScale(bad); !errors.Is(err, ErrScaleOutOfRange) {
			t.Errorf("ValidateScale(%q) = %v, want ErrScaleOutOfRange", bad, err)
		}
	}
}

func TestValidateWordAnswer(t *testing.T) {
	if got, err := ValidateWordAnswer("  quietly hopeful "); err != nil || got != "quietly hopeful" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := ValidateWordAnswer("one two three four"); !errors.Is(err, ErrTooManyWords) {
		t.Fatalf("want ErrTooManyWords, got %v", err)
	}
	if _, err := ValidateWordAnswer(strings.Repeat("a", 51)); !errors.Is(err, ErrAnswerTooLong) {
		t.Fatalf("want ErrAnswerTooLong, got %v", err)
	}
	// limits count characters, not bytes
	if got, err := ValidateWordAnswer(strings.Repeat("é", 50)); err != nil || got != strings.Repeat("é", 50) {
		t.Fatalf("50-rune word answer rejected: %q, %v", got, err)
	}
	if _, err := ValidateWordAnswer("<b>calm</b>"); !errors.Is(err, ErrUnsafeText) {
		t.Fatalf("want ErrUnsafeText, got %v", err)
	}
}

func TestValidateReflection(t *testing.T) {
	if _, err := ValidateReflection("A long walk cleared my head."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ValidateReflection("meh"); !errors.Is(err, ErrAnswerTooShort) {
		t.Fatalf("want ErrAnswerTooShort, got %v", err)
	}
	if _, err := ValidateReflection(strings.Repeat("again ", 40)); err == nil {
		t.Fatal("want error for repeated/overlong text")
	}
	if _, err := ValidateReflection("see https://example.com for details"); !errors.Is(err, ErrUnsafeText) {
		t.Fatalf("want ErrUnsafeText, got %v", err)
	}
	// under 200 runes but over 200 bytes; limits count characters
	cyrillic := "Сегодня был очень насыщенный день с множеством встреч и приятных разговоров о будущем проекте и новых планах на завтра."
	if _, err := ValidateReflection(cyrillic); err != nil {
		t.Fatalf("rune-length reflection rejected: %v", err)
	}
	if _, err := ValidateReflection("spam spam spam spam spam spam today"); !errors.Is(err, ErrExcessRepetition) {
		t.Fatalf("want ErrExcessRepetition, got %v", err)
	}
}

func TestParseHHMM(t *testing.T) {
	if m, err := ParseHHMM("07:30"); err != nil || m != 7*60+30 {
		t.Fatalf("got %d, %v", m, err)
	}
	for _, bad := range []string{"24:00", "07:60", "0730", "seven"} {
		if _, err := ParseHHMM(bad); err == nil {
			t.Errorf("ParseHHMM(%q) should fail", bad)
		}
	}
}
