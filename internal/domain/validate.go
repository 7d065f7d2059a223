package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrEmptyAnswer      = errors.New("empty answer")
	ErrScaleOutOfRange  = errors.New("scale value out of range")
	ErrAnswerTooLong    = errors.New("answer too long")
	ErrAnswerTooShort   = errors.New("answer too short")
	ErrTooManyWords     = errors.New("too many words")
	ErrUnsafeText       = errors.New("text contains disallowed content")
	ErrExcessRepetition = errors.New("excessive repetition")
)

const (
	maxWordAnswerLen   = 50
	maxWordAnswerWords = 3
	minReflectionLen   = 3
	maxReflectionLen   = 200
	minReflectionWords = 3
	maxWordRepeats     = 5
)

// ValidateScale parses a 0..10 scale answer.
func ValidateScale(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrScaleOutOfRange, s)
	}
	if v < 0 || v > 10 {
		return 0, fmt.Errorf("%w: %d", ErrScaleOutOfRange, v)
	}
	return v, nil
}

// ValidateWordAnswer checks a free-typed word answer (intention or day word):
// at most 3 words, at most 50 characters, plain text only.
func ValidateWordAnswer(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	if n := len(strings.Fields(text)); n > maxWordAnswerWords {
		return "", fmt.Errorf("%w: %d words", ErrTooManyWords, n)
	}
	if utf8.RuneCountInString(text) > maxWordAnswerLen {
		return "", fmt.Errorf("%w: max %d characters", ErrAnswerTooLong, maxWordAnswerLen)
	}
	if err := checkPlainText(text); err != nil {
		return "", err
	}
	return text, nil
}

// ValidateReflection checks the evening free-text reflection: a short
// sentence of plain text, 3..200 characters, at least a few words.
func ValidateReflection(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	if n := utf8.RuneCountInString(text); n < minReflectionLen {
		return "", ErrAnswerTooShort
	} else if n > maxReflectionLen {
		return "", fmt.Errorf("%w: max %d characters", ErrAnswerTooLong, maxReflectionLen)
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) < minReflectionWords {
		return "", fmt.Errorf("%w: at least %d words", ErrAnswerTooShort, minReflectionWords)
	}
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
		if counts[w] > maxWordRepeats {
			return "", ErrExcessRepetition
		}
	}
	if err := checkPlainText(text); err != nil {
		return "", err
	}
	return text, nil
}

// checkPlainText rejects markup, links, and non-printable characters. The
// stored text is later embedded in HTML messages and LLM prompts, so it is
// restricted to everyday prose up front.
func checkPlainText(text string) error {
	lower := strings.ToLower(text)
	for _, marker := range []string{"http://", "https://", "ftp://", "www.", "<", ">", "&#", "`"} {
		if strings.Contains(lower, marker) {
			return ErrUnsafeText
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsPunct(r), unicode.IsSpace(r):
		default:
			// Symbols (So) cover emoji; allow them, reject control and the rest.
			if !unicode.IsSymbol(r) || unicode.IsControl(r) {
				return fmt.Errorf("%w: %q", ErrUnsafeText, r)
			}
		}
	}
	return nil
}
