package core

import (
	"fmt"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// foldASCII lowers ASCII upper-case letters and leaves every other byte alone.
func foldASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// PackTrigram folds three bytes and packs them as (b0<<16 | b1<<8 | b2).
func PackTrigram(b0, b1, b2 byte) uint32 {
	return uint32(foldASCII(b0))<<16 | uint32(foldASCII(b1))<<8 | uint32(foldASCII(b2))
}

// TrigramKey packs s, which must be exactly three bytes.
func TrigramKey(s string) (uint32, error) {
	if len(s) != types.TrigramLength {
		return 0, fmt.Errorf("%q: %w", s, errors.ErrMalformedTrigram)
	}
	return PackTrigram(s[0], s[1], s[2]), nil
}

// TrigramString renders a packed trigram for diagnostics.
func TrigramString(t uint32) string {
	return string([]byte{byte(t >> 16), byte(t >> 8), byte(t)})
}

// ExtractTrigrams groups every trigram position of content by trigram key.
// Positions within each group are ascending. Trigrams made only of
// punctuation or whitespace are kept.
func ExtractTrigrams(content []byte) map[uint32][]int {
	if len(content) < types.TrigramLength {
		return nil
	}

	trigrams := make(map[uint32][]int, predictTrigramCount(len(content)))
	for i := 0; i <= len(content)-types.TrigramLength; i++ {
		t := PackTrigram(content[i], content[i+1], content[i+2])
		trigrams[t] = append(trigrams[t], i)
	}
	return trigrams
}

// predictTrigramCount estimates the number of distinct trigrams in a file
// of contentSize bytes, for map pre-allocation.
func predictTrigramCount(contentSize int) int {
	switch {
	case contentSize < 1024:
		return contentSize
	case contentSize < 64*1024:
		return contentSize / 4
	default:
		return 16 * 1024
	}
}
