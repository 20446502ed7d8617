package hash

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// KeywordID returns the identifier of a FITS header keyword.
// Keywords are case-insensitive and surrounding blanks are not significant.
func KeywordID(keyword string) uint64 {
	return xxhash.Sum64String(strings.ToUpper(strings.TrimSpace(keyword)))
}
