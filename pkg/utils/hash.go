package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// NormalizeQuery collapses whitespace and lowercases a query so that
// trivially different spellings of the same question share a cache key.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// QueryCacheKey derives the deterministic cache key for a query.
func QueryCacheKey(query string) string {
	return "qa:" + HashString(NormalizeQuery(query))
}
