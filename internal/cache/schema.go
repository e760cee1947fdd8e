package cache

import "fmt"

// EntryKey returns the Redis key for a cached value.
// Pattern: encmusic:{namespace}:cache:{key}
func EntryKey(namespace, key string) string {
	return fmt.Sprintf("encmusic:%s:cache:%s", namespace, key)
}

// EntryPattern returns the SCAN pattern matching every cached value of a
// namespace.
// Pattern: encmusic:{namespace}:cache:*
func EntryPattern(namespace string) string {
	return fmt.Sprintf("encmusic:%s:cache:*", namespace)
}
