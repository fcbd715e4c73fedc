// Package urlkey derives content-addressed identity keys from URLs and
// author names. Keys are fixed-length hex prefixes of a sha512 digest and
// are used for deduplication and storage keying across the whole system.
package urlkey

import (
	"crypto/sha512"
	"encoding/hex"
)

const (
	// URLKeyLen is the length of a URL identity key in hex characters
	URLKeyLen = 24
	// AuthorKeyLen is the length of an author key in hex characters
	AuthorKeyLen = 16
)

// ForURL returns the identity key for a URL, a 24 character hex prefix of
// sha512 over the exact URL bytes. No normalization is applied, identical
// strings map to identical keys.
func ForURL(url string) string {
	return digest(url)[:URLKeyLen]
}

// ForAuthor returns the secondary-index key for an author name, a 16
// character hex prefix of the same digest function.
func ForAuthor(name string) string {
	return digest(name)[:AuthorKeyLen]
}

func digest(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}
