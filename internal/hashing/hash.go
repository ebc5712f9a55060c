// Package hashing computes content-addressable identifiers for photo data.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Sum returns the SHA-256 hex digest of data. Identical bytes always yield
// the same digest, which makes it usable as a cache and dedup key across
// differently named uploads.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// SumReader computes the SHA-256 hex digest of everything readable from r.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing input: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile computes the content hash of the file at path.
func SumFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from CLI arguments
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return SumReader(f)
}
