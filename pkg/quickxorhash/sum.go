package quickxorhash

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Base64 hashes everything read from r and returns the digest in the
// base64 form the Graph API reports in file.hashes.quickXorHash.
func Base64(r io.Reader) (string, error) {
	h := New()

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("quickxorhash: reading input: %w", err)
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
