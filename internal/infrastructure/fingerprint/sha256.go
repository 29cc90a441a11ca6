package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// SHA256 hashes document bytes into a 64 character lowercase hex digest.
type SHA256 struct{}

func New() SHA256 { return SHA256{} }

func (SHA256) Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash document: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
