package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sealed:"

// ErrOpenFailed is returned when a sealed value cannot be decrypted
var ErrOpenFailed = errors.New("failed to open sealed value")

// Sealer encrypts small values at rest with NaCl secretbox.
// A Sealer built from an empty secret passes values through unchanged.
type Sealer struct {
	key     *[32]byte
	enabled bool
}

// NewSealer derives a secretbox key from secret
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return &Sealer{}
	}
	key := sha256.Sum256([]byte(secret))
	return &Sealer{key: &key, enabled: true}
}

// Enabled reports whether values are actually encrypted
func (s *Sealer) Enabled() bool {
	return s.enabled
}

// Seal encrypts plaintext and returns a printable string
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	if !s.enabled {
		return string(plaintext), nil
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], plaintext, &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open reverses Seal. Unsealed input is returned as-is so that a store
// written before a secret was configured can still be read.
func (s *Sealer) Open(value string) ([]byte, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return []byte(value), nil
	}
	if !s.enabled {
		return nil, fmt.Errorf("%w: no secret configured", ErrOpenFailed)
	}

	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(box) < 24 {
		return nil, ErrOpenFailed
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plaintext, ok := secretbox.Open(nil, box[24:], &nonce, s.key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
