package token

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
)

// entropyBytes gives 208 bits per token, far beyond brute-force reach.
const entropyBytes = 26

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator produces opaque capability token strings.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator issues URL-safe random strings from crypto/rand.
type RandomGenerator struct{}

// NewRandomGenerator constructs the default token generator.
func NewRandomGenerator() RandomGenerator {
	return RandomGenerator{}
}

// Generate returns a fresh unguessable token string.
func (RandomGenerator) Generate() (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return encoding.EncodeToString(buf), nil
}
