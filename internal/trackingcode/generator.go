package trackingcode

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	// Length is the number of characters in a generated tracking code.
	Length = 8

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator produces tracking codes ("radicados") for new incidents.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes uniformly from the alphanumeric alphabet.
// Uniqueness is not checked here; the incidents table enforces it.
type RandomGenerator struct {
	source io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *RandomGenerator {
	return &RandomGenerator{source: rand.Reader}
}

// Generate returns a new 8 character code.
func (g *RandomGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, Length)
	for i := range code {
		n, err := rand.Int(g.source, max)
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}
