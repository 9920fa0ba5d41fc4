// Package resetcode generates numeric password recovery codes.
package resetcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	Min = 100000
	Max = 999999
)

var span = big.NewInt(Max - Min + 1)

// Generator draws codes uniformly from [Min, Max].
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(g.rand, span)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+Min), nil
}
