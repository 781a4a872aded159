// Package confirmation issues the short codes clients quote for their bookings.
package confirmation

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// Alphabet omits 0, O, 1 and I so codes survive being read aloud.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	Length      = 8
	MaxAttempts = 5
)

// Lookup reports whether a code is already assigned.
type Lookup interface {
	ConfirmationCodeExists(ctx context.Context, code string) (bool, error)
}

type Generator struct {
	rand        io.Reader
	maxAttempts int
}

func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader, maxAttempts: MaxAttempts}
}

// NewGeneratorFrom uses r as the entropy source. Meant for tests.
func NewGeneratorFrom(r io.Reader) *Generator {
	return &Generator{rand: r, maxAttempts: MaxAttempts}
}

// Generate draws codes until one is unused, giving up after MaxAttempts
// collisions with a generation error.
func (g *Generator) Generate(ctx context.Context, lookup Lookup) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		taken, err := lookup.ConfirmationCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check confirmation code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", model.Generation("no unused confirmation code after %d attempts", g.maxAttempts)
}

func (g *Generator) draw() (string, error) {
	// len(Alphabet) is 32, so masking a byte to 5 bits is unbiased.
	buf := make([]byte, Length)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = Alphabet[b&31]
	}
	return string(buf), nil
}

// Valid reports whether s has the shape of a confirmation code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !containsByte(Alphabet, s[i]) {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
