// Package verificationcode issues the short numeric codes mailed to users to
// prove they own an email address.
package verificationcode

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/tendant/simple-auth/pkg/utils"
)

const (
	// DefaultTTL is how long a code stays valid after it is issued.
	DefaultTTL = 10 * time.Minute

	minCode = 100000
	maxCode = 999999
)

// Code is a generated code and the instant it stops being valid.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Generator produces uniformly distributed 6 digit codes.
type Generator struct {
	ttl    time.Duration
	clock  utils.Clock
	random io.Reader
}

type Option func(*Generator)

func WithTTL(ttl time.Duration) Option {
	return func(g *Generator) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

func WithClock(clock utils.Clock) Option {
	return func(g *Generator) {
		g.clock = clock
	}
}

// WithRandom replaces crypto/rand.Reader. Tests only.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		g.random = r
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		ttl:    DefaultTTL,
		clock:  utils.RealClock{},
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) TTL() time.Duration {
	return g.ttl
}

// Generate returns a fresh code expiring TTL from now.
func (g *Generator) Generate() (Code, error) {
	n, err := rand.Int(g.random, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return Code{}, fmt.Errorf("generate verification code: %w", err)
	}
	return Code{
		Value:     fmt.Sprintf("%06d", n.Int64()+minCode),
		ExpiresAt: g.clock.Now().Add(g.ttl),
	}, nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Expired reports whether a code with the given expiry is no longer valid at
// now. The expiry instant itself counts as expired.
func Expired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}
