// Package generators derives, holds and serializes the ordered sets of BLS12-377 G1
// points used as Pedersen/Bulletproof commitment bases ("bp_gens").
//
// Derivation runs one hash-to-curve per point and dominates hasher construction
// cost; the binary codec lets a caller pay it once and reload the set later.
package generators

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"time"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxCapacity bounds the number of points a set may hold.
	MaxCapacity = 1 << 16
	// MaxLabelLen bounds the domain label, which is length-prefixed by one byte on the wire.
	MaxLabelLen = 255

	// DST is the hash-to-curve domain separation tag shared by every set.
	DST = "POSEIDON-GENS-V01-CS01-with-BLS12377G1_XMD:SHA-256_SSWU_RO_"
)

var (
	// ErrInvalidParameter reports structurally wrong caller input (count, label, rounds).
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDecode reports bytes that do not decode to a valid generator set.
	ErrDecode = errors.New("decode error")
)

// GeneratorSet is an immutable ordered sequence of G1 points derived from a label.
type GeneratorSet struct {
	label  []byte
	points []bls12377.G1Affine
}

// Option tunes Generate.
type Option func(*generateConfig)

type generateConfig struct {
	concurrency int
	progress    func()
}

// WithConcurrency caps the number of goroutines deriving points.
func WithConcurrency(n int) Option {
	return func(c *generateConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithProgress registers fn to be called once per derived point.
// fn is called from several goroutines.
func WithProgress(fn func()) Option {
	return func(c *generateConfig) {
		c.progress = fn
	}
}

// CheckShape validates a (count, label) pair without deriving anything.
func CheckShape(n int, label []byte) error {
	if n <= 0 {
		return fmt.Errorf("generators: %w: count must be positive, got %d", ErrInvalidParameter, n)
	}
	if n > MaxCapacity {
		return fmt.Errorf("generators: %w: count %d exceeds maximum %d", ErrInvalidParameter, n, MaxCapacity)
	}
	if len(label) == 0 || len(label) > MaxLabelLen {
		return fmt.Errorf("generators: %w: label length %d out of range [1, %d]", ErrInvalidParameter, len(label), MaxLabelLen)
	}
	return nil
}

// Generate deterministically derives n points for label.
// Point i is HashToG1(label || uint32_be(i), DST).
func Generate(n int, label []byte, opts ...Option) (*GeneratorSet, error) {
	if err := CheckShape(n, label); err != nil {
		return nil, err
	}
	cfg := generateConfig{concurrency: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := min(cfg.concurrency, n)
	chunk := (n + workers - 1) / workers

	log := logger.Logger().With().
		Str("component", "generators").
		Int("count", n).
		Str("label", string(label)).
		Int("workers", workers).Logger()
	start := time.Now()

	points := make([]bls12377.G1Affine, n)
	dst := []byte(DST)
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			msg := make([]byte, len(label)+4)
			copy(msg, label)
			for i := lo; i < hi; i++ {
				binary.BigEndian.PutUint32(msg[len(label):], uint32(i))
				p, err := bls12377.HashToG1(msg, dst)
				if err != nil {
					return fmt.Errorf("generators: hash to curve at index %d: %w", i, err)
				}
				points[i] = p
				if cfg.progress != nil {
					cfg.progress()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().Dur("took", time.Since(start)).Msg("generators derived")
	return &GeneratorSet{label: bytes.Clone(label), points: points}, nil
}

// Len is the number of points, the capacity N.
func (g *GeneratorSet) Len() int {
	return len(g.points)
}

// Label returns a copy of the domain label the set was derived from.
func (g *GeneratorSet) Label() []byte {
	return bytes.Clone(g.label)
}

// At returns the i-th point.
func (g *GeneratorSet) At(i int) bls12377.G1Affine {
	return g.points[i]
}

// Points returns a copy of all points in order.
func (g *GeneratorSet) Points() []bls12377.G1Affine {
	out := make([]bls12377.G1Affine, len(g.points))
	copy(out, g.points)
	return out
}

// Prefix returns the first n points without copying; callers must not modify them.
func (g *GeneratorSet) Prefix(n int) []bls12377.G1Affine {
	return g.points[:n:n]
}

// Equal reports whether both sets carry the same label and the same points in the same order.
func (g *GeneratorSet) Equal(other *GeneratorSet) bool {
	if g == nil || other == nil {
		return g == other
	}
	if !bytes.Equal(g.label, other.label) || len(g.points) != len(other.points) {
		return false
	}
	for i := range g.points {
		if !g.points[i].Equal(&other.points[i]) {
			return false
		}
	}
	return true
}
