package poseidon

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/vocdoni/poseidon-gens/generators"
)

const (
	// DefaultCapacity is the number of generators a fresh HasherOptions derives.
	DefaultCapacity = 4096
	// DefaultLabel is the domain label generators are derived from.
	DefaultLabel = "poseidon-gens/bp_gens"
)

// ErrInvalidParameter and ErrDecode are shared with package generators.
var (
	ErrInvalidParameter = generators.ErrInvalidParameter
	ErrDecode           = generators.ErrDecode
)

// ErrInconsistentConfig reports a change that would disagree with materialized generators.
var ErrInconsistentConfig = errors.New("inconsistent config")

// HasherOptions carries everything NewHasher needs. The generator slot starts
// empty and is filled either by SetGenerators or lazily by the first Generators
// call; once filled it is reused by every later read on the same value.
//
// Build values with NewHasherOptions; the zero value has no capacity or label
// and its Generators call fails with ErrInvalidParameter. A HasherOptions is
// safe for concurrent use.
type HasherOptions struct {
	mu sync.Mutex

	capacity int
	label    []byte
	perm     PermutationConfig
	domain   fr.Element

	gens     *generators.GeneratorSet
	generate func(n int, label []byte) (*generators.GeneratorSet, error)
}

// Option configures a HasherOptions at construction.
type Option func(*HasherOptions)

// WithCapacity sets the number of generators N.
func WithCapacity(n int) Option {
	return func(o *HasherOptions) { o.capacity = n }
}

// WithLabel sets the generator domain label.
func WithLabel(label string) Option {
	return func(o *HasherOptions) { o.label = []byte(label) }
}

// WithRounds sets the number of full and partial rounds.
func WithRounds(full, partial int) Option {
	return func(o *HasherOptions) {
		o.perm.FullRounds = full
		o.perm.PartialRounds = partial
	}
}

// WithWidth sets the permutation state width (rate + 1).
func WithWidth(width int) Option {
	return func(o *HasherOptions) { o.perm.Width = width }
}

// WithExponent selects the x^alpha S-box.
func WithExponent(alpha uint64) Option {
	return func(o *HasherOptions) { o.perm.Alpha = Alpha{Exponent: alpha} }
}

// WithInverseSbox selects the x^-1 S-box.
func WithInverseSbox() Option {
	return func(o *HasherOptions) { o.perm.Alpha = Alpha{Inverse: true} }
}

// WithDomain sets the domain separator placed in the capacity limb.
func WithDomain(domain fr.Element) Option {
	return func(o *HasherOptions) { o.domain = domain }
}

// NewHasherOptions returns options with no generators and default parameters,
// adjusted by opts. Parameters are validated by NewHasher and Generators.
func NewHasherOptions(opts ...Option) *HasherOptions {
	o := &HasherOptions{
		capacity: DefaultCapacity,
		label:    []byte(DefaultLabel),
		perm:     DefaultPermutationConfig(),
		generate: func(n int, label []byte) (*generators.GeneratorSet, error) {
			return generators.Generate(n, label)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generators returns the generator set, deriving and caching it on first use.
// Concurrent callers block until the single derivation finishes. A failed
// derivation leaves the slot empty.
func (o *HasherOptions) Generators() (*generators.GeneratorSet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gens != nil {
		return o.gens, nil
	}
	generate := o.generate
	if generate == nil {
		generate = func(n int, label []byte) (*generators.GeneratorSet, error) {
			return generators.Generate(n, label)
		}
	}
	g, err := generate(o.capacity, o.label)
	if err != nil {
		return nil, fmt.Errorf("poseidon: derive generators: %w", err)
	}
	o.gens = g
	return g, nil
}

// SetGenerators decodes a serialized generator set and caches it, replacing any
// previous value. On error the previous value is kept.
func (o *HasherOptions) SetGenerators(data []byte) error {
	g, err := generators.Decode(data)
	if err != nil {
		return fmt.Errorf("poseidon: set generators: %w", err)
	}
	return o.SetGeneratorSet(g)
}

// SetGeneratorSet caches an already decoded set. Sets are immutable, so the
// same value may back several options and hashers.
func (o *HasherOptions) SetGeneratorSet(g *generators.GeneratorSet) error {
	if g == nil {
		return fmt.Errorf("poseidon: %w: nil generator set", ErrInvalidParameter)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if g.Len() != o.capacity {
		return fmt.Errorf("poseidon: %w: generator set holds %d points, capacity is %d", ErrInconsistentConfig, g.Len(), o.capacity)
	}
	if label := g.Label(); !bytes.Equal(label, o.label) {
		return fmt.Errorf("poseidon: %w: generator label %q, expected %q", ErrInconsistentConfig, label, o.label)
	}
	o.gens = g
	return nil
}

// SetCapacity changes N. It is rejected once generators are materialized.
func (o *HasherOptions) SetCapacity(n int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n == o.capacity {
		return nil
	}
	if o.gens != nil {
		return fmt.Errorf("poseidon: %w: capacity is fixed at %d once generators exist", ErrInconsistentConfig, o.capacity)
	}
	if err := generators.CheckShape(n, o.label); err != nil {
		return err
	}
	o.capacity = n
	return nil
}

// HasGenerators reports whether the generator slot is filled.
func (o *HasherOptions) HasGenerators() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gens != nil
}

// Capacity is the configured number of generators.
func (o *HasherOptions) Capacity() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.capacity
}

// Label returns a copy of the generator domain label.
func (o *HasherOptions) Label() []byte {
	return bytes.Clone(o.label)
}

// PermutationConfig returns the permutation parameters.
func (o *HasherOptions) PermutationConfig() PermutationConfig {
	return o.perm
}

// Domain returns the capacity-limb domain separator.
func (o *HasherOptions) Domain() fr.Element {
	return o.domain
}
