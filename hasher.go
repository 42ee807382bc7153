package poseidon

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/logger"

	"github.com/vocdoni/poseidon-gens/generators"
)

// blindingLabel derives the Pedersen blinding base, shared by every hasher.
const blindingLabel = "poseidon-gens/pedersen-blinding"

var blindingBase = sync.OnceValues(func() (bls12377.G1Affine, error) {
	return bls12377.HashToG1([]byte(blindingLabel), []byte(generators.DST))
})

// Hasher is an immutable Poseidon instance bound to a generator set.
// It holds no reference to the HasherOptions it was built from and is safe
// for concurrent use.
type Hasher struct {
	perm   *permutation
	gens   *generators.GeneratorSet
	domain fr.Element
}

// NewHasher validates the permutation parameters, resolves generators through
// opts.Generators (deriving them when opts holds none) and returns a ready hasher.
func NewHasher(opts *HasherOptions) (*Hasher, error) {
	if opts == nil {
		return nil, fmt.Errorf("poseidon: %w: nil options", ErrInvalidParameter)
	}
	start := time.Now()
	cached := opts.HasGenerators()

	perm, err := newPermutation(opts.PermutationConfig())
	if err != nil {
		return nil, err
	}
	gens, err := opts.Generators()
	if err != nil {
		return nil, err
	}

	log := logger.Logger()
	log.Debug().
		Str("component", "hasher").
		Int("capacity", gens.Len()).
		Bool("cachedGenerators", cached).
		Dur("took", time.Since(start)).
		Msg("hasher ready")
	return &Hasher{perm: perm, gens: gens, domain: opts.Domain()}, nil
}

// Hash absorbs inputs into a fresh sponge whose capacity limb is
// domain + len(inputs)·2^64 and squeezes one element.
func (h *Hasher) Hash(inputs ...fr.Element) (fr.Element, error) {
	if len(inputs) == 0 {
		return fr.Element{}, fmt.Errorf("poseidon: %w: need at least 1 limb", ErrInvalidParameter)
	}
	s := h.newSponge(capacityTag(h.domain, len(inputs)))
	s.Absorb(inputs...)
	return s.Squeeze(), nil
}

// Commit returns the Pedersen vector commitment Σ values[i]·G_i + blinding·B,
// where G_i are the hasher's generators and B is a fixed blinding base.
func (h *Hasher) Commit(values []fr.Element, blinding fr.Element) (bls12377.G1Affine, error) {
	if len(values) == 0 || len(values) > h.gens.Len() {
		return bls12377.G1Affine{}, fmt.Errorf("poseidon: %w: cannot commit to %d values with %d generators", ErrInvalidParameter, len(values), h.gens.Len())
	}
	base, err := blindingBase()
	if err != nil {
		return bls12377.G1Affine{}, fmt.Errorf("poseidon: blinding base: %w", err)
	}

	var msm bls12377.G1Affine
	if _, err := msm.MultiExp(h.gens.Prefix(len(values)), values, ecc.MultiExpConfig{}); err != nil {
		return bls12377.G1Affine{}, fmt.Errorf("poseidon: commit: %w", err)
	}

	var acc, blind bls12377.G1Jac
	acc.FromAffine(&msm)
	blind.FromAffine(&base)
	blind.ScalarMultiplication(&blind, blinding.BigInt(new(big.Int)))
	acc.AddAssign(&blind)

	var out bls12377.G1Affine
	out.FromJacobian(&acc)
	return out, nil
}

// Generators returns the immutable generator set the hasher was built with.
func (h *Hasher) Generators() *generators.GeneratorSet {
	return h.gens
}

// PermutationConfig returns the permutation parameters.
func (h *Hasher) PermutationConfig() PermutationConfig {
	return h.perm.params.Config
}

// Rate is the number of elements absorbed per permutation call.
func (h *Hasher) Rate() int {
	return h.perm.params.Rate()
}

// Domain returns the domain separator.
func (h *Hasher) Domain() fr.Element {
	return h.domain
}

func (h *Hasher) Hash1(a fr.Element) (fr.Element, error) {
	return h.Hash(a)
}

func (h *Hasher) Hash2(a, b fr.Element) (fr.Element, error) {
	return h.Hash(a, b)
}

func (h *Hasher) Hash3(a, b, c fr.Element) (fr.Element, error) {
	return h.Hash(a, b, c)
}

func (h *Hasher) Hash4(a, b, c, d fr.Element) (fr.Element, error) {
	return h.Hash(a, b, c, d)
}

func (h *Hasher) Hash5(a, b, c, d, e fr.Element) (fr.Element, error) {
	return h.Hash(a, b, c, d, e)
}

func (h *Hasher) Hash6(a, b, c, d, e, f fr.Element) (fr.Element, error) {
	return h.Hash(a, b, c, d, e, f)
}

func (h *Hasher) Hash7(a, b, c, d, e, f, g fr.Element) (fr.Element, error) {
	return h.Hash(a, b, c, d, e, f, g)
}
