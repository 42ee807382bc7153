package poseidon

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/vocdoni/poseidon-gens/internal/params"
)

// PermutationConfig selects the permutation instance (width, rounds, S-box).
type PermutationConfig = params.Config

// Alpha selects the S-box: x^Exponent, or x^-1 (with 0 -> 0) when Inverse is set.
type Alpha = params.Alpha

// DefaultPermutationConfig is width 6, 4+4 full rounds, 57 partial rounds, x^-1.
func DefaultPermutationConfig() PermutationConfig {
	return params.DefaultConfig()
}

// permutation implements the Poseidon permutation over the bls12-377 scalar field.
type permutation struct {
	params *params.Parameters
}

func newPermutation(cfg PermutationConfig) (*permutation, error) {
	p, err := params.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("poseidon: %w: %v", ErrInvalidParameter, err)
	}
	return &permutation{params: p}, nil
}

// permute mutates the state in place: rF/2 full rounds, rP partial rounds, rF/2 full rounds.
// Every round adds its constants, applies the S-box and mixes with the MDS matrix.
func (p *permutation) permute(state []fr.Element) {
	t := p.params.Width
	rF := p.params.FullRounds / 2
	rc := p.params.RoundConstants
	round := 0

	// First half of full rounds.
	for range rF {
		addRoundConstants(state, rc, round, t)
		p.fullSBox(state)
		p.mix(state)
		round++
	}

	// Partial rounds, S-box on the first limb only.
	for range p.params.PartialRounds {
		addRoundConstants(state, rc, round, t)
		p.sbox(&state[0])
		p.mix(state)
		round++
	}

	// Second half of full rounds.
	for range rF {
		addRoundConstants(state, rc, round, t)
		p.fullSBox(state)
		p.mix(state)
		round++
	}
}

func (p *permutation) mix(state []fr.Element) {
	t := p.params.Width
	newState := make([]fr.Element, t)
	for i := 0; i < t; i++ {
		var sum fr.Element
		rowOffset := i * t
		for j := 0; j < t; j++ {
			var prod fr.Element
			prod.Mul(&p.params.MDS[rowOffset+j], &state[j])
			sum.Add(&sum, &prod)
		}
		newState[i] = sum
	}
	copy(state, newState)
}

func addRoundConstants(state []fr.Element, rc []fr.Element, row, width int) {
	offset := row * width
	for i := 0; i < width; i++ {
		state[i].Add(&state[i], &rc[offset+i])
	}
}

func (p *permutation) fullSBox(state []fr.Element) {
	for i := range state {
		p.sbox(&state[i])
	}
}

func (p *permutation) sbox(x *fr.Element) {
	switch alpha := p.params.Alpha; {
	case alpha.Inverse:
		// Inverse maps 0 to 0.
		x.Inverse(x)
	case alpha.Exponent == 17:
		exp17(x)
	default:
		expAlpha(x, alpha.Exponent)
	}
}

func exp17(x *fr.Element) {
	var x2, x4, x8, x16 fr.Element
	x2.Mul(x, x)
	x4.Mul(&x2, &x2)
	x8.Mul(&x4, &x4)
	x16.Mul(&x8, &x8)
	x.Mul(&x16, x)
}

func expAlpha(x *fr.Element, alpha uint64) {
	var acc fr.Element
	acc.SetOne()
	base := *x
	for e := alpha; e > 0; e >>= 1 {
		if e&1 == 1 {
			acc.Mul(&acc, &base)
		}
		base.Square(&base)
	}
	*x = acc
}

// two64 shifts the input length into the capacity tag.
var two64 = func() (v fr.Element) {
	v.SetBigInt(new(big.Int).Lsh(big.NewInt(1), 64))
	return
}()

// capacityTag is domain + n·2^64, the initial capacity limb for an n-element message.
func capacityTag(domain fr.Element, n int) fr.Element {
	var tag fr.Element
	tag.SetUint64(uint64(n))
	tag.Mul(&tag, &two64)
	tag.Add(&tag, &domain)
	return tag
}

// DomainFromLEBytes interprets data as a little-endian integer reduced mod r.
func DomainFromLEBytes(data []byte) fr.Element {
	reversed := make([]byte, len(data))
	for i := range data {
		reversed[len(data)-1-i] = data[i]
	}
	bi := new(big.Int).SetBytes(reversed)
	var out fr.Element
	out.SetBigInt(bi)
	return out
}
