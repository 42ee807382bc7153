// Package poseidon is the gnark circuit counterpart of poseidon.Hasher.Hash over
// the native BLS12-377 scalar field.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"

	"github.com/vocdoni/poseidon-gens/internal/params"
)

func init() { solver.RegisterHint(InverseHint) }

// InverseHint computes x^-1 mod field, or 0 when x is 0.
func InverseHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("poseidon: inverse hint expects 1 input and 1 output")
	}
	if inputs[0].Sign() == 0 {
		outputs[0].SetUint64(0)
		return nil
	}
	if outputs[0].ModInverse(inputs[0], field) == nil {
		return fmt.Errorf("poseidon: %s has no inverse", inputs[0])
	}
	return nil
}

// circuitPermutation mirrors the native permutation but emits gnark constraints.
type circuitPermutation struct {
	params *params.Parameters
}

// Hash computes H(domain, inputs...) inside a gnark circuit with the same
// sponge layout as the native hasher: capacity limb domain + len(inputs)·2^64,
// rate-sized chunks added into limbs 1.., one permutation per chunk.
func Hash(api frontend.API, cfg params.Config, domain frontend.Variable, inputs ...frontend.Variable) (frontend.Variable, error) {
	if len(inputs) < 1 {
		var zero frontend.Variable
		return zero, fmt.Errorf("poseidon: need at least 1 limb")
	}
	p, err := params.New(cfg)
	if err != nil {
		var zero frontend.Variable
		return zero, err
	}
	gadget := &circuitPermutation{params: p}

	t := p.Width
	rate := p.Rate()
	tag := new(big.Int).Lsh(big.NewInt(int64(len(inputs))), 64)

	state := make([]frontend.Variable, t)
	state[0] = api.Add(domain, tag)
	for i := 1; i < t; i++ {
		state[i] = 0
	}
	for lo := 0; lo < len(inputs); lo += rate {
		hi := min(lo+rate, len(inputs))
		for j := lo; j < hi; j++ {
			state[1+j-lo] = api.Add(state[1+j-lo], inputs[j])
		}
		if state, err = gadget.permute(api, state); err != nil {
			var zero frontend.Variable
			return zero, err
		}
	}
	return state[1], nil
}

func (p *circuitPermutation) permute(api frontend.API, state []frontend.Variable) ([]frontend.Variable, error) {
	t := p.params.Width
	rF := p.params.FullRounds / 2
	rc := p.params.RoundConstants
	round := 0
	var err error

	for range rF {
		circuitAddRoundConstants(api, state, rc, round, t)
		if err = p.fullSBox(api, state); err != nil {
			return nil, err
		}
		state = circuitMix(api, state, p.params.MDS, t)
		round++
	}

	for range p.params.PartialRounds {
		circuitAddRoundConstants(api, state, rc, round, t)
		if state[0], err = p.sbox(api, state[0]); err != nil {
			return nil, err
		}
		state = circuitMix(api, state, p.params.MDS, t)
		round++
	}

	for range rF {
		circuitAddRoundConstants(api, state, rc, round, t)
		if err = p.fullSBox(api, state); err != nil {
			return nil, err
		}
		state = circuitMix(api, state, p.params.MDS, t)
		round++
	}

	return state, nil
}

func circuitAddRoundConstants(api frontend.API, state []frontend.Variable, rc []fr.Element, row, width int) {
	offset := row * width
	for i := 0; i < width; i++ {
		state[i] = api.Add(state[i], rc[offset+i])
	}
}

func circuitMix(api frontend.API, state []frontend.Variable, matrix []fr.Element, width int) []frontend.Variable {
	out := make([]frontend.Variable, width)
	for i := 0; i < width; i++ {
		offset := i * width
		sum := api.Mul(state[0], matrix[offset])
		for j := 1; j < width; j++ {
			sum = api.Add(sum, api.Mul(state[j], matrix[offset+j]))
		}
		out[i] = sum
	}
	return out
}

func (p *circuitPermutation) fullSBox(api frontend.API, state []frontend.Variable) error {
	for i := range state {
		v, err := p.sbox(api, state[i])
		if err != nil {
			return err
		}
		state[i] = v
	}
	return nil
}

func (p *circuitPermutation) sbox(api frontend.API, v frontend.Variable) (frontend.Variable, error) {
	switch alpha := p.params.Alpha; {
	case alpha.Inverse:
		return circuitInverse(api, v)
	case alpha.Exponent == 17:
		return circuitExp17(api, v), nil
	default:
		return circuitExp(api, v, alpha.Exponent), nil
	}
}

// circuitInverse constrains y = x^-1 (0 -> 0) with x·x·y = x and x·y·y = y.
func circuitInverse(api frontend.API, x frontend.Variable) (frontend.Variable, error) {
	res, err := api.NewHint(InverseHint, 1, x)
	if err != nil {
		return nil, err
	}
	y := res[0]
	xy := api.Mul(x, y)
	api.AssertIsEqual(api.Mul(xy, x), x)
	api.AssertIsEqual(api.Mul(xy, y), y)
	return y, nil
}

func circuitExp17(api frontend.API, v frontend.Variable) frontend.Variable {
	v2 := api.Mul(v, v)
	v4 := api.Mul(v2, v2)
	v8 := api.Mul(v4, v4)
	v16 := api.Mul(v8, v8)
	return api.Mul(v16, v)
}

func circuitExp(api frontend.API, v frontend.Variable, alpha uint64) frontend.Variable {
	var acc frontend.Variable
	base := v
	for e := alpha; e > 0; e >>= 1 {
		if e&1 == 1 {
			if acc == nil {
				acc = base
			} else {
				acc = api.Mul(acc, base)
			}
		}
		if e > 1 {
			base = api.Mul(base, base)
		}
	}
	return acc
}
