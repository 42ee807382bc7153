// Package poseidon hashes emulated BLS12-377 scalar field elements, for circuits
// whose native field is another curve's (typically BW6-761).
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"

	"github.com/vocdoni/poseidon-gens/internal/params"
)

// Hash computes the Poseidon hash over emulated BLS12-377 field elements with
// the native hasher's sponge layout. Only the exponent S-box is supported.
func Hash(api frontend.API, cfg params.Config, domain emulated.Element[FrParams], inputs ...emulated.Element[FrParams]) (emulated.Element[FrParams], error) {
	var zero emulated.Element[FrParams]
	if len(inputs) < 1 {
		return zero, fmt.Errorf("poseidon: need at least 1 limb")
	}
	if cfg.Alpha.Inverse {
		return zero, fmt.Errorf("poseidon: inverse s-box is not supported over emulated fields")
	}
	p, err := params.New(cfg)
	if err != nil {
		return zero, err
	}

	field, err := emulated.NewField[FrParams](api)
	if err != nil {
		return zero, err
	}

	t := p.Width
	rate := p.Rate()
	tag := field.NewElement(new(big.Int).Lsh(big.NewInt(int64(len(inputs))), 64))

	state := make([]*emulated.Element[FrParams], t)
	state[0] = field.Add(&domain, tag)
	for i := 1; i < t; i++ {
		state[i] = field.Zero()
	}
	for lo := 0; lo < len(inputs); lo += rate {
		hi := min(lo+rate, len(inputs))
		for j := lo; j < hi; j++ {
			state[1+j-lo] = field.Add(state[1+j-lo], &inputs[j])
		}
		state = permute(field, p, state)
	}

	// Ensure canonical output.
	out := field.Reduce(state[1])
	return *out, nil
}

// permute applies the permutation to the state and returns the new state.
func permute(field *emulated.Field[FrParams], p *params.Parameters, state []*emulated.Element[FrParams]) []*emulated.Element[FrParams] {
	t := p.Width
	rF := p.FullRounds / 2
	round := 0

	// First half of full rounds.
	for range rF {
		addRoundConstants(field, state, p, round, t)
		fullSBox(field, state, p.Alpha.Exponent)
		state = mix(field, p, state)
		round++
	}

	// Partial rounds.
	for range p.PartialRounds {
		addRoundConstants(field, state, p, round, t)
		state[0] = exp(field, state[0], p.Alpha.Exponent)
		state = mix(field, p, state)
		round++
	}

	// Second half of full rounds.
	for range rF {
		addRoundConstants(field, state, p, round, t)
		fullSBox(field, state, p.Alpha.Exponent)
		state = mix(field, p, state)
		round++
	}

	return state
}

func addRoundConstants(field *emulated.Field[FrParams], state []*emulated.Element[FrParams], p *params.Parameters, row, width int) {
	offset := row * width
	for i := range width {
		c := constElement(field, p.RoundConstants[offset+i])
		state[i] = field.Add(state[i], &c)
	}
}

func mix(field *emulated.Field[FrParams], p *params.Parameters, state []*emulated.Element[FrParams]) []*emulated.Element[FrParams] {
	t := p.Width
	newState := make([]*emulated.Element[FrParams], t)
	for i := range t {
		sum := field.Zero()
		rowOffset := i * t
		for j := range t {
			c := constElement(field, p.MDS[rowOffset+j])
			prod := field.Mul(&c, state[j])
			sum = field.Add(sum, prod)
		}
		newState[i] = sum
	}
	return newState
}

func fullSBox(field *emulated.Field[FrParams], state []*emulated.Element[FrParams], alpha uint64) {
	for i := range state {
		state[i] = exp(field, state[i], alpha)
	}
}

func exp(field *emulated.Field[FrParams], x *emulated.Element[FrParams], alpha uint64) *emulated.Element[FrParams] {
	if alpha == 17 {
		return exp17(field, x)
	}
	var acc *emulated.Element[FrParams]
	base := x
	for e := alpha; e > 0; e >>= 1 {
		if e&1 == 1 {
			if acc == nil {
				acc = base
			} else {
				acc = field.Mul(acc, base)
			}
		}
		if e > 1 {
			base = field.Mul(base, base)
		}
	}
	return acc
}

func exp17(field *emulated.Field[FrParams], x *emulated.Element[FrParams]) *emulated.Element[FrParams] {
	x2 := field.Mul(x, x)
	x4 := field.Mul(x2, x2)
	x8 := field.Mul(x4, x4)
	x16 := field.Mul(x8, x8)
	return field.Mul(x16, x)
}
