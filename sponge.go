package poseidon

import "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

// Sponge is a duplex sponge over the hasher's permutation. Limb 0 is the
// capacity, limbs 1..rate receive input. A Sponge is not safe for concurrent use.
//
// Absorb does not pad or length-tag its input; use Hasher.Hash for messages
// whose length is not fixed by the protocol.
type Sponge struct {
	perm      *permutation
	state     []fr.Element
	pos       int
	squeezing bool
}

// NewSponge returns a sponge whose capacity limb holds the hasher's domain.
func (h *Hasher) NewSponge() *Sponge {
	return h.newSponge(h.domain)
}

func (h *Hasher) newSponge(capacity fr.Element) *Sponge {
	state := make([]fr.Element, h.perm.params.Width)
	state[0] = capacity
	return &Sponge{perm: h.perm, state: state}
}

// Absorb adds elems into the rate limbs, permuting whenever the rate is full.
func (s *Sponge) Absorb(elems ...fr.Element) {
	rate := len(s.state) - 1
	if s.squeezing {
		s.squeezing = false
		s.pos = rate
	}
	for i := range elems {
		if s.pos == rate {
			s.perm.permute(s.state)
			s.pos = 0
		}
		s.state[1+s.pos].Add(&s.state[1+s.pos], &elems[i])
		s.pos++
	}
}

// Squeeze returns the next output element.
func (s *Sponge) Squeeze() fr.Element {
	rate := len(s.state) - 1
	switch {
	case !s.squeezing:
		s.perm.permute(s.state)
		s.squeezing = true
		s.pos = 0
	case s.pos == rate:
		s.perm.permute(s.state)
		s.pos = 0
	}
	out := s.state[1+s.pos]
	s.pos++
	return out
}
