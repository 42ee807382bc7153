package params

import "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

// Alpha captures the Poseidon S-box: x^Exponent, or x^-1 when Inverse is set.
type Alpha struct {
	Exponent uint64
	Inverse  bool
}

// Config selects a permutation instance. It is comparable and used as a memoization key.
type Config struct {
	Width         int
	FullRounds    int
	PartialRounds int
	Alpha         Alpha
}

// DefaultConfig is the width-6 instance with 4+4 full rounds, 57 partial rounds
// and the x^-1 S-box.
func DefaultConfig() Config {
	return Config{
		Width:         6,
		FullRounds:    8,
		PartialRounds: 57,
		Alpha:         Alpha{Inverse: true},
	}
}

// Rate is the number of message limbs absorbed per permutation call.
func (c Config) Rate() int {
	return c.Width - 1
}

// Parameters bundles all constants needed by the permutation.
type Parameters struct {
	Config

	// RoundConstants holds (FullRounds+PartialRounds) rows of Width elements.
	RoundConstants []fr.Element
	// MDS is a Width x Width row-major matrix.
	MDS []fr.Element
}
