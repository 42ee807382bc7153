package params

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

const (
	MinWidth = 2
	MaxWidth = 16
	// MaxRounds bounds FullRounds and PartialRounds each.
	MaxRounds = 1024
)

// CheckConfig rejects structurally invalid permutation configurations.
func CheckConfig(c Config) error {
	if c.Width < MinWidth || c.Width > MaxWidth {
		return fmt.Errorf("params: width %d out of range [%d, %d]", c.Width, MinWidth, MaxWidth)
	}
	if c.FullRounds <= 0 {
		return fmt.Errorf("params: full rounds must be positive, got %d", c.FullRounds)
	}
	if c.FullRounds%2 != 0 {
		return fmt.Errorf("params: full rounds must be even, got %d", c.FullRounds)
	}
	if c.PartialRounds <= 0 {
		return fmt.Errorf("params: partial rounds must be positive, got %d", c.PartialRounds)
	}
	if c.FullRounds > MaxRounds || c.PartialRounds > MaxRounds {
		return fmt.Errorf("params: rounds %d+%d exceed %d", c.FullRounds, c.PartialRounds, MaxRounds)
	}
	if c.Alpha.Inverse {
		if c.Alpha.Exponent != 0 {
			return fmt.Errorf("params: inverse s-box cannot carry exponent %d", c.Alpha.Exponent)
		}
		return nil
	}
	if c.Alpha.Exponent < 3 {
		return fmt.Errorf("params: s-box exponent must be at least 3, got %d", c.Alpha.Exponent)
	}
	// x -> x^alpha is a permutation of fr only when gcd(alpha, r-1) = 1.
	rMinusOne := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	gcd := new(big.Int).GCD(nil, nil, new(big.Int).SetUint64(c.Alpha.Exponent), rMinusOne)
	if gcd.Cmp(big.NewInt(1)) != 0 {
		return fmt.Errorf("params: s-box exponent %d is not coprime with r-1", c.Alpha.Exponent)
	}
	return nil
}

// Validate checks basic shape and sizes of the parameter set.
func Validate(p *Parameters) error {
	if err := CheckConfig(p.Config); err != nil {
		return err
	}
	width := p.Width
	expectedRounds := (p.FullRounds + p.PartialRounds) * width
	if len(p.RoundConstants) != expectedRounds {
		return fmt.Errorf("params: round constants length mismatch (%d != %d)", len(p.RoundConstants), expectedRounds)
	}
	if len(p.MDS) != width*width {
		return fmt.Errorf("params: mds length mismatch")
	}
	return nil
}
