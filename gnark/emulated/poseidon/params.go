package poseidon

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/emulated/emparams"
)

// FrParams defines the emulated parameters for the BLS12-377 scalar field.
type FrParams = emparams.BLS12377Fr

func constElement(f *emulated.Field[FrParams], fe fr.Element) emulated.Element[FrParams] {
	return *f.NewElement(fe.BigInt(new(big.Int)))
}

// ValueOf converts a native element into an emulated witness value.
func ValueOf(e fr.Element) emulated.Element[FrParams] {
	return emulated.ValueOf[FrParams](e.BigInt(new(big.Int)))
}
