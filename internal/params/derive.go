package params

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/sha3"
)

// derived memoizes parameter sets per Config; derivation is deterministic so
// concurrent duplicate work is harmless and LoadOrStore keeps a single winner.
var derived sync.Map // Config -> *Parameters

// New returns the parameter set for cfg, deriving it on first use.
// The returned value is shared and must be treated as read-only.
func New(cfg Config) (*Parameters, error) {
	if p, ok := derived.Load(cfg); ok {
		return p.(*Parameters), nil
	}
	if err := CheckConfig(cfg); err != nil {
		return nil, err
	}
	p := &Parameters{
		Config:         cfg,
		RoundConstants: RoundConstants(cfg),
		MDS:            CauchyMDS(cfg.Width),
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	actual, _ := derived.LoadOrStore(cfg, p)
	return actual.(*Parameters), nil
}

// Seed is the label the round-constant chain starts from.
func Seed(cfg Config) []byte {
	return []byte(fmt.Sprintf("poseidon_seed_bls12-377_t%d_rf%d_rp%d", cfg.Width, cfg.FullRounds, cfg.PartialRounds))
}

// RoundConstants derives one constant per state limb per round from a keccak256 chain:
// seed_0 = keccak(Seed), seed_k = keccak(seed_{k-1}), c_k = seed_k mod r.
func RoundConstants(cfg Config) []fr.Element {
	n := (cfg.FullRounds + cfg.PartialRounds) * cfg.Width

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(Seed(cfg))
	seed := hasher.Sum(nil)

	out := make([]fr.Element, n)
	for i := range out {
		hasher.Reset()
		hasher.Write(seed)
		seed = hasher.Sum(nil)
		out[i].SetBytes(seed)
	}
	return out
}

// CauchyMDS builds M[i][j] = 1 / (x_i + y_j) with x_i = i and y_j = width + j.
// The x_i are distinct, the y_j are distinct and every x_i + y_j is non-zero,
// so the matrix is MDS.
func CauchyMDS(width int) []fr.Element {
	out := make([]fr.Element, width*width)
	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			var sum fr.Element
			sum.SetUint64(uint64(i + width + j))
			out[i*width+j].Inverse(&sum)
		}
	}
	return out
}
