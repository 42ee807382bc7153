package generators

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"testing"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fp"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

var testLabel = []byte("generators-test")

func mustGenerate(t testing.TB, n int, label []byte, opts ...Option) *GeneratorSet {
	t.Helper()
	g, err := Generate(n, label, opts...)
	require.NoError(t, err)
	return g
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := mustGenerate(t, 16, testLabel)
	b := mustGenerate(t, 16, testLabel, WithConcurrency(1))
	require.Equal(t, 16, a.Len())
	require.True(t, a.Equal(b))
	for i := 0; i < a.Len(); i++ {
		pa, pb := a.At(i), b.At(i)
		require.True(t, pa.Equal(&pb), "point %d", i)
	}
}

func TestGeneratePointsAreValidAndDistinct(t *testing.T) {
	g := mustGenerate(t, 12, testLabel)
	points := g.Points()
	for i := range points {
		require.False(t, points[i].IsInfinity())
		require.True(t, points[i].IsOnCurve())
		require.True(t, points[i].IsInSubGroup())
		for j := i + 1; j < len(points); j++ {
			require.False(t, points[i].Equal(&points[j]), "points %d and %d collide", i, j)
		}
	}
}

func TestGeneratePrefixStable(t *testing.T) {
	small := mustGenerate(t, 4, testLabel)
	large := mustGenerate(t, 9, testLabel)
	for i := 0; i < small.Len(); i++ {
		ps, pl := small.At(i), large.At(i)
		require.True(t, ps.Equal(&pl))
	}
	require.False(t, small.Equal(large))
}

func TestGenerateLabelSeparatesDomains(t *testing.T) {
	a := mustGenerate(t, 4, []byte("domain-a"))
	b := mustGenerate(t, 4, []byte("domain-b"))
	require.False(t, a.Equal(b))
	pa, pb := a.At(0), b.At(0)
	require.False(t, pa.Equal(&pb))
}

func TestGenerateRejectsInvalidShape(t *testing.T) {
	for name, tc := range map[string]struct {
		n     int
		label []byte
	}{
		"zero count":     {0, testLabel},
		"negative count": {-3, testLabel},
		"too many":       {MaxCapacity + 1, testLabel},
		"empty label":    {4, nil},
		"long label":     {4, bytes.Repeat([]byte{'x'}, MaxLabelLen+1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(tc.n, tc.label)
			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestGenerateReportsProgress(t *testing.T) {
	var done atomic.Int64
	mustGenerate(t, 10, testLabel, WithConcurrency(3), WithProgress(func() { done.Add(1) }))
	require.EqualValues(t, 10, done.Load())
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := mustGenerate(t, 3, testLabel)
	label := g.Label()
	label[0] ^= 0xff
	require.Equal(t, testLabel, g.Label())

	points := g.Points()
	points[0] = bls12377.G1Affine{}
	p0 := g.At(0)
	require.False(t, p0.IsInfinity())
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 7, 32} {
		g := mustGenerate(t, n, testLabel)
		for _, enc := range []Encoding{Compressed, Raw} {
			blob, err := Encode(g, enc)
			require.NoError(t, err)
			require.Len(t, blob, EncodedLen(n, len(testLabel), enc))

			got, err := EncodingOf(blob)
			require.NoError(t, err)
			require.Equal(t, enc, got)

			decoded, err := Decode(blob)
			require.NoError(t, err, "n=%d %s", n, enc)
			require.True(t, decoded.Equal(g), "n=%d %s", n, enc)
		}
	}
}

func TestEncodingIsStable(t *testing.T) {
	a, err := mustGenerate(t, 5, testLabel).MarshalBinary()
	require.NoError(t, err)
	b, err := mustGenerate(t, 5, testLabel).MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDecodeRejectsTruncation(t *testing.T) {
	blob, err := mustGenerate(t, 4, testLabel).MarshalBinary()
	require.NoError(t, err)
	for l := 0; l < len(blob); l++ {
		_, err := Decode(blob[:l])
		require.ErrorIs(t, err, ErrDecode, "prefix of %d bytes", l)
	}
	_, err = Decode(append(bytes.Clone(blob), 0))
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRejectsBitFlips(t *testing.T) {
	g := mustGenerate(t, 3, testLabel)
	for _, enc := range []Encoding{Compressed, Raw} {
		blob, err := Encode(g, enc)
		require.NoError(t, err)
		for i := range blob {
			for _, bit := range []byte{0x01, 0x80} {
				flipped := bytes.Clone(blob)
				flipped[i] ^= bit
				_, err := Decode(flipped)
				require.ErrorIs(t, err, ErrDecode, "%s: byte %d bit %#x", enc, i, bit)
			}
		}
	}
}

// reseal recomputes the trailing checksum so that structural validation is reached.
func reseal(blob []byte) []byte {
	body := blob[:len(blob)-blake2b.Size256]
	sum := blake2b.Sum256(body)
	return append(bytes.Clone(body), sum[:]...)
}

func TestDecodeRejectsOffCurvePoint(t *testing.T) {
	blob, err := Encode(mustGenerate(t, 2, testLabel), Raw)
	require.NoError(t, err)
	// last byte of the last point's y coordinate
	blob[len(blob)-blake2b.Size256-1] ^= 0x01
	_, err = Decode(reseal(blob))
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRejectsSliceLengthMismatch(t *testing.T) {
	blob, err := Encode(mustGenerate(t, 1, testLabel), Raw)
	require.NoError(t, err)
	binary.BigEndian.PutUint32(blob[fixedHeaderLen+len(testLabel)+countLen:], 1<<28)
	_, err = Decode(reseal(blob))
	require.ErrorIs(t, err, ErrDecode)
}

// curvePointOutsideSubgroup walks x = 1, 2, ... until x^3 + 1 is a square.
// The G1 cofactor is large, so the first hit is not in the r-torsion.
func curvePointOutsideSubgroup(t *testing.T) bls12377.G1Affine {
	t.Helper()
	var p bls12377.G1Affine
	for x := uint64(1); ; x++ {
		var rhs, one fp.Element
		p.X.SetUint64(x)
		rhs.Square(&p.X).Mul(&rhs, &p.X)
		one.SetOne()
		rhs.Add(&rhs, &one)
		if p.Y.Sqrt(&rhs) != nil {
			break
		}
	}
	require.True(t, p.IsOnCurve())
	require.False(t, p.IsInSubGroup())
	return p
}

func TestDecodeRejectsPointOutsideSubgroup(t *testing.T) {
	g := mustGenerate(t, 2, testLabel)
	bad := &GeneratorSet{label: g.Label(), points: append(g.Points(), curvePointOutsideSubgroup(t))}
	for _, enc := range []Encoding{Compressed, Raw} {
		blob, err := Encode(bad, enc)
		require.NoError(t, err)
		_, err = Decode(reseal(blob))
		require.ErrorIs(t, err, ErrDecode, "%s", enc)
	}
}

func TestDecodeRejectsIdentity(t *testing.T) {
	g := mustGenerate(t, 2, testLabel)
	withIdentity := &GeneratorSet{label: g.Label(), points: append(g.Points(), bls12377.G1Affine{})}
	blob, err := withIdentity.MarshalBinary()
	require.NoError(t, err)
	_, err = Decode(blob)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRejectsHeaderGarbage(t *testing.T) {
	blob, err := mustGenerate(t, 2, testLabel).MarshalBinary()
	require.NoError(t, err)

	badVersion := bytes.Clone(blob)
	badVersion[len(magic)] = Version + 1
	_, err = Decode(reseal(badVersion))
	require.ErrorIs(t, err, ErrDecode)

	badEncoding := bytes.Clone(blob)
	badEncoding[len(magic)+1] = 7
	_, err = Decode(reseal(badEncoding))
	require.ErrorIs(t, err, ErrDecode)

	_, err = Decode([]byte("not a generator set at all"))
	require.ErrorIs(t, err, ErrDecode)
	_, err = EncodingOf([]byte("not a generator set at all"))
	require.ErrorIs(t, err, ErrDecode)
	_, err = EncodingOf(badEncoding)
	require.ErrorIs(t, err, ErrDecode)
}

func TestEncodeRejectsEmpty(t *testing.T) {
	_, err := Encode(&GeneratorSet{}, Compressed)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = Encode(mustGenerate(t, 1, testLabel), Encoding(9))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestUnmarshalBinaryRefusesPopulatedSet(t *testing.T) {
	g := mustGenerate(t, 2, testLabel)
	blob, err := g.MarshalBinary()
	require.NoError(t, err)

	var fresh GeneratorSet
	require.NoError(t, fresh.UnmarshalBinary(blob))
	require.True(t, fresh.Equal(g))
	require.ErrorIs(t, fresh.UnmarshalBinary(blob), ErrInvalidParameter)
}

func TestCBORRoundTrip(t *testing.T) {
	g := mustGenerate(t, 3, testLabel)
	data, err := cbor.Marshal(g)
	require.NoError(t, err)

	var decoded GeneratorSet
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	require.True(t, decoded.Equal(g))

	garbage, err := cbor.Marshal([]byte("garbage"))
	require.NoError(t, err)
	var rejected GeneratorSet
	require.ErrorIs(t, cbor.Unmarshal(garbage, &rejected), ErrDecode)
}

func BenchmarkGenerate(b *testing.B) {
	for _, n := range []int{64, 1024} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Generate(n, testLabel); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	g := mustGenerate(b, 1024, testLabel)
	for _, enc := range []Encoding{Compressed, Raw} {
		blob, err := Encode(g, enc)
		require.NoError(b, err)
		b.Run(enc.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Decode(blob); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
