package generators

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark/logger"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// Wire layout, version 1 (big endian):
//
//	"BPGN" | version u8 | encoding u8 | labelLen u8 | label | count u32 |
//	gnark-crypto Encoder([]G1Affine) | blake2b-256 over everything before it
const (
	magic   = "BPGN"
	Version = 1

	fixedHeaderLen = len(magic) + 3
	countLen       = 4
	sliceLenLen    = 4
)

// Encoding selects the point representation inside a serialized set.
type Encoding uint8

const (
	// Compressed stores x only; decoding pays a square root per point.
	Compressed Encoding = iota
	// Raw stores x and y; twice the size, cheaper to decode.
	Raw
)

func (e Encoding) String() string {
	switch e {
	case Compressed:
		return "compressed"
	case Raw:
		return "raw"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// PointSize is the number of bytes one point occupies under e.
func (e Encoding) PointSize() int {
	switch e {
	case Compressed:
		return bls12377.SizeOfG1AffineCompressed
	case Raw:
		return bls12377.SizeOfG1AffineUncompressed
	default:
		return 0
	}
}

// EncodedLen is the exact size of a serialized set with the given shape.
func EncodedLen(count, labelLen int, enc Encoding) int {
	return fixedHeaderLen + labelLen + countLen + sliceLenLen + count*enc.PointSize() + blake2b.Size256
}

// Encode serializes g with the requested point encoding.
func Encode(g *GeneratorSet, enc Encoding) ([]byte, error) {
	if g == nil || len(g.points) == 0 {
		return nil, fmt.Errorf("generators: %w: empty generator set", ErrInvalidParameter)
	}
	if enc.PointSize() == 0 {
		return nil, fmt.Errorf("generators: %w: unknown encoding %s", ErrInvalidParameter, enc)
	}

	var buf bytes.Buffer
	buf.Grow(EncodedLen(len(g.points), len(g.label), enc))
	buf.WriteString(magic)
	buf.WriteByte(Version)
	buf.WriteByte(byte(enc))
	buf.WriteByte(byte(len(g.label)))
	buf.Write(g.label)
	var count [countLen]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(g.points)))
	buf.Write(count[:])

	var encOpts []func(*bls12377.Encoder)
	if enc == Raw {
		encOpts = append(encOpts, bls12377.RawEncoding())
	}
	if err := bls12377.NewEncoder(&buf, encOpts...).Encode(g.points); err != nil {
		return nil, fmt.Errorf("generators: encode points: %w", err)
	}

	sum := blake2b.Sum256(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

// Decode parses and fully validates a serialized set. Every point must be a
// non-identity element of the prime-order subgroup.
func Decode(data []byte) (*GeneratorSet, error) {
	start := time.Now()
	if len(data) < fixedHeaderLen {
		return nil, decodeErr("truncated header (%d bytes)", len(data))
	}
	if string(data[:len(magic)]) != magic {
		return nil, decodeErr("bad magic %q", data[:len(magic)])
	}
	if v := data[len(magic)]; v != Version {
		return nil, decodeErr("unsupported version %d", v)
	}
	enc := Encoding(data[len(magic)+1])
	if enc.PointSize() == 0 {
		return nil, decodeErr("unknown point encoding %d", uint8(enc))
	}
	labelLen := int(data[len(magic)+2])
	if labelLen == 0 {
		return nil, decodeErr("empty label")
	}
	off := fixedHeaderLen
	if len(data) < off+labelLen+countLen {
		return nil, decodeErr("truncated header (%d bytes)", len(data))
	}
	label := data[off : off+labelLen]
	off += labelLen
	count := int(binary.BigEndian.Uint32(data[off:]))
	off += countLen
	if count == 0 || count > MaxCapacity {
		return nil, decodeErr("count %d out of range [1, %d]", count, MaxCapacity)
	}
	if want := EncodedLen(count, labelLen, enc); len(data) != want {
		return nil, decodeErr("length %d inconsistent with %d %s points (want %d)", len(data), count, enc, want)
	}

	body := data[:len(data)-blake2b.Size256]
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], data[len(body):]) {
		return nil, decodeErr("checksum mismatch")
	}

	if n := binary.BigEndian.Uint32(body[off:]); n != uint32(count) {
		return nil, decodeErr("point slice declares %d points, header declares %d", n, count)
	}
	var points []bls12377.G1Affine
	if err := bls12377.NewDecoder(bytes.NewReader(body[off:])).Decode(&points); err != nil {
		return nil, decodeErr("invalid point: %v", err)
	}
	if len(points) != count {
		return nil, decodeErr("decoded %d points, header declares %d", len(points), count)
	}
	for i := range points {
		if points[i].IsInfinity() {
			return nil, decodeErr("point %d is the identity", i)
		}
		if !points[i].IsOnCurve() {
			return nil, decodeErr("point %d is not on the curve", i)
		}
		if !points[i].IsInSubGroup() {
			return nil, decodeErr("point %d is outside the prime-order subgroup", i)
		}
	}

	log := logger.Logger()
	log.Debug().
		Str("component", "generators").
		Int("count", count).
		Stringer("encoding", enc).
		Dur("took", time.Since(start)).
		Msg("generators decoded")
	return &GeneratorSet{label: bytes.Clone(label), points: points}, nil
}

// EncodingOf reads the point encoding from a serialized header without decoding the points.
func EncodingOf(data []byte) (Encoding, error) {
	if len(data) < fixedHeaderLen || string(data[:len(magic)]) != magic {
		return 0, decodeErr("not a generator set")
	}
	enc := Encoding(data[len(magic)+1])
	if enc.PointSize() == 0 {
		return 0, decodeErr("unknown point encoding %d", uint8(enc))
	}
	return enc, nil
}

func decodeErr(format string, args ...any) error {
	return fmt.Errorf("generators: %w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// MarshalBinary encodes g with compressed points.
func (g *GeneratorSet) MarshalBinary() ([]byte, error) {
	return Encode(g, Compressed)
}

// UnmarshalBinary decodes data into an empty set.
func (g *GeneratorSet) UnmarshalBinary(data []byte) error {
	if len(g.points) != 0 {
		return fmt.Errorf("generators: %w: set is already populated", ErrInvalidParameter)
	}
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

// MarshalCBOR wraps the binary form in a CBOR byte string.
func (g *GeneratorSet) MarshalCBOR() ([]byte, error) {
	blob, err := g.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(blob)
}

// UnmarshalCBOR accepts the output of MarshalCBOR and applies full validation.
func (g *GeneratorSet) UnmarshalCBOR(data []byte) error {
	var blob []byte
	if err := cbor.Unmarshal(data, &blob); err != nil {
		return decodeErr("cbor: %v", err)
	}
	return g.UnmarshalBinary(blob)
}
