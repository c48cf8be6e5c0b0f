// Copyright 2026 The go-kulupu Authors
// This file is part of the go-kulupu library.
//
// The go-kulupu library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-kulupu library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-kulupu library. If not, see <http://www.gnu.org/licenses/>.

package argonpow

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Wire widths. Every field is fixed width and concatenated in a fixed order,
// so producer and verifier agree byte for byte with no framing.
const (
	// DifficultyLength is the width of an encoded difficulty: a 256-bit
	// big-endian unsigned integer.
	DifficultyLength = 32

	// NonceLength is the width of a nonce.
	NonceLength = 32

	// SignatureLength is the width of an ed25519 seal signature.
	SignatureLength = 64

	// CalculationLength is the width of the signed payload:
	// preHash || difficulty || nonce.
	CalculationLength = common.HashLength + DifficultyLength + NonceLength

	// SealV1Length is the width of a legacy unsigned seal:
	// difficulty || nonce.
	SealV1Length = DifficultyLength + NonceLength

	// SealV2Length is the width of a signed seal:
	// difficulty || nonce || signature.
	SealV2Length = DifficultyLength + NonceLength + SignatureLength
)

var (
	errSealLength      = errors.New("seal has wrong length")
	errDifficultyRange = errors.New("difficulty does not fit in 256 bits")
)

// encodeDifficulty writes difficulty as a canonical 32-byte big-endian value
// into out. Nil, negative or >256-bit difficulties are unrepresentable.
func encodeDifficulty(out []byte, difficulty *big.Int) error {
	if difficulty == nil || difficulty.Sign() < 0 {
		return errDifficultyRange
	}
	d, overflow := uint256.FromBig(difficulty)
	if overflow {
		return errDifficultyRange
	}
	b := d.Bytes32()
	copy(out, b[:])
	return nil
}

// Calculation is the payload the block author signs: the exact bytes the
// memory-hard hash will consume, minus the signature itself.
type Calculation struct {
	PreHash    common.Hash
	Difficulty *big.Int
	Nonce      common.Hash
}

// Encode returns the deterministic wire encoding of the calculation,
// preHash || difficulty || nonce.
func (c *Calculation) Encode() ([]byte, error) {
	out := make([]byte, CalculationLength)
	copy(out[:common.HashLength], c.PreHash[:])
	if err := encodeDifficulty(out[common.HashLength:common.HashLength+DifficultyLength], c.Difficulty); err != nil {
		return nil, err
	}
	copy(out[common.HashLength+DifficultyLength:], c.Nonce[:])
	return out, nil
}

// SealV2 is the active seal format: the proof-of-work artifact attached to a
// block, carrying the difficulty it was mined at, the winning nonce and the
// author's signature over the matching Calculation.
type SealV2 struct {
	Difficulty *big.Int
	Nonce      common.Hash
	Signature  [SignatureLength]byte
}

// Encode returns the wire encoding, difficulty || nonce || signature.
func (s *SealV2) Encode() ([]byte, error) {
	out := make([]byte, SealV2Length)
	if err := encodeDifficulty(out[:DifficultyLength], s.Difficulty); err != nil {
		return nil, err
	}
	copy(out[DifficultyLength:DifficultyLength+NonceLength], s.Nonce[:])
	copy(out[DifficultyLength+NonceLength:], s.Signature[:])
	return out, nil
}

// DecodeSealV2 parses a signed seal. Anything but exactly SealV2Length bytes
// is malformed.
func DecodeSealV2(data []byte) (*SealV2, error) {
	if len(data) != SealV2Length {
		return nil, errSealLength
	}
	s := &SealV2{
		Difficulty: new(big.Int).SetBytes(data[:DifficultyLength]),
	}
	copy(s.Nonce[:], data[DifficultyLength:DifficultyLength+NonceLength])
	copy(s.Signature[:], data[DifficultyLength+NonceLength:])
	return s, nil
}

// equal reports whether two seals are bit-identical on the wire. Decoded
// difficulties are canonical big-endian values, so field comparison is exact.
func (s *SealV2) equal(other *SealV2) bool {
	return s.Difficulty.Cmp(other.Difficulty) == 0 &&
		s.Nonce == other.Nonce &&
		s.Signature == other.Signature
}

// SealV1 is the deprecated unsigned seal format. It is kept so historical
// blocks remain decodable; no mining or verification path produces or accepts
// it in the v2 generation.
type SealV1 struct {
	Difficulty *big.Int
	Nonce      common.Hash
}

// Encode returns the wire encoding, difficulty || nonce.
func (s *SealV1) Encode() ([]byte, error) {
	out := make([]byte, SealV1Length)
	if err := encodeDifficulty(out[:DifficultyLength], s.Difficulty); err != nil {
		return nil, err
	}
	copy(out[DifficultyLength:], s.Nonce[:])
	return out, nil
}

// DecodeSealV1 parses a legacy unsigned seal.
func DecodeSealV1(data []byte) (*SealV1, error) {
	if len(data) != SealV1Length {
		return nil, errSealLength
	}
	s := &SealV1{
		Difficulty: new(big.Int).SetBytes(data[:DifficultyLength]),
	}
	copy(s.Nonce[:], data[DifficultyLength:])
	return s, nil
}
