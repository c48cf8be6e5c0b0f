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
	"crypto/ed25519"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// compute is the ephemeral context for one seal attempt. It is built per
// nonce, never persisted, and never shared.
type compute struct {
	keyHash    common.Hash
	preHash    common.Hash
	difficulty *big.Int
	nonce      common.Hash
}

func (c *compute) calculation() *Calculation {
	return &Calculation{
		PreHash:    c.preHash,
		Difficulty: c.difficulty,
		Nonce:      c.nonce,
	}
}

// sign produces the author's signature over the calculation encoding. Signer
// and every verifier derive the identical bytes, so the signature binds the
// nonce to this exact pre-hash and difficulty.
func (c *compute) sign(signer ed25519.PrivateKey) ([SignatureLength]byte, error) {
	var signature [SignatureLength]byte
	payload, err := c.calculation().Encode()
	if err != nil {
		return signature, err
	}
	copy(signature[:], ed25519.Sign(signer, payload))
	return signature, nil
}

// verifySignature re-derives the calculation encoding and checks the seal
// signature against the claimed author key. An unencodable difficulty or a
// wrong-sized key simply fails the check.
func (c *compute) verifySignature(signature [SignatureLength]byte, author []byte) bool {
	if len(author) != ed25519.PublicKeySize {
		return false
	}
	payload, err := c.calculation().Encode()
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(author), payload, signature[:])
}

// compute runs calculation || signature through the memory-hard hash on the
// worker's bound execution context and assembles the resulting seal.
//
// For fixed {keyHash, preHash, difficulty, nonce, signature} the digest is
// identical on every call, on every worker, whatever the cache and VM reuse
// history. That contract is what lets the cache layer stay a pure performance
// concern.
func (pow *ArgonPow) compute(w *worker, c *compute, signature [SignatureLength]byte) (*SealV2, common.Hash, error) {
	vm, err := w.ensure(pow.caches, c.keyHash)
	if err != nil {
		return nil, common.Hash{}, err
	}
	payload, err := c.calculation().Encode()
	if err != nil {
		return nil, common.Hash{}, err
	}
	input := make([]byte, 0, CalculationLength+SignatureLength)
	input = append(input, payload...)
	input = append(input, signature[:]...)

	digest := vm.Hash(input)
	pow.hashrate.Mark(1)

	seal := &SealV2{
		Difficulty: c.difficulty,
		Nonce:      c.nonce,
		Signature:  signature,
	}
	return seal, digest, nil
}

// isValidDigest reports whether a digest satisfies the difficulty target:
// reading the digest as a 256-bit big-endian integer N, the seal is valid iff
// N * difficulty does not overflow 256 bits. The multiply is overflow-checked;
// silent wraparound would admit arbitrarily bad digests. Larger difficulties
// strictly shrink the admissible range.
func isValidDigest(digest common.Hash, difficulty *big.Int) bool {
	if difficulty == nil || difficulty.Sign() <= 0 {
		return false
	}
	d, overflow := uint256.FromBig(difficulty)
	if overflow {
		return false
	}
	n := new(uint256.Int).SetBytes(digest[:])
	_, overflow = new(uint256.Int).MulOverflow(n, d)
	return !overflow
}
