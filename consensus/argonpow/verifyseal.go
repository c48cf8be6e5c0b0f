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
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/crypto/sha3"
)

// Verify checks a seal attached to a block built on parent. preHash is the
// sealed block's hash minus the seal; preDigest is the raw author public key
// the block announces; difficulty is the target the chain rule demands for
// this block.
//
// Untrusted wire data fails closed: malformed seals and author keys yield
// (false, nil), never an error, so callers cannot mistake "invalid" for
// "unknown". Errors are reserved for environment failures, where no verdict
// about the seal exists.
func (pow *ArgonPow) Verify(chain consensus.ChainHeaderReader, parent *types.Header, preHash common.Hash, preDigest []byte, seal []byte, difficulty *big.Int) (bool, error) {
	if pow.config.PowMode == ModeFake {
		return true, nil
	}
	if err := pow.checkAlgorithm(chain, parent); err != nil {
		return false, err
	}

	key, err := keyHash(chain, parent)
	if err != nil {
		return false, err
	}

	memo := verifyMemoKey(key, preHash, preDigest, seal, difficulty)
	if valid, ok := pow.verified.Get(memo); ok {
		return valid, nil
	}

	valid, err := pow.verifySeal(key, preHash, preDigest, seal, difficulty)
	if err != nil {
		return false, err
	}
	pow.verified.Add(memo, valid)
	return valid, nil
}

// verifySeal is the full reconstruction-and-compare check. Five conditions
// gate the result independently; any one failing yields false with no partial
// credit:
//
//  1. the seal decodes,
//  2. an author key is present and well formed,
//  3. the signature verifies over {preHash, difficulty, nonce},
//  4. recomputing the seal from the verifier's own inputs reproduces the
//     decoded seal byte for byte (a valid signature attached to different
//     fields dies here, not in a field it happened to match), and
//  5. the recomputed digest meets the difficulty target.
func (pow *ArgonPow) verifySeal(keyHash, preHash common.Hash, preDigest []byte, sealBytes []byte, difficulty *big.Int) (bool, error) {
	seal, err := DecodeSealV2(sealBytes)
	if err != nil {
		return false, nil
	}
	if len(preDigest) != ed25519.PublicKeySize {
		return false, nil
	}

	c := &compute{
		keyHash:    keyHash,
		preHash:    preHash,
		difficulty: difficulty,
		nonce:      seal.Nonce,
	}
	if !c.verifySignature(seal.Signature, preDigest) {
		return false, nil
	}

	w := pow.getWorker()
	failed := false
	defer func() { pow.putWorker(w, failed) }()

	recomputed, digest, err := pow.compute(w, c, seal.Signature)
	if err != nil {
		failed = true
		return false, err
	}
	if !recomputed.equal(seal) {
		return false, nil
	}
	if !isValidDigest(digest, difficulty) {
		return false, nil
	}
	return true, nil
}

// verifyMemoKey digests every input that can influence a verification verdict.
// Two calls share a memo slot only when recomputation would be bit-identical.
// The variable-width fields are length-prefixed so no pair of inputs can alias
// another by shifting bytes across a field boundary.
func verifyMemoKey(keyHash, preHash common.Hash, preDigest []byte, seal []byte, difficulty *big.Int) common.Hash {
	var size [4]byte
	keccak := sha3.NewLegacyKeccak256()
	keccak.Write(keyHash[:])
	keccak.Write(preHash[:])

	binary.BigEndian.PutUint32(size[:], uint32(len(preDigest)))
	keccak.Write(size[:])
	keccak.Write(preDigest)

	binary.BigEndian.PutUint32(size[:], uint32(len(seal)))
	keccak.Write(size[:])
	keccak.Write(seal)

	if difficulty != nil {
		keccak.Write(difficulty.Bytes())
	}

	var key common.Hash
	keccak.Sum(key[:0])
	return key
}
