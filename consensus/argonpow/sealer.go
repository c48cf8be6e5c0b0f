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
	"bytes"
	"crypto/ed25519"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	mrand "math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// Mine searches for a seal on top of parent for up to rounds nonce attempts
// and returns its wire encoding, or nil if the budget runs out. preHash is the
// hash of the block being sealed minus the seal itself; preDigest is the raw
// author public key the block announces.
//
// Mining abstains, returning (nil, nil) with a warning, when the engine has no
// signer key, the block has no author, or the announced author is not the
// configured signer. Those are scheduling conditions for the caller, not
// errors. The loop keeps no state across calls: retrying with a fresh preHash
// and difficulty on the next scheduling tick is entirely the caller's job.
func (pow *ArgonPow) Mine(chain consensus.ChainHeaderReader, parent *types.Header, preHash common.Hash, preDigest []byte, difficulty *big.Int, rounds uint32) ([]byte, error) {
	if pow.config.PowMode == ModeFake {
		seal := &SealV2{Difficulty: difficulty, Nonce: common.Hash{}}
		return seal.Encode()
	}
	if err := pow.checkAlgorithm(chain, parent); err != nil {
		return nil, err
	}

	signer := pow.config.Signer
	switch {
	case signer == nil:
		log.Warn("Author key not configured, not mining")
		return nil, nil
	case len(preDigest) != ed25519.PublicKeySize:
		log.Warn("Author key missing or malformed, not mining", "len", len(preDigest))
		return nil, nil
	case !bytes.Equal(preDigest, signer.Public().(ed25519.PublicKey)):
		log.Warn("Author key mismatch, not mining")
		return nil, nil
	}
	if difficulty == nil || difficulty.Sign() <= 0 {
		return nil, errInvalidDifficulty
	}

	// One nonce source per call, seeded once; concurrent miners never share it.
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("initialize mining rng: %w", err)
	}
	rng := mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))

	key, err := keyHash(chain, parent)
	if err != nil {
		return nil, err
	}

	w := pow.getWorker()
	failed := false
	defer func() { pow.putWorker(w, failed) }()

	for i := uint32(0); i < rounds; i++ {
		var nonce common.Hash
		rng.Read(nonce[:])

		attempt := &compute{
			keyHash:    key,
			preHash:    preHash,
			difficulty: difficulty,
			nonce:      nonce,
		}
		signature, err := attempt.sign(signer)
		if err != nil {
			return nil, err
		}
		seal, digest, err := pow.compute(w, attempt, signature)
		if err != nil {
			failed = true
			return nil, err
		}
		if isValidDigest(digest, difficulty) {
			log.Debug("Sealed proof-of-work", "rounds", i+1, "difficulty", difficulty, "digest", digest)
			return seal.Encode()
		}
	}
	return nil, nil
}
