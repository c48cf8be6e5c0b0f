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

// Package argonpow implements the signed proof-of-work consensus core.
//
// A seal binds a memory-hard digest to the block author: the miner signs the
// {preHash, difficulty, nonce} calculation, feeds calculation plus signature
// through the keyed hash, and publishes {difficulty, nonce, signature}.
// Verifiers rebuild the exact same bytes, so a seal cannot be replayed under a
// different author, difficulty or pre-hash.
//
// The hash is re-keyed on a fixed block-height schedule (see epoch.go); the
// expensive per-key state is shared through a small bounded cache with
// per-worker affinity (see cache.go), which is strictly a performance layer:
// digests never depend on which cache or VM instance served a call.
package argonpow

import (
	"crypto/ed25519"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/louis-tru/kulupu/crypto/argonx"
)

// Algorithm identifiers, as reported by the runtime. The engine implements the
// v2 (signed seal) generation; v1 unsigned seals survive only as a decode path.
var (
	AlgorithmIdentifierV1 = [8]byte{'k', 'l', 'p', 'p', 'o', 'w', 'v', '1'}
	AlgorithmIdentifierV2 = [8]byte{'k', 'l', 'p', 'p', 'o', 'w', 'v', '2'}
)

var (
	// errAlgorithmMismatch is returned when the runtime reports an algorithm
	// generation this engine does not implement. This is an environment
	// mismatch, not a verdict about the seal.
	errAlgorithmMismatch = errors.New("algorithm identifier mismatch")

	// errInvalidDifficulty is returned when mining is asked to target a nil or
	// non-positive difficulty.
	errInvalidDifficulty = errors.New("difficulty must be a positive 256-bit integer")
)

// DifficultyProvider supplies the effective difficulty target for blocks built
// on a given parent. The chain rule lives outside this core; CalcDifficulty is
// the built-in default.
type DifficultyProvider interface {
	Difficulty(chain consensus.ChainHeaderReader, parent *types.Header) (*big.Int, error)
}

// AlgorithmProvider reports the active algorithm generation for blocks built
// on a given parent, letting the engine refuse to act across an upgrade
// boundary it does not implement.
type AlgorithmProvider interface {
	AlgorithmIdentifier(chain consensus.ChainHeaderReader, parent *types.Header) ([8]byte, error)
}

// Mode defines the operating mode of the engine.
type Mode uint

const (
	// ModeNormal uses the production hash parameters.
	ModeNormal Mode = iota

	// ModeTest uses small hash parameters so caches build in milliseconds.
	ModeTest

	// ModeFake accepts every seal and mines placeholder seals instantly.
	ModeFake
)

// Config are the configuration parameters of the engine.
type Config struct {
	// PowMode selects normal, test or fake operation.
	PowMode Mode

	// Hash overrides the memory-hard hash cost parameters. The zero value
	// selects the defaults for the chosen mode.
	Hash argonx.Config

	// Signer is the author key used for mining. Without it the engine still
	// verifies but abstains from every mining call.
	Signer ed25519.PrivateKey

	// Difficulty overrides the built-in LWMA difficulty rule.
	Difficulty DifficultyProvider

	// Algorithm, when set, is consulted before mining and verification; a
	// reported identifier other than AlgorithmIdentifierV2 makes the engine
	// refuse to act.
	Algorithm AlgorithmProvider
}

// ArgonPow is the signed memory-hard proof-of-work engine.
type ArgonPow struct {
	config Config

	caches  *cacheManager // shared per-epoch hash state, LRU bounded
	workers sync.Pool     // *worker, one per concurrent mine/verify call

	// verified memoizes full verification outcomes keyed by a digest of every
	// verify input. Purely an import-pipeline shortcut: compute is pure, so a
	// memoized answer is always the answer recomputation would give.
	verified *lru.Cache[common.Hash, bool]

	hashrate *metrics.Meter
}

// New creates an engine with the given configuration.
func New(config *Config) *ArgonPow {
	if config == nil {
		config = &Config{PowMode: ModeNormal}
	}
	hashConfig := config.Hash
	if hashConfig == (argonx.Config{}) {
		switch config.PowMode {
		case ModeNormal:
			hashConfig = argonx.DefaultConfig
		default:
			hashConfig = argonx.TestConfig
		}
	}
	engine := &ArgonPow{
		config:   *config,
		caches:   newCacheManager(hashConfig),
		verified: lru.NewCache[common.Hash, bool](512),
		hashrate: metrics.NewMeter(),
	}
	engine.workers.New = func() interface{} { return new(worker) }

	log.Info("Initialized argonpow engine", "mode", config.PowMode,
		"signer", config.Signer != nil, "cacheItems", hashConfig.CacheItems)
	return engine
}

// NewTester creates an engine with fast hash parameters and the given signer,
// suitable for unit and integration tests that really mine.
func NewTester(signer ed25519.PrivateKey) *ArgonPow {
	return New(&Config{PowMode: ModeTest, Signer: signer})
}

// NewFaker creates an engine that accepts every seal as valid and returns
// placeholder seals from mining, for tests of the surrounding machinery.
func NewFaker() *ArgonPow {
	return New(&Config{PowMode: ModeFake})
}

// Hashrate returns the measured rate of hash computations per second over the
// last minute, across both mining and verification.
func (pow *ArgonPow) Hashrate() float64 {
	return pow.hashrate.Snapshot().Rate1()
}

// CacheBuilds returns how many epoch caches have been constructed since the
// engine started. Intended for monitoring; a healthy node builds roughly one
// per epoch transition.
func (pow *ArgonPow) CacheBuilds() int64 {
	return pow.caches.Builds()
}

// Close releases the engine's resources. The epoch caches are plain Go memory
// reclaimed by the collector, so there is nothing to tear down explicitly.
func (pow *ArgonPow) Close() error {
	return nil
}

// checkAlgorithm queries the configured algorithm provider, if any, and fails
// unless the runtime reports the generation this engine implements.
func (pow *ArgonPow) checkAlgorithm(chain consensus.ChainHeaderReader, parent *types.Header) error {
	if pow.config.Algorithm == nil {
		return nil
	}
	id, err := pow.config.Algorithm.AlgorithmIdentifier(chain, parent)
	if err != nil {
		return err
	}
	if id != AlgorithmIdentifierV2 {
		return errAlgorithmMismatch
	}
	return nil
}

// Difficulty returns the difficulty target for a block built on parent, from
// the configured provider or the built-in LWMA rule.
func (pow *ArgonPow) Difficulty(chain consensus.ChainHeaderReader, parent *types.Header) (*big.Int, error) {
	if pow.config.Difficulty != nil {
		return pow.config.Difficulty.Difficulty(chain, parent)
	}
	return CalcDifficulty(chain, parent), nil
}
