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

// Package argonx implements the keyed memory-hard hash used by the proof-of-work
// engine. The function is split into two pieces with very different costs: a
// Cache, which is expensive to build and depends only on a 32-byte key, and a
// VM, a lightweight execution context holding private scratch state that
// computes digests against one cache.
//
// For a fixed key, Hash is a pure function of its input: it does not matter
// which Cache instance or VM instance served the call. Callers are free to
// build, share and discard caches purely as a performance decision.
package argonx

import (
	"encoding/binary"
	"hash"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/sha3"
)

const (
	// HashLength is the size of a digest in bytes.
	HashLength = 32

	// itemLength is the size of one cache row in bytes.
	itemLength = 64

	// mixRounds is the number of cache rows folded into the mix per digest.
	mixRounds = 64

	// cacheMixPasses is the number of pseudorandom rewrite passes applied to
	// the cache after the initial sequential fill.
	cacheMixPasses = 3

	// cacheSalt keys the argon2 seed derivation; changing it changes every
	// digest the function can ever produce.
	cacheSalt = "argonx/cache/v2"
)

// Config holds the cost parameters of the hash. The zero value of any field
// falls back to the matching DefaultConfig value.
type Config struct {
	// CacheItems is the number of 64-byte rows in a cache. Must be a power
	// of two so row indexing stays a mask.
	CacheItems uint32

	// ArgonMemory is the argon2 working-set size in KiB used while deriving
	// the cache seed.
	ArgonMemory uint32

	// ArgonTime is the argon2 pass count.
	ArgonTime uint32
}

// DefaultConfig are the production parameters: a 16 MiB row set seeded through
// a 64 MiB argon2 derivation.
var DefaultConfig = Config{
	CacheItems:  1 << 18,
	ArgonMemory: 64 * 1024,
	ArgonTime:   1,
}

// TestConfig keeps cache construction in the low-millisecond range so unit
// tests can rebuild caches freely.
var TestConfig = Config{
	CacheItems:  1 << 10,
	ArgonMemory: 64,
	ArgonTime:   1,
}

func (c Config) withDefaults() Config {
	if c.CacheItems == 0 {
		c.CacheItems = DefaultConfig.CacheItems
	}
	if c.ArgonMemory == 0 {
		c.ArgonMemory = DefaultConfig.ArgonMemory
	}
	if c.ArgonTime == 0 {
		c.ArgonTime = DefaultConfig.ArgonTime
	}
	return c
}

// Cache is the expensive per-key state. It is immutable once built, so any
// number of VMs may read it concurrently. A VM holding a cache keeps it alive
// after the owner has dropped its own reference.
type Cache struct {
	key   common.Hash
	items []byte
	mask  uint32
	seed  [HashLength]byte
}

// NewCache builds the row set for the given key. This is the costly operation
// the engine amortizes: an argon2id seed derivation followed by a Keccak-512
// chain fill and several pseudorandom rewrite passes over the whole set.
func NewCache(key common.Hash, config Config) *Cache {
	config = config.withDefaults()

	start := time.Now()
	n := config.CacheItems
	items := make([]byte, int(n)*itemLength)

	seed := argon2.IDKey(key[:], []byte(cacheSalt), config.ArgonTime, config.ArgonMemory, 1, itemLength)

	// Sequential fill: row i is the Keccak-512 of row i-1.
	keccak512 := sha3.NewLegacyKeccak512()
	keccak512.Write(seed)
	keccak512.Sum(items[:0])
	for i := uint32(1); i < n; i++ {
		keccak512.Reset()
		keccak512.Write(items[(i-1)*itemLength : i*itemLength])
		keccak512.Sum(items[i*itemLength : i*itemLength])
	}

	// Rewrite passes in the style of Lerner's RandMemoHash: each row is
	// replaced by the Keccak-512 of a predecessor row XOR a pseudorandomly
	// chosen partner row, forcing the whole set to stay resident.
	tmp := make([]byte, itemLength)
	for pass := 0; pass < cacheMixPasses; pass++ {
		for i := uint32(0); i < n; i++ {
			var (
				srcOff = ((i + n - 1) % n) * itemLength
				xorOff = (binary.LittleEndian.Uint32(items[i*itemLength:]) % n) * itemLength
			)
			for j := 0; j < itemLength; j++ {
				tmp[j] = items[srcOff+uint32(j)] ^ items[xorOff+uint32(j)]
			}
			keccak512.Reset()
			keccak512.Write(tmp)
			keccak512.Sum(items[i*itemLength : i*itemLength])
		}
	}

	c := &Cache{key: key, items: items, mask: n - 1}

	// The per-digest mix is seeded from the key and the boundary rows, so a
	// corrupted row set cannot silently produce the unkeyed function.
	keccak256 := sha3.NewLegacyKeccak256()
	keccak256.Write(key[:])
	keccak256.Write(items[:itemLength])
	keccak256.Write(items[len(items)-itemLength:])
	keccak256.Sum(c.seed[:0])

	log.Debug("Generated argonx cache", "key", key, "items", n,
		"elapsed", common.PrettyDuration(time.Since(start)))
	return c
}

// Key returns the key the cache was built from.
func (c *Cache) Key() common.Hash {
	return c.key
}

// Size returns the size of the row set in bytes.
func (c *Cache) Size() int {
	return len(c.items)
}

// VM is a per-worker execution context bound to one cache. It carries mutable
// scratch state, so a VM must never be used from two goroutines at once;
// construct one per worker instead, which is cheap next to building the cache.
type VM struct {
	cache     *Cache
	keccak512 hash.Hash
	keccak256 hash.Hash
	mix       [itemLength]byte
}

// NewVM creates an execution context reading from the given cache.
func NewVM(cache *Cache) *VM {
	return &VM{
		cache:     cache,
		keccak512: sha3.NewLegacyKeccak512(),
		keccak256: sha3.NewLegacyKeccak256(),
	}
}

// Cache returns the cache the VM computes against.
func (vm *VM) Cache() *Cache {
	return vm.cache
}

// Hash computes the digest of input under the cache's key. The scratch mix is
// fully overwritten at the start of every call, so digests are independent of
// anything the VM computed before.
func (vm *VM) Hash(input []byte) common.Hash {
	c := vm.cache

	vm.keccak512.Reset()
	vm.keccak512.Write(c.seed[:])
	vm.keccak512.Write(input)
	vm.keccak512.Sum(vm.mix[:0])

	for round := 0; round < mixRounds; round++ {
		off := (binary.LittleEndian.Uint32(vm.mix[:4]) & c.mask) * itemLength
		row := c.items[off : off+itemLength]
		for j := 0; j < itemLength; j++ {
			vm.mix[j] ^= row[j]
		}
		vm.keccak512.Reset()
		vm.keccak512.Write(vm.mix[:])
		vm.keccak512.Sum(vm.mix[:0])
	}

	var digest common.Hash
	vm.keccak256.Reset()
	vm.keccak256.Write(vm.mix[:])
	vm.keccak256.Sum(digest[:0])
	return digest
}
