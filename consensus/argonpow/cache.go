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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/log"
	"github.com/louis-tru/kulupu/crypto/argonx"
)

// maxCachedEpochs bounds the shared cache store. Two is the minimum that
// avoids thrashing across an epoch transition: the outgoing epoch's cache is
// still needed for blocks mined under it while the incoming epoch's cache is
// already mandatory.
const maxCachedEpochs = 2

// errCacheAffinity marks a worker whose VM binding disagrees with the key hash
// it just ensured. That is a bug in the affinity machinery, never a property
// of the input data, and must abort the offending worker rather than let it
// compute with the wrong key material.
var errCacheAffinity = errors.New("worker bound to wrong cache key")

// cacheManager is the process-wide store of per-epoch hash state. The index is
// guarded by a single critical section covering only lookup, insert and
// eviction; cache construction itself always runs unlocked, so one builder
// never stalls other workers' compute paths.
//
// Entries are pointers: eviction drops only the index reference, and a worker
// whose VM still holds the cache keeps it alive until the worker rebinds.
type cacheManager struct {
	mu      sync.Mutex
	entries lru.BasicLRU[common.Hash, *argonx.Cache]
	config  argonx.Config

	builds atomic.Int64
}

func newCacheManager(config argonx.Config) *cacheManager {
	return &cacheManager{
		entries: lru.NewBasicLRU[common.Hash, *argonx.Cache](maxCachedEpochs),
		config:  config,
	}
}

// get returns the cache for keyHash, building it if absent. A hit marks the
// entry most recently used; a miss builds outside the lock and re-checks
// before inserting, so two callers racing on the same key converge on one
// entry and the loser's build is discarded.
func (m *cacheManager) get(keyHash common.Hash) *argonx.Cache {
	m.mu.Lock()
	if cache, ok := m.entries.Get(keyHash); ok {
		m.mu.Unlock()
		return cache
	}
	m.mu.Unlock()

	log.Info("Epoch boundary reached, building new hash cache", "keyHash", keyHash)
	built := argonx.NewCache(keyHash, m.config)
	m.builds.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if cache, ok := m.entries.Get(keyHash); ok {
		// Lost the build race; keep the incumbent.
		return cache
	}
	m.entries.Add(keyHash, built)
	return built
}

// Builds returns how many caches have been constructed, including redundant
// builds lost to races. Observable cost signal for tests and monitoring.
func (m *cacheManager) Builds() int64 {
	return m.builds.Load()
}

// len returns the number of resident index entries.
func (m *cacheManager) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Len()
}

// worker owns one VM binding. It is a two-state machine, unbound or bound to
// a key hash, rebuilt lazily whenever the needed key changes. Bindings are
// never shared: the VM carries mutable scratch state, and sharing it would
// put a lock on every hash call. Exactly one goroutine drives a worker at a
// time; the engine hands workers out through a sync.Pool.
type worker struct {
	keyHash common.Hash
	vm      *argonx.VM
}

// ensure returns an execution context bound to keyHash, reusing the current
// binding when the key is unchanged. The rebind path fetches the shared cache
// (building it on first reference) and constructs a fresh VM, which is cheap
// next to cache construction. Affinity is purely a performance concern; a
// worker that missed every time would still compute identical digests.
func (w *worker) ensure(m *cacheManager, keyHash common.Hash) (*argonx.VM, error) {
	if w.vm == nil || w.keyHash != keyHash {
		cache := m.get(keyHash)
		w.keyHash = keyHash
		w.vm = argonx.NewVM(cache)
	}
	if bound := w.vm.Cache().Key(); bound != keyHash {
		return nil, fmt.Errorf("%w: bound %v, want %v", errCacheAffinity, bound, keyHash)
	}
	return w.vm, nil
}

// getWorker borrows a worker from the pool.
func (pow *ArgonPow) getWorker() *worker {
	return pow.workers.Get().(*worker)
}

// putWorker returns a worker to the pool unless it failed an invariant check,
// in which case it is discarded along with whatever state confused it.
func (pow *ArgonPow) putWorker(w *worker, failed bool) {
	if failed {
		return
	}
	pow.workers.Put(w)
}
