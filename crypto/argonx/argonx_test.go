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

package argonx

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestHashDeterministic(t *testing.T) {
	key := common.HexToHash("0x01")
	input := []byte("argonx determinism probe")

	// Two independently built caches and VMs must agree bit for bit.
	vm1 := NewVM(NewCache(key, TestConfig))
	vm2 := NewVM(NewCache(key, TestConfig))

	h1 := vm1.Hash(input)
	h2 := vm2.Hash(input)
	if h1 != h2 {
		t.Fatalf("digest differs across cache instances: %x != %x", h1, h2)
	}

	// Two VMs over the same cache instance as well.
	vm3 := NewVM(vm1.Cache())
	if h3 := vm3.Hash(input); h3 != h1 {
		t.Fatalf("digest differs across VM instances: %x != %x", h3, h1)
	}
}

func TestHashIndependentOfVMHistory(t *testing.T) {
	cache := NewCache(common.HexToHash("0x02"), TestConfig)
	vm := NewVM(cache)

	first := vm.Hash([]byte("input-a"))
	vm.Hash([]byte("input-b"))
	vm.Hash([]byte("input-c"))

	if again := vm.Hash([]byte("input-a")); again != first {
		t.Fatalf("VM reuse changed digest: %x != %x", again, first)
	}
}

func TestHashKeySensitivity(t *testing.T) {
	input := []byte("same input, different keys")

	vm1 := NewVM(NewCache(common.HexToHash("0x03"), TestConfig))
	vm2 := NewVM(NewCache(common.HexToHash("0x04"), TestConfig))

	if vm1.Hash(input) == vm2.Hash(input) {
		t.Fatal("different keys produced identical digests")
	}
}

func TestHashInputSensitivity(t *testing.T) {
	vm := NewVM(NewCache(common.HexToHash("0x05"), TestConfig))

	a := vm.Hash([]byte{0x00})
	b := vm.Hash([]byte{0x01})
	if a == b {
		t.Fatal("different inputs produced identical digests")
	}
}

func TestCacheShape(t *testing.T) {
	key := common.HexToHash("0x06")
	cache := NewCache(key, TestConfig)

	if cache.Key() != key {
		t.Errorf("cache key = %x, want %x", cache.Key(), key)
	}
	if want := int(TestConfig.CacheItems) * itemLength; cache.Size() != want {
		t.Errorf("cache size = %d, want %d", cache.Size(), want)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg != DefaultConfig {
		t.Errorf("zero config = %+v, want %+v", cfg, DefaultConfig)
	}

	partial := Config{CacheItems: 1 << 10}.withDefaults()
	if partial.CacheItems != 1<<10 || partial.ArgonMemory != DefaultConfig.ArgonMemory {
		t.Errorf("partial config not backfilled: %+v", partial)
	}
}

func BenchmarkHash(b *testing.B) {
	vm := NewVM(NewCache(common.HexToHash("0x07"), TestConfig))
	input := make([]byte, 160)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vm.Hash(input)
	}
}
