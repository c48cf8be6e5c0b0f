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
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestMineAbstains(t *testing.T) {
	public, private := testKey(t, 6)
	otherPublic, _ := testKey(t, 7)
	chain := newMockChain(8, 1000, 60)
	parent := chain.CurrentHeader()
	difficulty := big.NewInt(1)

	// No signer configured.
	unsigned := NewTester(nil)
	defer unsigned.Close()
	seal, err := unsigned.Mine(chain, parent, common.Hash{}, public, difficulty, 10)
	if seal != nil || err != nil {
		t.Errorf("signerless mine = (%v, %v), want (nil, nil)", seal, err)
	}

	engine := NewTester(private)
	defer engine.Close()

	// Block announces no author.
	seal, err = engine.Mine(chain, parent, common.Hash{}, nil, difficulty, 10)
	if seal != nil || err != nil {
		t.Errorf("authorless mine = (%v, %v), want (nil, nil)", seal, err)
	}

	// Malformed author key.
	seal, err = engine.Mine(chain, parent, common.Hash{}, public[:16], difficulty, 10)
	if seal != nil || err != nil {
		t.Errorf("short-author mine = (%v, %v), want (nil, nil)", seal, err)
	}

	// Announced author is someone else.
	seal, err = engine.Mine(chain, parent, common.Hash{}, otherPublic, difficulty, 10)
	if seal != nil || err != nil {
		t.Errorf("foreign-author mine = (%v, %v), want (nil, nil)", seal, err)
	}

	// Abstention never touches the epoch caches.
	if got := engine.CacheBuilds(); got != 0 {
		t.Errorf("cache builds after abstentions = %d, want 0", got)
	}
}

func TestMineInvalidDifficulty(t *testing.T) {
	public, private := testKey(t, 8)
	chain := newMockChain(8, 1000, 60)
	engine := NewTester(private)
	defer engine.Close()

	for _, difficulty := range []*big.Int{nil, new(big.Int), big.NewInt(-1)} {
		_, err := engine.Mine(chain, chain.CurrentHeader(), common.Hash{}, public, difficulty, 10)
		if !errors.Is(err, errInvalidDifficulty) {
			t.Errorf("mine at difficulty %v: err = %v, want errInvalidDifficulty", difficulty, err)
		}
	}
}

func TestMineZeroRounds(t *testing.T) {
	public, private := testKey(t, 9)
	chain := newMockChain(8, 1000, 60)
	engine := NewTester(private)
	defer engine.Close()

	seal, err := engine.Mine(chain, chain.CurrentHeader(), common.Hash{}, public, big.NewInt(1), 0)
	if seal != nil || err != nil {
		t.Errorf("zero-round mine = (%v, %v), want (nil, nil)", seal, err)
	}
}

func TestMineAndVerify(t *testing.T) {
	public, private := testKey(t, 10)
	chain := newMockChain(12, 1000, 60)
	parent := chain.CurrentHeader()
	preHash := common.HexToHash("0x1234")
	difficulty := big.NewInt(4)

	engine := NewTester(private)
	defer engine.Close()

	// Difficulty 4 accepts a quarter of all digests, so a few hundred rounds
	// fail with negligible probability.
	var seal []byte
	for attempt := 0; attempt < 8 && seal == nil; attempt++ {
		var err error
		seal, err = engine.Mine(chain, parent, preHash, public, difficulty, 256)
		if err != nil {
			t.Fatalf("mine: %v", err)
		}
	}
	if seal == nil {
		t.Fatal("mining found no seal")
	}
	if engine.CacheBuilds() == 0 {
		t.Error("mining built no epoch cache")
	}

	valid, err := engine.Verify(chain, parent, preHash, public, seal, difficulty)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid {
		t.Fatal("mined seal does not verify")
	}

	// The memoized second pass agrees.
	valid, err = engine.Verify(chain, parent, preHash, public, seal, difficulty)
	if err != nil || !valid {
		t.Fatalf("memoized verify = (%v, %v), want (true, nil)", valid, err)
	}

	// A separate engine with no signer verifies the same seal.
	checker := NewTester(nil)
	defer checker.Close()
	valid, err = checker.Verify(chain, parent, preHash, public, seal, difficulty)
	if err != nil || !valid {
		t.Fatalf("independent verify = (%v, %v), want (true, nil)", valid, err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	public, private := testKey(t, 11)
	otherPublic, _ := testKey(t, 12)
	chain := newMockChain(12, 1000, 60)
	parent := chain.CurrentHeader()
	preHash := common.HexToHash("0x5678")
	difficulty := big.NewInt(1)

	engine := NewTester(private)
	defer engine.Close()

	sealBytes, err := engine.Mine(chain, parent, preHash, public, difficulty, 4)
	if err != nil || sealBytes == nil {
		t.Fatalf("mine at difficulty 1 = (%v, %v)", sealBytes, err)
	}

	reject := func(name string, preDigest, seal []byte, d *big.Int) {
		t.Helper()
		valid, err := engine.Verify(chain, parent, preHash, preDigest, seal, d)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if valid {
			t.Errorf("%s: tampered seal verified", name)
		}
	}

	// Raised difficulty claim inside the seal.
	decoded, err := DecodeSealV2(sealBytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decoded.Difficulty = big.NewInt(2)
	raised, err := decoded.Encode()
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	reject("difficulty rewrite", public, raised, difficulty)

	// Corrupted signature.
	flipped := append([]byte(nil), sealBytes...)
	flipped[SealV2Length-1] ^= 1
	reject("signature flip", public, flipped, difficulty)

	// Corrupted nonce.
	shifted := append([]byte(nil), sealBytes...)
	shifted[DifficultyLength] ^= 1
	reject("nonce flip", public, shifted, difficulty)

	// Malformed seals.
	reject("truncated seal", public, sealBytes[:SealV2Length-1], difficulty)
	reject("empty seal", public, nil, difficulty)

	// Author substitution and absence.
	reject("foreign author", otherPublic, sealBytes, difficulty)
	reject("missing author", nil, sealBytes, difficulty)
	reject("short author", public[:16], sealBytes, difficulty)

	// Different sealed content.
	valid, err := engine.Verify(chain, parent, common.HexToHash("0x9abc"), public, sealBytes, difficulty)
	if err != nil {
		t.Fatalf("pre-hash substitution: %v", err)
	}
	if valid {
		t.Error("seal verified against a different pre-hash")
	}
}

func TestVerifyDifficultyPredicate(t *testing.T) {
	public, private := testKey(t, 13)
	chain := newMockChain(8, 1000, 60)
	parent := chain.CurrentHeader()
	preHash := common.HexToHash("0xdef0")

	engine := NewTester(private)
	defer engine.Close()

	// Build a correctly signed, correctly computed seal at a difficulty so
	// large that the digest cannot meet it. Every gate before the difficulty
	// predicate passes; only the predicate fails.
	difficulty := new(big.Int).Lsh(big.NewInt(1), 255)
	key, err := keyHash(chain, parent)
	if err != nil {
		t.Fatalf("key hash: %v", err)
	}
	c := &compute{
		keyHash:    key,
		preHash:    preHash,
		difficulty: difficulty,
		nonce:      common.HexToHash("0x07"),
	}
	signature, err := c.sign(private)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	w := engine.getWorker()
	seal, digest, err := engine.compute(w, c, signature)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	engine.putWorker(w, false)
	if isValidDigest(digest, difficulty) {
		t.Skip("digest accidentally met a 2^255 difficulty")
	}

	encoded, err := seal.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	valid, err := engine.Verify(chain, parent, preHash, public, encoded, difficulty)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if valid {
		t.Error("seal passed verification on predicate failure alone")
	}
}
