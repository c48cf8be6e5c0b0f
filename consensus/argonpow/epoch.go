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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
)

// Epoch schedule for re-keying the memory-hard hash.
const (
	// EpochPeriod is how many blocks share one key hash (~2.8 days).
	EpochPeriod = 4096

	// EpochOffset delays adoption of a new epoch's anchor for the first
	// EpochOffset blocks past a boundary (~2 hours). Every node keeps using
	// the previous anchor during that window, so the network never needs to
	// finish building the new epoch's cache at a single flip point.
	EpochOffset = 128
)

// keyBlockNumber returns the height of the anchor block whose hash keys the
// memory-hard hash for children of a parent at the given height.
//
// Examples:
//   - parent 4300: anchor 4096
//   - parent 4096: anchor 0 (still inside the adoption window)
//   - parent 100:  anchor 0 (chains younger than one period stay
//     genesis-anchored; there is no earlier epoch to fall back to)
func keyBlockNumber(parentNumber uint64) uint64 {
	key := parentNumber - parentNumber%EpochPeriod
	if parentNumber-key < EpochOffset {
		if key < EpochPeriod {
			return 0
		}
		key -= EpochPeriod
	}
	return key
}

// keyHash resolves the anchor block hash for children of parent by walking
// the parent chain back to the anchor height. The walk is O(EpochPeriod)
// header reads in the worst case, which is fine: epochs are long and the
// per-epoch hash state is cached, so resolution is far off the hot path.
func keyHash(chain consensus.ChainHeaderReader, parent *types.Header) (common.Hash, error) {
	target := keyBlockNumber(parent.Number.Uint64())

	current := parent
	for current.Number.Uint64() != target {
		number := current.Number.Uint64() - 1
		ancestor := chain.GetHeader(current.ParentHash, number)
		if ancestor == nil {
			return common.Hash{}, fmt.Errorf("%w: missing header %v at height %d",
				consensus.ErrUnknownAncestor, current.ParentHash, number)
		}
		current = ancestor
	}
	return current.Hash(), nil
}
