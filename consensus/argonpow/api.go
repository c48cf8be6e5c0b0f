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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/rpc"
)

var errNoCurrentHeader = errors.New("current header not available yet")

// API exposes proof-of-work related methods for the RPC interface.
type API struct {
	pow   *ArgonPow
	chain consensus.ChainHeaderReader
}

// GetHashrate returns the measured rate of hash computations per second.
func (api *API) GetHashrate() uint64 {
	return uint64(api.pow.Hashrate())
}

// GetKeyHash returns the epoch key hash a block mined on the current head
// would use. External miners can call this to start building the matching
// hash cache before their next work package arrives.
func (api *API) GetKeyHash() (common.Hash, error) {
	head := api.chain.CurrentHeader()
	if head == nil {
		return common.Hash{}, errNoCurrentHeader
	}
	return keyHash(api.chain, head)
}

// GetCacheBuilds returns how many epoch caches the engine has constructed.
func (api *API) GetCacheBuilds() int64 {
	return api.pow.CacheBuilds()
}

// APIs returns the RPC APIs this consensus engine provides.
func (pow *ArgonPow) APIs(chain consensus.ChainHeaderReader) []rpc.API {
	return []rpc.API{
		{
			Namespace: "kulupu",
			Service:   &API{pow: pow, chain: chain},
			Public:    true,
		},
	}
}
