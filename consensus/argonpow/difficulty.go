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

// LWMA (linearly weighted moving average) difficulty rule, the built-in
// DifficultyProvider. The chain is free to supply its own rule through
// Config.Difficulty; the engine itself only consumes the resulting target.

package argonpow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	// lwmaWindowSize is the number of trailing solve times averaged over.
	lwmaWindowSize = 60

	// lwmaTargetBlockTime is the target block interval in seconds.
	lwmaTargetBlockTime = 60

	// lwmaMinDifficulty is the difficulty floor and the bootstrap value while
	// the chain is shorter than one window.
	lwmaMinDifficulty = 4096

	// lwmaMaxAdjustment clamps the per-block change to 2x in either
	// direction, limiting what a hashrate burst can move in one step.
	lwmaMaxAdjustment = 2

	// lwmaSolveTimeClamp caps one solve time's contribution, so a single
	// stalled block cannot crater the whole window.
	lwmaSolveTimeClamp = 10 * lwmaTargetBlockTime
)

// CalcDifficulty computes the difficulty target for a block built on parent:
// recent solve times are weighted linearly toward the newest blocks, then the
// window-average difficulty is scaled by target time over the weighted
// average solve time.
func CalcDifficulty(chain consensus.ChainHeaderReader, parent *types.Header) *big.Int {
	if parent.Number.Uint64() < lwmaWindowSize {
		return big.NewInt(lwmaMinDifficulty)
	}

	var (
		blockTimes   [lwmaWindowSize]uint64
		difficulties [lwmaWindowSize]*big.Int
		current      = parent
	)
	for i := lwmaWindowSize - 1; i >= 0; i-- {
		if current == nil || current.Number.Sign() == 0 {
			return big.NewInt(lwmaMinDifficulty)
		}
		blockTimes[i] = current.Time
		difficulties[i] = current.Difficulty
		if i > 0 {
			current = chain.GetHeader(current.ParentHash, current.Number.Uint64()-1)
		}
	}

	var (
		weightedSolveTimeSum = new(big.Int)
		weightSum            = new(big.Int)
		difficultySum        = new(big.Int)
	)
	for i := 0; i < lwmaWindowSize-1; i++ {
		solveTime := int64(1)
		if blockTimes[i+1] > blockTimes[i] {
			solveTime = int64(blockTimes[i+1] - blockTimes[i])
		}
		if solveTime > lwmaSolveTimeClamp {
			solveTime = lwmaSolveTimeClamp
		}

		weight := big.NewInt(int64(i + 1))
		weightedSolveTimeSum.Add(weightedSolveTimeSum, new(big.Int).Mul(big.NewInt(solveTime), weight))
		weightSum.Add(weightSum, weight)
		difficultySum.Add(difficultySum, difficulties[i])
	}

	// next = avgDifficulty * targetTime / weightedAvgSolveTime, kept as a
	// single rational so integer truncation happens once.
	next := new(big.Int).Div(difficultySum, big.NewInt(lwmaWindowSize-1))
	next.Mul(next, big.NewInt(lwmaTargetBlockTime))
	next.Mul(next, weightSum)
	next.Div(next, weightedSolveTimeSum)

	if ceil := new(big.Int).Mul(parent.Difficulty, big.NewInt(lwmaMaxAdjustment)); next.Cmp(ceil) > 0 {
		next.Set(ceil)
	}
	if floor := new(big.Int).Div(parent.Difficulty, big.NewInt(lwmaMaxAdjustment)); next.Cmp(floor) < 0 {
		next.Set(floor)
	}
	if next.Cmp(big.NewInt(lwmaMinDifficulty)) < 0 {
		next.SetInt64(lwmaMinDifficulty)
	}
	return next
}
