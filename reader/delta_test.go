// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDeltasFirstObservation(t *testing.T) {
	curr := []CallsiteSlot{
		{Hash: 1, CPUSamples: 10, AllocBytes: 4096, FreeBytes: 0, AllocCount: 4, FreeCount: 0},
	}
	deltas := computeDeltas(curr, map[uint64]cumulative{})
	assert.Len(t, deltas, 1)
	assert.Equal(t, uint64(10), deltas[0].cpuSampleDelta)
	assert.Equal(t, uint64(4096), deltas[0].allocBytesDelta)
	assert.Equal(t, uint64(4), deltas[0].allocCountDelta)
}

func TestComputeDeltasSubtractsPrevious(t *testing.T) {
	prev := map[uint64]cumulative{
		1: {cpuSamples: 10, allocBytes: 4096, allocCount: 4},
	}
	curr := []CallsiteSlot{
		{Hash: 1, CPUSamples: 17, AllocBytes: 8192, FreeBytes: 2048, AllocCount: 6, FreeCount: 1},
	}
	deltas := computeDeltas(curr, prev)
	assert.Equal(t, uint64(7), deltas[0].cpuSampleDelta)
	assert.Equal(t, uint64(4096), deltas[0].allocBytesDelta)
	assert.Equal(t, uint64(2048), deltas[0].freeBytesDelta)
	assert.Equal(t, uint64(2), deltas[0].allocCountDelta)
	assert.Equal(t, uint64(1), deltas[0].freeCountDelta)
}

func TestComputeDeltasHandlesCounterRegression(t *testing.T) {
	// A lower cumulative value than previously cached means the SSR was
	// recreated underneath the reader (the target restarted); the new
	// cumulative value is taken as the delta rather than underflowing.
	prev := map[uint64]cumulative{
		1: {cpuSamples: 1000, allocBytes: 1 << 20},
	}
	curr := []CallsiteSlot{
		{Hash: 1, CPUSamples: 3, AllocBytes: 512},
	}
	deltas := computeDeltas(curr, prev)
	assert.Equal(t, uint64(3), deltas[0].cpuSampleDelta)
	assert.Equal(t, uint64(512), deltas[0].allocBytesDelta)
}

func TestUpdateCumulativeRoundTrip(t *testing.T) {
	curr := []CallsiteSlot{
		{Hash: 42, CPUSamples: 5, AllocBytes: 100, FreeBytes: 50, AllocCount: 2, FreeCount: 1},
	}
	next := updateCumulative(curr)
	assert.Equal(t, cumulative{cpuSamples: 5, allocBytes: 100, freeBytes: 50, allocCount: 2, freeCount: 1}, next[42])

	deltas := computeDeltas(curr, next)
	assert.Zero(t, deltas[0].cpuSampleDelta)
	assert.Zero(t, deltas[0].allocBytesDelta)
}
