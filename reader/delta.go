// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reader

// cumulative caches a call-site's last-observed cumulative counters,
// keyed by stack hash (a call-site's hash never changes once assigned, so
// it's a stable key across snapshots).
type cumulative struct {
	cpuSamples            uint64
	allocBytes, freeBytes uint64
	allocCount, freeCount uint64
}

// delta is a per-slot record of what changed since the previous snapshot.
// Every counter in the SSR is monotonic within one recorder lifetime, so a
// per-interval value is derived by subtracting the cached previous total;
// live_bytes is the exception, a gauge rather than a counter, so it's
// taken as-is from the slot.
type delta struct {
	slot           CallsiteSlot
	cpuSampleDelta uint64
	allocBytesDelta, freeBytesDelta uint64
	allocCountDelta, freeCountDelta uint64
}

// monotonicDelta subtracts prev from curr, treating curr < prev as the SSR
// having been recreated underneath the reader (the target restarted) and
// taking curr itself as the delta rather than underflowing.
func monotonicDelta(curr, prev uint64) uint64 {
	if curr >= prev {
		return curr - prev
	}
	return curr
}

// computeDeltas pairs the current snapshot against a cache of previously
// observed cumulative counters. Newly observed slots get their full
// cumulative counts as the delta (nothing to subtract yet).
func computeDeltas(curr []CallsiteSlot, prev map[uint64]cumulative) []delta {
	out := make([]delta, 0, len(curr))
	for _, slot := range curr {
		p := prev[slot.Hash]
		out = append(out, delta{
			slot:            slot,
			cpuSampleDelta:  monotonicDelta(slot.CPUSamples, p.cpuSamples),
			allocBytesDelta: monotonicDelta(slot.AllocBytes, p.allocBytes),
			freeBytesDelta:  monotonicDelta(slot.FreeBytes, p.freeBytes),
			allocCountDelta: monotonicDelta(slot.AllocCount, p.allocCount),
			freeCountDelta:  monotonicDelta(slot.FreeCount, p.freeCount),
		})
	}
	return out
}

// updateCumulative replaces the cached cumulative counters with the
// current snapshot's, ready for the next interval's delta computation.
func updateCumulative(curr []CallsiteSlot) map[uint64]cumulative {
	next := make(map[uint64]cumulative, len(curr))
	for _, slot := range curr {
		next[slot.Hash] = cumulative{
			cpuSamples: slot.CPUSamples,
			allocBytes: slot.AllocBytes,
			freeBytes:  slot.FreeBytes,
			allocCount: slot.AllocCount,
			freeCount:  slot.FreeCount,
		}
	}
	return next
}
