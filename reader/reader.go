// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/rprof-dev/rprof/internal/logging"
	"github.com/rprof-dev/rprof/procutil"
	"github.com/rprof-dev/rprof/store"
	"github.com/rprof-dev/rprof/symbolize"
)

// Config configures one recording session.
type Config struct {
	PID                int
	CheckpointInterval time.Duration // default 1s
	Duration           time.Duration // 0 means unbounded
	PollInterval       time.Duration // default 10ms
}

// Reader owns the attached SSR, the resolver for the target's symbols,
// and the store it feeds. One Reader corresponds to one recording
// session against one target pid.
type Reader struct {
	cfg      Config
	target   *procutil.Target
	ssr      *SSR
	resolver *symbolize.Resolver
	store    *store.Store
	log      *logging.Logger

	prevCumulative map[uint64]cumulative
}

// New attaches to pid's executable and prepares a Reader to record into
// st. It does not touch the Shared Stats Region: poll attaches to it on
// the first tick at which it exists and retries on every tick until then,
// since the recorder may not have touched the allocator yet.
func New(cfg Config, st *store.Store, log *logging.Logger) (*Reader, error) {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if log == nil {
		log = logging.Discard()
	}

	target, err := procutil.Attach(cfg.PID)
	if err != nil {
		return nil, fmt.Errorf("attaching to pid %d: %w", cfg.PID, err)
	}

	resolver, err := symbolize.NewResolver(target.ProcExePath(), target.PID)
	if err != nil {
		return nil, fmt.Errorf("preparing symbolizer for pid %d: %w", cfg.PID, err)
	}

	return &Reader{
		cfg:            cfg,
		target:         target,
		resolver:       resolver,
		store:          st,
		log:            log,
		prevCumulative: make(map[uint64]cumulative),
	}, nil
}

// Run executes the snapshot loop until ctx is cancelled or cfg.Duration
// elapses, flushing a checkpoint on every interval boundary and once more
// on exit.
func (r *Reader) Run(ctx context.Context) error {
	defer func() {
		if r.ssr != nil {
			r.ssr.Close()
		}
	}()

	start := time.Now()
	lastFlush := start
	pollTicker := time.NewTicker(r.cfg.PollInterval)
	defer pollTicker.Stop()

	var deadline <-chan time.Time
	if r.cfg.Duration > 0 {
		timer := time.NewTimer(r.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return r.finalFlush(start)
		case <-deadline:
			return r.finalFlush(start)
		case <-pollTicker.C:
			r.poll()
			if time.Since(lastFlush) >= r.cfg.CheckpointInterval {
				if _, err := r.store.FlushCheckpoint(time.Since(start).Milliseconds()); err != nil {
					return fmt.Errorf("flushing checkpoint: %w", err)
				}
				lastFlush = time.Now()
			}
		}
	}
}

func (r *Reader) finalFlush(start time.Time) error {
	r.poll()
	if _, err := r.store.FlushCheckpoint(time.Since(start).Milliseconds()); err != nil {
		return fmt.Errorf("flushing final checkpoint: %w", err)
	}
	return nil
}

// poll does one iteration of snapshot → delta → resolve → record. SSR
// attachment failures are logged and retried on the next tick rather than
// treated as fatal, since the recorder may simply not have touched the
// allocator (or armed the timer) yet.
func (r *Reader) poll() {
	if r.ssr == nil {
		ssr, err := Attach()
		if err != nil {
			r.log.Debug().Err(err).Log("shared stats region not yet available")
			return
		}
		r.ssr = ssr
		r.log.Info().Uint64("recorder_pid", uint64(ssr.PID())).Log("attached to shared stats region")
	}

	snapshot := r.ssr.Snapshot()
	deltas := computeDeltas(snapshot, r.prevCumulative)
	r.prevCumulative = updateCumulative(snapshot)

	type agg struct {
		cpu  uint64
		heap struct{ allocBytes, freeBytes, liveBytes, allocCount, freeCount uint64 }
	}
	perLocation := make(map[store.Location]*agg)

	for _, d := range deltas {
		loc := r.resolveRepresentative(d.slot)
		if loc.File == "[unknown]" {
			continue
		}
		sloc := store.Location{File: loc.File, Line: loc.Line, Function: loc.Function}
		a, ok := perLocation[sloc]
		if !ok {
			a = &agg{}
			perLocation[sloc] = a
		}
		a.cpu += d.cpuSampleDelta
		a.heap.allocBytes += d.allocBytesDelta
		a.heap.freeBytes += d.freeBytesDelta
		live := uint64(0)
		if d.slot.AllocBytes > d.slot.FreeBytes {
			live = d.slot.AllocBytes - d.slot.FreeBytes
		}
		a.heap.liveBytes += live
		a.heap.allocCount += d.allocCountDelta
		a.heap.freeCount += d.freeCountDelta
	}

	for loc, a := range perLocation {
		if a.cpu > 0 {
			r.store.RecordCPUSample(loc, a.cpu)
		}
		h := a.heap
		if h.allocBytes > 0 || h.freeBytes > 0 || h.liveBytes > 0 || h.allocCount > 0 || h.freeCount > 0 {
			r.store.RecordHeapSample(loc, h.allocBytes, h.freeBytes, h.liveBytes, h.allocCount, h.freeCount)
		}
	}
}

// resolveRepresentative symbolizes every return address in a call site's
// representative stack and picks the one frame the sample should be
// attributed to.
func (r *Reader) resolveRepresentative(slot CallsiteSlot) symbolize.Location {
	depth := int(slot.StackDepth)
	if depth > len(slot.Stack) {
		depth = len(slot.Stack)
	}
	frames := make([]symbolize.StackFrame, 0, depth)
	for i := 0; i < depth; i++ {
		addr := slot.Stack[i]
		loc := r.resolver.ResolveCached(addr)
		frames = append(frames, symbolize.StackFrame{Addr: addr, Function: loc.Function, File: loc.File})
	}
	frame, ok := symbolize.SelectUserFrame(frames)
	if !ok {
		return symbolize.Unknown()
	}
	return r.resolver.ResolveCached(frame.Addr)
}
