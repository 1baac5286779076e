// Copyright 2015 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package metric

import (
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
)

// Histogram is a windowed HDR histogram: samples recorded during the
// current window are what quantile queries answer against; the window
// rotates every d, discarding the oldest data. The replicator's
// REDO_REPL_DELAY and REDO_REPL_LOG_REDO_SYNC values do not go here:
// Registry.SetStat stores each of them in a Gauge.
type Histogram struct {
	mu     sync.Mutex
	wnd    *hdrhistogram.WindowedHistogram
	d      time.Duration
	last   time.Time
	maxVal int64
}

// NewHistogram creates a windowed histogram recording values in
// [0, maxVal] with sigFigs significant decimal digits of precision,
// rotating its window every d.
func NewHistogram(d time.Duration, maxVal int64, sigFigs int) *Histogram {
	return &Histogram{
		wnd:    hdrhistogram.NewWindowed(2, 0, maxVal, sigFigs),
		d:      d,
		last:   time.Time{},
		maxVal: maxVal,
	}
}

// RecordValue records v, clamping to the configured max, and rotates
// the window if d has elapsed since the last rotation.
func (h *Histogram) RecordValue(v int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maybeRotateLocked(time.Now())
	if v > h.maxVal {
		v = h.maxVal
	}
	if v < 0 {
		v = 0
	}
	_ = h.wnd.Current.RecordValue(v)
}

func (h *Histogram) maybeRotateLocked(now time.Time) {
	if h.last.IsZero() {
		h.last = now
		return
	}
	if now.Sub(h.last) >= h.d {
		h.wnd.Rotate()
		h.last = now
	}
}

// Current returns a merged snapshot of the histogram's current window.
func (h *Histogram) Current() *hdrhistogram.Histogram {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.wnd.Merge()
}

// Each implements Iterable, reporting a handful of standard quantiles.
func (h *Histogram) Each(f func(string, interface{})) {
	cur := h.Current()
	f("-max", cur.Max())
	f("-p50", cur.ValueAtQuantile(50))
	f("-p99", cur.ValueAtQuantile(99))
	f("-count", cur.TotalCount())
}

// Histograms is the set of windowed histograms Registry.Latency
// creates in bulk, one per DefaultTimeScales entry.
type Histograms map[TimeScale]*Histogram

// RecordValue records v into every window.
func (hs Histograms) RecordValue(v int64) {
	for _, h := range hs {
		h.RecordValue(v)
	}
}
