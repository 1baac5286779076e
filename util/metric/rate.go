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
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Rate is an exponentially weighted moving average over the given
// timescale, ticked every five seconds by a background goroutine (as
// go-metrics' EWMA implementations expect).
type Rate struct {
	ewma gometrics.EWMA
	stop chan struct{}
}

// NewRate creates a Rate over the given timescale and starts its
// background ticker.
func NewRate(timescale time.Duration) *Rate {
	var ewma gometrics.EWMA
	switch {
	case timescale <= time.Minute:
		ewma = gometrics.NewEWMA1()
	case timescale <= 5*time.Minute:
		ewma = gometrics.NewEWMA5()
	default:
		ewma = gometrics.NewEWMA15()
	}
	r := &Rate{ewma: ewma, stop: make(chan struct{})}
	go r.tickLoop()
	return r
}

func (r *Rate) tickLoop() {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			r.ewma.Tick()
		case <-r.stop:
			return
		}
	}
}

// Add records n events for the rate calculation.
func (r *Rate) Add(n int64) { r.ewma.Update(n) }

// Value returns the current rate, in events/second.
func (r *Rate) Value() float64 { return r.ewma.Rate() }

// Stop halts the background ticker.
func (r *Rate) Stop() { close(r.stop) }

// Each implements Iterable.
func (r *Rate) Each(f func(string, interface{})) { f("", r.Value()) }

// Rates bundles a cumulative Counter with a set of EWMA-based Rates
// over DefaultTimeScales, as produced by Registry.Rates.
type Rates struct {
	Counter *Counter
	Rates   map[TimeScale]*Rate
}

// Add records n events into the counter and every rate window.
func (rs Rates) Add(n int64) {
	rs.Counter.Inc(n)
	for _, r := range rs.Rates {
		r.Add(n)
	}
}
