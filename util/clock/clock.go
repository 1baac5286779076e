// Copyright 2014 The Cockroach Authors.
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
// permissions and limitations under the License. See the AUTHORS file
// for names of contributors.

// Package clock supplies the wall-clock abstraction the replication
// delay probe measures against. Kept separate from the core so tests
// can substitute a manual clock and assert exact delay values instead
// of racing against wall time.
package clock

import (
	"sync"
	"time"
)

// Clock encapsulates the current-time reads the delay probe needs.
// Separated from time.Now() the way multiraft.Clock separates timer
// construction from the real clock, so tests can control it.
type Clock interface {
	// NowMillis returns the current time in milliseconds since the
	// Unix epoch, the unit the replicated log's start_time_msec fields
	// use.
	NowMillis() int64
}

type realClock struct{}

// Real is the standard implementation of Clock, backed by time.Now().
var Real Clock = realClock{}

func (realClock) NowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// Manual is a fake Clock for deterministic tests: time only advances
// when Advance or Set is called.
type Manual struct {
	mu     sync.Mutex
	millis int64
}

// NewManual returns a Manual clock initialized to the given time.
func NewManual(startMillis int64) *Manual {
	return &Manual{millis: startMillis}
}

// NowMillis implements Clock.
func (m *Manual) NowMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.millis
}

// Advance moves the clock forward by delta milliseconds.
func (m *Manual) Advance(deltaMillis int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.millis += deltaMillis
}

// Set pins the clock to an absolute value.
func (m *Manual) Set(millis int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.millis = millis
}
