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

import gometrics "github.com/rcrowley/go-metrics"

// Counter is a monotonically increasing (or decreasing) integer value,
// backed by go-metrics' lock-free counter implementation.
type Counter struct {
	c gometrics.Counter
}

// NewCounter creates an unregistered Counter.
func NewCounter() *Counter {
	return &Counter{c: gometrics.NewCounter()}
}

// Inc increments the counter by i.
func (c *Counter) Inc(i int64) { c.c.Inc(i) }

// Dec decrements the counter by i.
func (c *Counter) Dec(i int64) { c.c.Dec(i) }

// Count returns the counter's current value.
func (c *Counter) Count() int64 { return c.c.Count() }

// Each implements Iterable.
func (c *Counter) Each(f func(string, interface{})) { f("", c.Count()) }
