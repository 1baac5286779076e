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

// Iterable is implemented by every metric type (and by *Registry
// itself) so that a Registry can walk an arbitrarily nested tree of
// metrics uniformly.
type Iterable interface {
	// Each calls f once per named value the Iterable exposes. A metric
	// with a single value (a Counter, a Gauge) calls f once with an
	// empty name; a Histogram calls f once per reported statistic with
	// that statistic's suffix (-max, -p50, -p99, -count) as the name.
	Each(f func(name string, val interface{}))
}
