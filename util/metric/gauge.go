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

// Gauge holds a single mutable integer value, such as the replicator's
// current REDO_REPL_DELAY sample or in-flight job count.
type Gauge struct {
	g gometrics.Gauge
}

// NewGauge creates an unregistered Gauge.
func NewGauge() *Gauge {
	return &Gauge{g: gometrics.NewGauge()}
}

// Update sets the gauge's value.
func (g *Gauge) Update(v int64) { g.g.Update(v) }

// Value returns the gauge's current value.
func (g *Gauge) Value() int64 { return g.g.Value() }

// Each implements Iterable.
func (g *Gauge) Each(f func(string, interface{})) { f("", g.Value()) }

// GaugeFloat64 holds a single mutable floating point value.
type GaugeFloat64 struct {
	g gometrics.GaugeFloat64
}

// NewGaugeFloat64 creates an unregistered GaugeFloat64.
func NewGaugeFloat64() *GaugeFloat64 {
	return &GaugeFloat64{g: gometrics.NewGaugeFloat64()}
}

// Update sets the gauge's value.
func (g *GaugeFloat64) Update(v float64) { g.g.Update(v) }

// Value returns the gauge's current value.
func (g *GaugeFloat64) Value() float64 { return g.g.Value() }

// Each implements Iterable.
func (g *GaugeFloat64) Each(f func(string, interface{})) { f("", g.Value()) }
