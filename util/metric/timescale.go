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

import "time"

// TimeScale names a windowing duration used by Histogram/Rate helpers
// that create several windowed metrics in bulk.
type TimeScale struct {
	name string
	d    time.Duration
}

// The three default windows used by Registry.Latency and Registry.Rates.
var (
	Scale1M  = TimeScale{name: "1m", d: time.Minute}
	Scale10M = TimeScale{name: "10m", d: 10 * time.Minute}
	Scale1H  = TimeScale{name: "1h", d: time.Hour}
)
