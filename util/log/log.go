// Go support for leveled logs, analogous to https://code.google.com/p/google-clog/
//
// Copyright 2013 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Original version (c) Google.
// Author (fork from https://github.com/golang/glog): Tobias Schottdorf

// Package log is a small leveled logger in the style of the teacher's
// glog-derived util/log package: named severities, a verbosity gate
// controlled by V(level), and file:line-qualified output. It trades
// the original's file rotation and multi-writer machinery (not needed
// by a library-only component) for a single io.Writer sink.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Severity identifies the sort of log entry: info, warning, error or
// fatal. A message written at a given severity is also considered to
// subsume all lower severities for the purpose of -stderrthreshold-style
// filtering, mirroring the original clog.go's Severity type.
type Severity int32

// Severities in increasing order.
const (
	InfoLog Severity = iota
	WarningLog
	ErrorLog
	FatalLog
)

var severityChar = [...]byte{'I', 'W', 'E', 'F'}

// verbosity is the current -v level; V(n) returns true iff n <= verbosity.
var verbosity int32

// SetVerbosity sets the global verbosity level used by V().
func SetVerbosity(level int32) {
	atomic.StoreInt32(&verbosity, level)
}

// V reports whether logging at the given verbosity level is enabled.
// Call sites guard expensive log-argument construction with it:
//
//	if log.V(1) {
//	    log.Infof("expensive: %s", computeDebugString())
//	}
func V(level int32) bool {
	return level <= atomic.LoadInt32(&verbosity)
}

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
	// exitFunc is called by Fatal/Fatalf after the message is written.
	// Tests substitute it to observe a fatal without killing the process.
	exitFunc = os.Exit
)

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetExitFunc overrides the function called on Fatal/Fatalf, primarily
// for tests that need to observe a fatal without terminating the test
// binary.
func SetExitFunc(f func(int)) {
	mu.Lock()
	defer mu.Unlock()
	exitFunc = f
}

func caller(depth int) string {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func output_(s Severity, depth int, msg string) {
	mu.Lock()
	w := output
	mu.Unlock()
	now := time.Now().Format("0102 15:04:05.000000")
	fmt.Fprintf(w, "%c%s %s] %s\n", severityChar[s], now, caller(depth+1), msg)
}

// Infof logs a formatted message at InfoLog severity.
func Infof(format string, args ...interface{}) { output_(InfoLog, 1, fmt.Sprintf(format, args...)) }

// Info logs args at InfoLog severity, formatted as with fmt.Sprint.
func Info(args ...interface{}) { output_(InfoLog, 1, fmt.Sprint(args...)) }

// Warningf logs a formatted message at WarningLog severity.
func Warningf(format string, args ...interface{}) {
	output_(WarningLog, 1, fmt.Sprintf(format, args...))
}

// Warning logs args at WarningLog severity.
func Warning(args ...interface{}) { output_(WarningLog, 1, fmt.Sprint(args...)) }

// Errorf logs a formatted message at ErrorLog severity.
func Errorf(format string, args ...interface{}) { output_(ErrorLog, 1, fmt.Sprintf(format, args...)) }

// Error logs args at ErrorLog severity.
func Error(args ...interface{}) { output_(ErrorLog, 1, fmt.Sprint(args...)) }

// Fatalf logs a formatted message at FatalLog severity and then calls
// the configured exit function (os.Exit by default). This is the sole
// mechanism by which the replicator core terminates the process on a
// malformed-log or missing-page condition (spec §4.10/§7).
func Fatalf(format string, args ...interface{}) {
	output_(FatalLog, 1, fmt.Sprintf(format, args...))
	exitFunc(255)
}

// Fatal logs args at FatalLog severity and then calls the configured
// exit function.
func Fatal(args ...interface{}) {
	output_(FatalLog, 1, fmt.Sprint(args...))
	exitFunc(255)
}
