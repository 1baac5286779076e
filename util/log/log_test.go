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
// permissions and limitations under the License. See the AUTHORS file
// for names of contributors.

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInfofWritesSeverityAndMessage(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Infof("hello %s", "world")

	line := buf.String()
	if !strings.HasPrefix(line, "I") {
		t.Fatalf("expected line to start with severity char I, got %q", line)
	}
	if !strings.Contains(line, "hello world") {
		t.Fatalf("expected message in output, got %q", line)
	}
}

func TestFatalfCallsExitFunc(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	var gotCode int
	SetExitFunc(func(code int) { gotCode = code })
	defer SetExitFunc(os.Exit)

	Fatalf("boom: %d", 42)

	if gotCode != 255 {
		t.Fatalf("expected exit code 255, got %d", gotCode)
	}
	if !strings.HasPrefix(buf.String(), "F") {
		t.Fatalf("expected fatal severity char, got %q", buf.String())
	}
}

func TestVerbosityGate(t *testing.T) {
	SetVerbosity(0)
	if V(1) {
		t.Fatal("expected V(1) to be false at verbosity 0")
	}
	SetVerbosity(2)
	if !V(1) {
		t.Fatal("expected V(1) to be true at verbosity 2")
	}
}
