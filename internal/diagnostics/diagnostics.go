// Copyright 2025 EngFlow Inc. All rights reserved.
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

// Package diagnostics accumulates the exit-status bitfield the
// original tool reports: a severity level (info/warning/error/abend)
// together with a set of event-summary flags (lines dropped, lines
// changed, #error directives inserted, an unconditional #error
// reaching output). The process exit code is built from this bitfield
// rather than a plain 0/1, so scripted callers can distinguish "no
// changes were needed" from "some lines were dropped" from "a real
// problem was found".
package diagnostics

import "log"

// Severity ranks the worst thing that has happened so far.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityAbend
)

// Event is one bit of the event-summary flag set.
type Event int

const (
	EventDroppedLines Event = 1 << iota
	EventChangedLines
	EventErroredLines
	EventErrorOutput
)

// Log accumulates severity and event flags across a run and mirrors
// them to the standard logger as they are recorded, the way the
// original tool writes to stderr as it goes rather than buffering
// every diagnostic to the end.
type Log struct {
	severity Severity
	events   Event
	*log.Logger
}

// New creates a Log writing through l. If l is nil, log.Default() is
// used.
func New(l *log.Logger) *Log {
	if l == nil {
		l = log.Default()
	}
	return &Log{Logger: l}
}

func (d *Log) raise(s Severity) {
	if s > d.severity {
		d.severity = s
	}
}

// Info records an informational message; it never raises the exit
// severity above SeverityInfo.
func (d *Log) Info(format string, args ...any) {
	d.raise(SeverityInfo)
	d.Printf(format, args...)
}

// Warn records a warning: a contradiction was resolved, a constant
// expression could not be evaluated, or similar. Processing continues.
func (d *Log) Warn(format string, args ...any) {
	d.raise(SeverityWarning)
	d.Printf("warning: "+format, args...)
}

// Error records an error such as an orphaned #endif: the current file
// is abandoned, but sibling files still proceed if the caller allows
// it (cliopts.Options.KeepGoing).
func (d *Log) Error(format string, args ...any) {
	d.raise(SeverityError)
	d.Printf("error: "+format, args...)
}

// Abend records a fatal condition (out of memory, cannot write output)
// that stops the whole run.
func (d *Log) Abend(format string, args ...any) {
	d.raise(SeverityAbend)
	d.Printf("fatal: "+format, args...)
}

// Mark records that an event (of possibly several) has occurred during
// this run.
func (d *Log) Mark(e Event) { d.events |= e }

// Clear retracts an event flag. It does not lower the recorded
// severity, so a warning already recorded by Warn stays recorded.
func (d *Log) Clear(e Event) { d.events &^= e }

// Has reports whether an event flag is currently set.
func (d *Log) Has(e Event) bool { return d.events&e != 0 }

// Severity returns the worst severity recorded so far.
func (d *Log) Severity() Severity { return d.severity }

// ExitCode packs severity and event flags into a single process exit
// status: bits 0-2 carry the severity, the event flags occupy the bits
// above that. A plain "nothing happened" run exits 0.
func (d *Log) ExitCode() int {
	return int(d.severity) | (int(d.events) << 3)
}
