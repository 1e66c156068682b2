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

// Package contradiction tracks a single pending diagnostic for a
// #define or #undef directive that disagrees with an assumed symbol:
// a #undef X when -DX was assumed, a #define X when -UX was assumed,
// or a #define X whose replacement text differs from an assumed
// -DX=value. At most one such diagnostic is ever pending at a time,
// since it is always either discharged (flushed to output) or
// cancelled (by a later directive restoring consistency) before the
// next line is read.
package contradiction

import "fmt"

// Policy selects how a contradictory directive is rendered in output.
type Policy int

const (
	// Delete removes the contradictory line from output entirely.
	Delete Policy = iota
	// Comment replaces the line with a "// error : ..." comment.
	Comment
	// Error replaces the line with a "#error ..." directive.
	Error
)

// Kind distinguishes the ways a directive can contradict an assumption.
type Kind int

const (
	// UndefContradicts is a #undef X where X was assumed defined (-D).
	UndefContradicts Kind = iota
	// DefineDiffers is a #define X whose body differs from the
	// replacement text assumed for X (-DX=value).
	DefineDiffers
	// ContradictoryDefine is a #define X where X was assumed undefined
	// (-U).
	ContradictoryDefine
)

// Outcome is what the caller should do with the input line once a
// contradiction has been resolved (flushed or forgotten).
type Outcome struct {
	// Emit is the text to print in place of the input line. Empty and
	// Dropped both true means nothing is printed at all.
	Emit    string
	Dropped bool

	Stderr string // diagnostic to print to stderr, always non-empty when flushing

	// Errored marks that an #error directive was inserted under the
	// Error policy; UnconditionalErrorOutput additionally marks that
	// this happened in code not conditional on any unresolved #if.
	Errored                  bool
	UnconditionalErrorOutput bool
}

type pending struct {
	kind        Kind
	directive   string // the source line's directive text, e.g. `#undef FOO`
	fileName    string
	lineNum     int
	hadWarnings bool // exit status already carried a warning before this one was provisionally added
}

// Handler holds the current conflict-resolution policy and at most one
// pending contradiction.
type Handler struct {
	policy  Policy
	current *pending
}

// New creates a Handler with the given policy.
func New(p Policy) *Handler { return &Handler{policy: p} }

// Policy returns the handler's current policy.
func (h *Handler) Policy() Policy { return h.policy }

// SetPolicy changes the handler's policy. It does not affect any
// contradiction already pending.
func (h *Handler) SetPolicy(p Policy) { h.policy = p }

// Pending reports whether a contradiction is currently awaiting
// resolution.
func (h *Handler) Pending() bool { return h.current != nil }

// Save records a new pending contradiction. directive is the offending
// line's directive text (e.g. `#undef FOO`), quoted verbatim into the
// composed diagnostic. It must only be called when Pending() is false.
func (h *Handler) Save(kind Kind, directive, fileName string, lineNum int, warningsAlreadySet bool) {
	h.current = &pending{kind: kind, directive: directive, fileName: fileName, lineNum: lineNum, hadWarnings: warningsAlreadySet}
}

// message composes the stderr diagnostic and, when the policy keeps a
// trace in output, the text to insert there too.
func (h *Handler) message() (stderrMsg, insertMsg string) {
	p := h.current
	var reason string
	switch p.kind {
	case UndefContradicts:
		// #undef X where X was assumed defined (-D): the assumption is
		// the one being contradicted.
		reason = fmt.Sprintf("%q contradicts -D", p.directive)
	case ContradictoryDefine:
		// #define X where X was assumed undefined (-U).
		reason = fmt.Sprintf("%q contradicts -U", p.directive)
	case DefineDiffers:
		reason = fmt.Sprintf("%q differently redefines -D symbol", p.directive)
	}
	stderrMsg = fmt.Sprintf("%s at %s(%d)", reason, p.fileName, p.lineNum)

	var prefix string
	switch h.policy {
	case Comment:
		prefix = "//"
	case Error:
		prefix = "#"
	case Delete:
		return stderrMsg, ""
	}
	insertMsg = fmt.Sprintf("%serror : inserted by uncpp: %s", prefix, stderrMsg)
	return stderrMsg, insertMsg
}

// Flush materializes the pending contradiction into an Outcome and
// clears it. unconditional reports whether the current line is
// conditional on no unresolved #if/#ifdef, for diagnostic purposes only.
func (h *Handler) Flush(unconditional bool) Outcome {
	stderrMsg, insertMsg := h.message()
	out := Outcome{Stderr: stderrMsg}
	if insertMsg == "" {
		out.Dropped = true
	} else {
		out.Emit = insertMsg
		if h.policy == Error {
			out.Errored = true
			if unconditional {
				out.UnconditionalErrorOutput = true
			}
		}
	}
	h.current = nil
	return out
}

// Forget discards the pending contradiction without emitting any
// diagnostic: used when a later directive (e.g. a #define that
// restores consistency) shows there was never really a conflict.
// The result reports whether saving the contradiction provisionally
// raised the warning exit flag; the caller should clear that flag
// unless warnings had already accrued for some other reason.
func (h *Handler) Forget() (clearWarningFlag bool) {
	if h.current == nil {
		return false
	}
	clearWarningFlag = !h.current.hadWarnings
	h.current = nil
	return clearWarningFlag
}
