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

// Package lineview implements the rewriter's line-rewriting technique:
// rather than rebuilding a new line from an AST, bytes that the
// evaluator decides to drop are marked in place with sentinel values and
// the original line is then printed around them. This keeps arbitrary
// source formatting (spacing, comments sitting mid-expression) intact
// with minimal churn, which a tree-rewrite-and-reprint approach would
// lose.
package lineview

import "bytes"

// Sentinel byte values used to mark positions for deletion. None of
// these can appear in ordinary ASCII C/C++ source text, so they are
// safe to splice into a copy of the line.
const (
	sentinelNone      byte = 0
	sentinelDelete    byte = 1
	sentinelParenLeft byte = 2
	// sentinelParenRight is never distinguished from sentinelParenLeft
	// at render time (both render as nothing when a cut occurred
	// elsewhere, or as the original character otherwise), but is kept
	// as a separate mark so callers can tell which paren a mark
	// belongs to if needed for diagnostics.
	sentinelParenRight byte = 3
)

// View wraps one logical line and its sentinel marks.
type View struct {
	orig  []byte
	marks []byte // same length as orig; sentinelNone unless marked
	cut   bool   // true once any operator/operand text (not just a bare paren) is cut
}

// New creates a View over line. The caller retains ownership of line;
// View never mutates it (marks are tracked in a side array).
func New(line []byte) *View {
	return &View{orig: line, marks: make([]byte, len(line))}
}

func isSymChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// MarkDelete marks [a, b) for deletion. If the byte immediately before b
// is the line's trailing newline, that newline is left unmarked so the
// emitted line still ends correctly.
func (v *View) MarkDelete(a, b int) {
	if b > 0 && b <= len(v.orig) && v.orig[b-1] == '\n' {
		b--
	}
	for i := a; i < b && i < len(v.marks); i++ {
		v.marks[i] = sentinelDelete
	}
	if b > a {
		v.cut = true
	}
}

// MarkParen tentatively marks the single bytes at lp and rp (expected to
// be '(' and ')' respectively) for deletion. Unlike MarkDelete, a
// paren-only mark does not by itself count as a cut: if nothing else in
// the line is cut, Render restores the parentheses verbatim.
//
// MarkParen refuses (returning false, marking nothing) when removing
// the pair would splice together two identifier/number tokens that
// should stay separate: each of lp-1, lp+1, rp-1, rp+1 must not be a
// symbol character immediately adjacent to another symbol character
// across the paren being removed.
func (v *View) MarkParen(lp, rp int) bool {
	if lp < 0 || rp >= len(v.orig) || lp >= rp {
		return false
	}
	hazardAt := func(left, right int) bool {
		if left < 0 || right >= len(v.orig) {
			return false
		}
		return isSymChar(v.orig[left]) && isSymChar(v.orig[right])
	}
	if hazardAt(lp-1, lp+1) || hazardAt(rp-1, rp+1) {
		return false
	}
	v.marks[lp] = sentinelParenLeft
	v.marks[rp] = sentinelParenRight
	return true
}

// Changed reports whether any operator or operand text was cut (as
// opposed to only tentative, since-restored parenthesis marks).
func (v *View) Changed() bool { return v.cut }

// Render returns the possibly-rewritten line.
func (v *View) Render() []byte {
	if !v.cut {
		// Either nothing was marked, or only parens were tentatively
		// marked and nothing else was cut: print verbatim, which
		// restores any paren marks to their literal characters since
		// marks live in a side array, never overwriting orig.
		return v.orig
	}

	var out bytes.Buffer
	out.Grow(len(v.orig))
	i := 0
	for i < len(v.orig) {
		if v.marks[i] == sentinelNone {
			out.WriteByte(v.orig[i])
			i++
			continue
		}
		// Skip the whole contiguous run of marked bytes, inserting a
		// single space if eliding it would otherwise join two
		// non-space tokens together.
		start := i
		for i < len(v.orig) && v.marks[i] != sentinelNone {
			i++
		}
		if needsJoinSpace(v.orig, start, i) {
			out.WriteByte(' ')
		}
	}
	return out.Bytes()
}

// Rewrite renders the line with [a, b) replaced by the literal text
// replacement, honoring every mark elsewhere in the line exactly as
// Render would. It is used for the one splice Render's sentinel
// scheme cannot express on its own: swapping a directive's keyword
// ("elif" becoming "if", "else" or "endif") while leaving the rest of
// the line's existing marks (e.g. an already-dead condition) alone.
func (v *View) Rewrite(a, b int, replacement string) []byte {
	var out bytes.Buffer
	out.Grow(len(v.orig) + len(replacement))
	i := 0
	for i < len(v.orig) {
		if i == a {
			out.WriteString(replacement)
			i = b
			continue
		}
		if v.marks[i] == sentinelNone {
			out.WriteByte(v.orig[i])
			i++
			continue
		}
		start := i
		for i < len(v.orig) && i != a && v.marks[i] != sentinelNone {
			i++
		}
		if needsJoinSpace(v.orig, start, i) {
			out.WriteByte(' ')
		}
	}
	return out.Bytes()
}

// needsJoinSpace reports whether eliding orig[start:end] would
// concatenate the non-space byte before start with the non-space byte
// at end into what looks like a single token.
func needsJoinSpace(orig []byte, start, end int) bool {
	if start == 0 || end >= len(orig) {
		return false
	}
	before := orig[start-1]
	after := orig[end]
	if before == ' ' || before == '\t' || after == ' ' || after == '\t' || after == '\n' {
		return false
	}
	return true
}
