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

// Package symtab implements the ordered symbol table described by the
// rewriter's data model: a small set of (name, optional replacement)
// records, kept sorted by name so that lookups can report either the
// index of a match or the insertion point of a miss.
//
// Every entry is an assumption, installed from -D/-U style
// configuration (flags, an assume file or a platform preset) before it
// is ever looked up; #define/#undef lines in a file do not change the
// table. Evaluating a #if/#elif expression
// never inserts a row for a name with no assumption: a miss there means
// "unknown", and stays that way.
package symtab

import "regexp"

// NameRegexp matches a valid preprocessor identifier: a letter or
// underscore, followed by any number of letters, digits, or underscores.
var NameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Symbol is one entry in the table.
type Symbol struct {
	Name string
	// Def holds the assumed replacement text: nil means "assumed
	// undefined" (-U), a non-nil empty string means "defined with no
	// replacement", anything else is the replacement text itself.
	Def *string
	// Visited guards against infinite recursion when the evaluator
	// expands an identifier's replacement text as a sub-expression: a
	// symbol already being expanded that is looked up again is
	// insoluble rather than cause unbounded recursion.
	Visited bool
}

// Defined reports whether the symbol is assumed defined.
func (s *Symbol) Defined() bool { return s.Def != nil }

// Table is the ordered symbol table. The zero value is ready to use.
type Table struct {
	symbols []Symbol
}

// Len returns the number of symbols currently recorded.
func (t *Table) Len() int { return len(t.symbols) }

// Clone returns an independent copy of the table: the configured
// assumptions carry over, but inserting into (or removing from) the
// clone never touches the original's backing array. Callers that
// process many files from one set of -D/-U assumptions take a Clone
// per file, so the Visited marks set while one file's expressions are
// evaluated never touch the shared original.
func (t *Table) Clone() Table {
	cp := make([]Symbol, len(t.symbols))
	copy(cp, t.symbols)
	return Table{symbols: cp}
}

// At returns a pointer to the i'th symbol in name order.
func (t *Table) At(i int) *Symbol { return &t.symbols[i] }

// Find looks up the identifier spelled at the start of text (the maximal
// run of symbol characters beginning at text[0]). It returns the index of
// an exact match, or the bitwise complement of the index at which a new
// symbol with that name should be inserted to keep the table sorted, plus
// the length of the identifier that was scanned (0 if text does not begin
// with an identifier).
//
// The miss-case convention (^insertionPoint) mirrors the original tool's
// symbol table and is preserved deliberately: callers test `idx >= 0` for
// a hit and recover the insertion point as `^idx` on a miss, the same
// idiom Go's own sort.Search-based binary searches would hand-roll, just
// spelled the way the rest of this codebase expects it.
func (t *Table) Find(text string) (idx int, identLen int) {
	identLen = identifierLength(text)
	if identLen == 0 {
		return 0, 0
	}
	name := text[:identLen]

	lo, hi := 0, len(t.symbols)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case t.symbols[mid].Name < name:
			lo = mid + 1
		case t.symbols[mid].Name > name:
			hi = mid
		default:
			return mid, identLen
		}
	}
	return ^lo, identLen
}

// FindName is a convenience wrapper over Find for callers that already
// have an isolated identifier (no trailing non-identifier bytes to
// ignore).
func (t *Table) FindName(name string) (idx int) {
	idx, _ = t.Find(name)
	return idx
}

// InsertAt inserts sym at position pos (as returned, bit-complemented, by
// Find), maintaining sorted order. Behaviour is undefined if pos is not a
// valid insertion point for sym.Name.
func (t *Table) InsertAt(pos int, sym Symbol) {
	t.symbols = append(t.symbols, Symbol{})
	copy(t.symbols[pos+1:], t.symbols[pos:])
	t.symbols[pos] = sym
}

// Add inserts sym in sorted position, looking up the insertion point
// itself. It returns the index at which sym was stored.
func (t *Table) Add(sym Symbol) int {
	idx, _ := t.Find(sym.Name)
	if idx >= 0 {
		t.symbols[idx] = sym
		return idx
	}
	pos := ^idx
	t.InsertAt(pos, sym)
	return pos
}

// Remove deletes the symbol at idx, if present (idx < 0 is a silent no-op,
// to make call sites that just got a Find() miss robust to directly
// forwarding it).
func (t *Table) Remove(idx int) {
	if idx < 0 || idx >= len(t.symbols) {
		return
	}
	t.symbols = append(t.symbols[:idx], t.symbols[idx+1:]...)
}

// identifierLength returns the length of the maximal symchar run
// beginning at s, per the [A-Za-z_][A-Za-z0-9_]* grammar. It does not
// use regexp for this hot path; see NameRegexp for the validation form
// used when accepting configured symbol names.
func identifierLength(s string) int {
	if len(s) == 0 {
		return 0
	}
	c := s[0]
	if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
		return 0
	}
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			i++
			continue
		}
		break
	}
	return i
}
