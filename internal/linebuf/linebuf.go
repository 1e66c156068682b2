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

// Package linebuf implements the rewriter's line buffer: it reads one
// logical source line at a time, growing across backslash-newline
// continuations and across newlines that fall inside a still-open C
// comment. A logical line may therefore span several physical lines;
// ExtensionLines reports how many were absorbed into the current one.
package linebuf

import (
	"bufio"
	"errors"
	"io"
)

// ErrMissingNewline is reported when the final physical line of a file
// has content but no trailing newline.
var ErrMissingNewline = errors.New("linebuf: missing newline at end of file")

// Buffer holds the current logical line and the bookkeeping needed to
// extend it.
type Buffer struct {
	r *bufio.Reader

	data []byte // current logical line, newline included unless EOF cut it short
	eof  bool

	lineNum        int // 1-based line number of the first physical line in data
	extensionLines int // physical newlines absorbed into the current logical line

	savedPos int // byte offset saved by the chewer across a possible reallocation
}

// New creates a Buffer reading from r.
func New(r io.Reader) *Buffer {
	return &Buffer{r: bufio.NewReader(r)}
}

// GetLine reads one fresh logical line, discarding whatever was
// previously buffered. It returns false when there is nothing left to
// read (clean EOF, nothing consumed). On a final partial line (content
// with no trailing newline, immediately followed by EOF) it returns the
// partial content together with ErrMissingNewline; the caller decides
// whether that is fatal.
func (b *Buffer) GetLine() (ok bool, err error) {
	b.data = b.data[:0]
	b.extensionLines = 0
	b.lineNum++

	line, rerr := b.r.ReadBytes('\n')
	if len(line) == 0 && rerr != nil {
		b.eof = true
		b.lineNum--
		return false, nil
	}
	b.data = append(b.data, line...)

	if rerr != nil {
		// ReadBytes only returns a non-nil error together with
		// whatever partial data preceded it; for any real I/O error
		// distinguish it from a clean "ran out of input" EOF.
		if errors.Is(rerr, io.EOF) {
			if len(line) > 0 && line[len(line)-1] != '\n' {
				b.eof = true
				return true, ErrMissingNewline
			}
			b.eof = true
			return true, nil
		}
		return true, rerr
	}
	return true, nil
}

// ExtendLine reads one more physical line onto the end of the current
// logical line, without touching LineNum, and increments ExtensionLines.
// It is used by the chewer when a `\`-newline or an embedded C-comment
// newline requires more input before the logical line is complete.
func (b *Buffer) ExtendLine() (err error) {
	line, rerr := b.r.ReadBytes('\n')
	b.data = append(b.data, line...)
	b.extensionLines++
	if rerr != nil {
		if errors.Is(rerr, io.EOF) {
			b.eof = true
			if len(line) > 0 && line[len(line)-1] != '\n' {
				return ErrMissingNewline
			}
			return nil
		}
		return rerr
	}
	return nil
}

// Bytes returns the content of the current logical line, including its
// trailing newline (absent only for a final, incomplete line at EOF).
func (b *Buffer) Bytes() []byte { return b.data }

// SetBytes replaces the content of the current logical line.
func (b *Buffer) SetBytes(data []byte) { b.data = data }

// LineNum returns the 1-based line number of the first physical line
// making up the current logical line.
func (b *Buffer) LineNum() int { return b.lineNum }

// ExtensionLines returns how many additional physical newlines were
// folded into the current logical line via ExtendLine.
func (b *Buffer) ExtensionLines() int { return b.extensionLines }

// AtEOF reports whether the underlying reader has been exhausted.
func (b *Buffer) AtEOF() bool { return b.eof }

// SaveReadPos stores a byte offset into the current line buffer, a
// position that stays valid where a raw slice would not across a call
// that might grow (and thus reallocate) the buffer via ExtendLine.
func (b *Buffer) SaveReadPos(p int) { b.savedPos = p }

// SavedReadPos returns the offset last recorded by SaveReadPos.
func (b *Buffer) SavedReadPos() int { return b.savedPos }
