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

// Package engine drives one file through the whole rewrite pipeline:
// read a logical line at a time (linebuf), skip comments and quoted
// text (chew), classify #if/#elif/#else/#endif/#define/#undef
// directives, resolve conditions against the assumed symbol table
// (evalexpr), advance the nesting state machine (ifstate), reconcile
// #define/#undef against assumptions that disagree (contradiction),
// and render each surviving line (lineview), accumulating exit-status
// events along the way (diagnostics).
package engine

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/uncpp/uncpp/internal/chew"
	"github.com/uncpp/uncpp/internal/cliopts"
	"github.com/uncpp/uncpp/internal/contradiction"
	"github.com/uncpp/uncpp/internal/diagnostics"
	"github.com/uncpp/uncpp/internal/evalexpr"
	"github.com/uncpp/uncpp/internal/ifstate"
	"github.com/uncpp/uncpp/internal/linebuf"
	"github.com/uncpp/uncpp/internal/lineview"
	"github.com/uncpp/uncpp/internal/symtab"
)

// Engine processes one file at a time against a shared set of assumed
// symbols and options. It holds no per-file state between calls to
// Process: the symbol table copy, line buffer and state machines for a
// file are created inside each call.
type Engine struct {
	opts *cliopts.Options
	log  *diagnostics.Log
}

// New returns an Engine bound to opts (the assumed symbols and policy
// knobs) and log (where diagnostics and exit-status events accumulate
// across every file the caller processes).
func New(opts *cliopts.Options, log *diagnostics.Log) *Engine {
	return &Engine{opts: opts, log: log}
}

// Process reads a whole file from r and returns the rewritten content.
// changed reports whether the output differs from the input, so the
// caller can skip rewriting files that need no change. fileName
// appears in diagnostics and in any #line directives written to the
// output.
func (e *Engine) Process(fileName string, r io.Reader) (output []byte, changed bool, err error) {
	syms := e.opts.Symbols.Clone()

	buf := linebuf.New(r)
	chewer := chew.New(buf)
	chewer.Plaintext = e.opts.Plaintext
	ifc := ifstate.New()
	contra := contradiction.New(e.opts.Contradiction)

	var out bytes.Buffer
	var inputChanged bool
	var dropRun int // consecutive lines discarded since the last line actually printed

	for {
		ok, rerr := buf.GetLine()
		if rerr != nil && rerr != linebuf.ErrMissingNewline {
			return nil, false, fmt.Errorf("engine: %s: %w", fileName, rerr)
		}
		if !ok {
			if _, serr := ifc.Step(ifstate.EOF, buf.LineNum()); serr != nil {
				return nil, false, fmt.Errorf("engine: %s: %w", fileName, serr)
			}
			break
		}

		line := buf.Bytes()
		view := lineview.New(line)
		chewer.LineState = chew.Neuter

		kind, directive, err := e.classify(fileName, buf, chewer, &syms, view, ifc)
		if err != nil {
			return nil, false, fmt.Errorf("engine: %s:%d: %w", fileName, buf.LineNum(), err)
		}

		if directive != nil && directive.isDefineOrUndef {
			before := out.Len()
			e.handleDefineUndef(fileName, buf.LineNum(), line, directive, &syms, contra, ifc, &out, view, &dropRun)
			if !bytes.Equal(out.Bytes()[before:], line) {
				inputChanged = true
			}
			if rerr == linebuf.ErrMissingNewline {
				break
			}
			continue
		}

		action, serr := ifc.Step(kind, buf.LineNum())
		if serr != nil {
			e.log.Error("%s:%d: %v", fileName, buf.LineNum(), serr)
			return nil, false, fmt.Errorf("engine: %s:%d: %w", fileName, buf.LineNum(), serr)
		}

		if directive != nil && action.Keyword != "" {
			// An #elif becoming #else or #endif loses its condition
			// entirely: the branch is now unconditionally taken or
			// unconditionally unreachable, so there is nothing left to
			// evaluate. An #elif becoming a plain #if keeps its
			// condition (still unresolved, so still meaningful).
			if action.Keyword != "if" {
				view.MarkDelete(directive.keywordEnd, len(line))
			}
			e.reanchor(&out, &dropRun, fileName, buf.LineNum())
			out.Write(view.Rewrite(directive.keywordStart, directive.keywordEnd, action.Keyword))
			inputChanged = true
			e.log.Mark(diagnostics.EventChangedLines)
		} else if action.Emit == ifstate.EmitPrint {
			e.reanchor(&out, &dropRun, fileName, buf.LineNum())
			rendered := view.Render()
			out.Write(rendered)
			if view.Changed() {
				inputChanged = true
				e.log.Mark(diagnostics.EventChangedLines)
			}
		} else {
			e.discard(&out, line)
			dropRun++
			inputChanged = true
			e.log.Mark(diagnostics.EventDroppedLines)
		}

		if rerr == linebuf.ErrMissingNewline {
			break
		}
	}

	if ifc.Depth() != 0 {
		e.log.Error("%s: unterminated #if (opened at line %d)", fileName, ifc.StartLine())
		return nil, false, fmt.Errorf("engine: %s: %w", fileName, ifstate.ErrUnterminated)
	}

	return out.Bytes(), inputChanged, nil
}

// directiveInfo describes a recognized preprocessor directive found on
// the current line.
type directiveInfo struct {
	keyword         string
	keywordStart    int
	keywordEnd      int
	exprStart       int
	isDefineOrUndef bool
	defName         string
	defBody         string // #define replacement text, trimmed
}

// classify reads the leading directive keyword (if any) off the
// current line and, for #if/#ifdef/#ifndef/#elif, evaluates its
// condition.
//
// Whether a condition is worth evaluating at all depends on where it
// sits, not just on "is the current branch dead": a #if/#ifdef/#ifndef
// opening a brand new frame is skipped when the enclosing frame is
// already Dropping (there is no value in resolving code nested inside
// a branch that can never run; ifstate.Step forces the new frame dead
// regardless of the verdict). A #elif acting on the frame already open,
// though, still needs a real verdict in FalsePrefix/FalseMiddle (the
// chain is still looking for its true branch) - only in FalseTrailer is
// the chain truly exhausted, and there every elif form is handled
// identically regardless of its own truth.
func (e *Engine) classify(fileName string, buf *linebuf.Buffer, c *chew.Chewer, syms *symtab.Table, view *lineview.View, ifc *ifstate.Controller) (ifstate.LineKind, *directiveInfo, error) {
	p, err := c.ChewOn(0)
	if err != nil {
		return 0, nil, err
	}
	line := buf.Bytes()
	if p >= len(line) || line[p] != '#' {
		return ifstate.Plain, nil, nil
	}
	hashEnd := p + 1
	kwStart, err := c.ChewOn(hashEnd)
	if err != nil {
		return 0, nil, err
	}
	kwEnd := c.ChewSym(kwStart)
	keyword := string(line[kwStart:kwEnd])

	di := &directiveInfo{keyword: keyword, keywordStart: kwStart, keywordEnd: kwEnd}

	switch keyword {
	case "if":
		exprStart, err := c.ChewOn(kwEnd)
		if err != nil {
			return 0, nil, err
		}
		di.exprStart = exprStart
		lk, err := e.evalCondition(fileName, line, exprStart, c, syms, view, ifc.Dropping(), false)
		return lk, di, err

	case "ifdef", "ifndef":
		exprStart, err := c.ChewOn(kwEnd)
		if err != nil {
			return 0, nil, err
		}
		nameEnd := c.ChewSym(exprStart)
		name := string(line[exprStart:nameEnd])
		if ifc.Dropping() || name == "" {
			return ifstate.If, di, nil
		}
		idx := syms.FindName(name)
		if idx < 0 {
			return ifstate.If, di, nil
		}
		defined := syms.At(idx).Defined()
		if keyword == "ifndef" {
			defined = !defined
		}
		if defined {
			return ifstate.True, di, nil
		}
		return ifstate.False, di, nil

	case "elif":
		exprStart, err := c.ChewOn(kwEnd)
		if err != nil {
			return 0, nil, err
		}
		di.exprStart = exprStart
		lk, err := e.evalCondition(fileName, line, exprStart, c, syms, view, ifc.State() == ifstate.FalseTrailer, true)
		return lk, di, err

	case "else":
		return ifstate.Else, di, nil

	case "endif":
		return ifstate.Endif, di, nil

	case "define", "undef":
		return e.classifyDefineUndef(line, kwEnd, keyword, c, di)

	default:
		return ifstate.Plain, nil, nil
	}
}

// evalCondition resolves a #if/#elif condition to a LineKind. dropping
// means the enclosing branch is already known dead: there is nothing
// further to learn from code that can never run, and skipping
// evaluation avoids warnings (an empty symbol, a division by zero)
// about such code, so the condition is reported unresolved without
// even being parsed.
func (e *Engine) evalCondition(fileName string, line []byte, start int, c *chew.Chewer, syms *symtab.Table, view *lineview.View, dropping, isElif bool) (ifstate.LineKind, error) {
	unresolvedKind := ifstate.If
	trueKind := ifstate.True
	falseKind := ifstate.False
	if isElif {
		unresolvedKind, trueKind, falseKind = ifstate.Elif, ifstate.ElTrue, ifstate.ElFalse
	}

	if dropping {
		return unresolvedKind, nil
	}

	warner := func(format string, args ...any) {
		e.log.Warn(fmt.Sprintf("%s: ", fileName)+format, args...)
	}
	p := evalexpr.New(line, start, c, syms, view, e.opts.Eval, warner)
	verdict, _, err := p.Evaluate()
	if err != nil {
		e.log.Warn("%s: malformed #if expression (%v), treating as unresolved", fileName, err)
		return unresolvedKind, nil
	}

	switch {
	case !verdict.Resolved:
		return unresolvedKind, nil
	case verdict.KeepConst:
		// Arithmetically known (e.g. a bare "#if 1") but not allowed to
		// decide the line's fate: constant-folding is off, so the
		// conditional is left in place rather than collapsed.
		return unresolvedKind, nil
	case verdict.True:
		return trueKind, nil
	default:
		return falseKind, nil
	}
}

func (e *Engine) classifyDefineUndef(line []byte, kwEnd int, keyword string, c *chew.Chewer, di *directiveInfo) (ifstate.LineKind, *directiveInfo, error) {
	nameStart, err := c.ChewOn(kwEnd)
	if err != nil {
		return 0, nil, err
	}
	nameEnd := c.ChewSym(nameStart)
	di.isDefineOrUndef = true
	di.defName = string(line[nameStart:nameEnd])
	if keyword == "define" {
		bodyStart, err := c.ChewOn(nameEnd)
		if err != nil {
			return 0, nil, err
		}
		bodyEnd := len(line)
		for bodyEnd > 0 && (line[bodyEnd-1] == '\n' || line[bodyEnd-1] == '\r') {
			bodyEnd--
		}
		if bodyStart < bodyEnd {
			di.defBody = string(line[bodyStart:bodyEnd])
		}
	}
	return ifstate.Plain, di, nil
}

// handleDefineUndef reconciles a #define/#undef directive with any
// assumption already recorded for the same symbol, following the
// original tool's policy: a directive that merely restates the
// assumption is dropped; one that contradicts it is reported at once
// and rendered per Contradiction.Policy (deleted, commented or turned
// into #error); one for a name with no assumption passes through
// untouched.
func (e *Engine) handleDefineUndef(fileName string, lineNum int, line []byte, di *directiveInfo, syms *symtab.Table, contra *contradiction.Handler, ifc *ifstate.Controller, out *bytes.Buffer, view *lineview.View, dropRun *int) {
	if ifc.Dropping() {
		e.discard(out, line)
		*dropRun++
		e.log.Mark(diagnostics.EventDroppedLines)
		return
	}

	idx := syms.FindName(di.defName)
	assumed := idx >= 0
	var contradicts bool
	var kind contradiction.Kind
	if assumed {
		sym := syms.At(idx)
		if di.keyword == "undef" {
			if sym.Defined() {
				contradicts = true
				kind = contradiction.UndefContradicts
			}
		} else { // define
			if !sym.Defined() {
				contradicts = true
				kind = contradiction.ContradictoryDefine
			} else if *sym.Def != di.defBody {
				contradicts = true
				kind = contradiction.DefineDiffers
			}
		}
	}

	if contradicts {
		directiveText := strings.TrimRight(string(line), "\r\n")
		contra.Save(kind, directiveText, fileName, lineNum, false)
		outcome := contra.Flush(ifc.Unconditional())
		e.log.Warn("%s", outcome.Stderr)
		if outcome.Dropped {
			e.discard(out, line)
			*dropRun++
			e.log.Mark(diagnostics.EventDroppedLines)
			return
		}
		e.reanchor(out, dropRun, fileName, lineNum)
		out.WriteString(outcome.Emit)
		out.WriteByte('\n')
		if outcome.Errored {
			e.log.Mark(diagnostics.EventErroredLines)
			if outcome.UnconditionalErrorOutput {
				e.log.Mark(diagnostics.EventErrorOutput)
			}
		}
		return
	}

	if assumed {
		// Consistent with the assumption: the directive adds nothing.
		e.discard(out, line)
		*dropRun++
		e.log.Mark(diagnostics.EventDroppedLines)
		return
	}

	e.reanchor(out, dropRun, fileName, lineNum)
	out.Write(view.Render())
}

// discard renders a line dropped by conditional rewriting according to
// the configured Discard policy: omitted entirely (the default), left
// as a blank line, or replaced with a "//uncpp < " comment carrying the
// original text.
func (e *Engine) discard(out *bytes.Buffer, line []byte) {
	switch e.opts.Discard {
	case cliopts.DiscardBlank:
		out.WriteByte('\n')
	case cliopts.DiscardComment:
		out.WriteString("//uncpp < ")
		out.Write(bytes.TrimRight(line, "\r\n"))
		out.WriteByte('\n')
	}
}

// reanchor emits a "#line" directive to re-anchor line numbers after a
// run of one or more discarded lines, when the caller has asked for
// them (-line-directives). It is a no-op when nothing was dropped since
// the last printed line.
func (e *Engine) reanchor(out *bytes.Buffer, dropRun *int, fileName string, lineNum int) {
	if !e.opts.LineDirectives || *dropRun == 0 {
		return
	}
	fmt.Fprintf(out, "#line %d %q\n", lineNum, fileName)
	*dropRun = 0
}
