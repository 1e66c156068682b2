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

// Package evalexpr evaluates #if/#elif constant expressions against an
// assumed symbol table, in the same pass that decides which bytes of
// the expression's source text are now dead and should be cut by
// lineview. It never expands macros into a rebuilt expression string;
// it only ever decides, for the text that is already there, what can be
// proven true, false, or neither.
package evalexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/uncpp/uncpp/internal/chew"
	"github.com/uncpp/uncpp/internal/linebuf"
	"github.com/uncpp/uncpp/internal/lineview"
	"github.com/uncpp/uncpp/internal/symtab"
)

// Options controls the parts of evaluation that are policy rather than
// grammar.
type Options struct {
	// EvalConsts, when false, keeps bare integer literals from driving
	// short-circuit or constant-folding decisions: "1 || FOO" is left
	// alone rather than collapsed to "1". Arithmetic still computes
	// their value either way, since otherwise comparisons like
	// "VERSION >= 3" could never resolve at all.
	EvalConsts bool
	// DelConsts, when false, keeps the literal text of a constant that
	// participated in a fold from being deleted, even though the fold
	// itself still happens to determine the line's fate.
	DelConsts bool
}

// Warner receives human-readable warnings encountered while evaluating
// an expression (empty replacement text, division by zero, overflow).
// It mirrors the original tool's practice of never treating these as
// fatal: evaluation degrades to unresolved and processing continues.
type Warner func(format string, args ...any)

// Parser evaluates one #if/#elif expression occupying a span of a
// single logical line already materialized by a linebuf.Buffer.
type Parser struct {
	line   []byte
	pos    int
	chewer *chew.Chewer
	syms   *symtab.Table
	view   *lineview.View
	opts   Options
	warn   Warner

	depth int // recursion depth guard for identifier expansion
}

const maxExpansionDepth = 64

// New creates a Parser that reads expression text from line starting at
// start, using c to skip whitespace/comments, syms to resolve
// identifiers, and (optionally) view to record byte spans that become
// provably dead. view may be nil when the caller only wants the boolean
// verdict and does not intend to rewrite the line.
func New(line []byte, start int, c *chew.Chewer, syms *symtab.Table, view *lineview.View, opts Options, warn Warner) *Parser {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &Parser{line: line, pos: start, chewer: c, syms: syms, view: view, opts: opts, warn: warn}
}

// Evaluate parses a full constant expression and returns its verdict
// along with the position just past the last token consumed.
func (p *Parser) Evaluate() (Verdict, int, error) {
	v, err := p.parseOr()
	if err != nil {
		return Verdict{}, p.pos, err
	}
	if tail, terr := p.peek(); terr == nil && tail.Kind != TokEOF {
		return Verdict{}, p.pos, fmt.Errorf("evalexpr: unexpected token %q after expression", tail.Text)
	} else if terr != nil {
		return Verdict{}, p.pos, terr
	}
	return v.toVerdict(), p.pos, nil
}

func (p *Parser) chewSkip() error {
	np, err := p.chewer.ChewOn(p.pos)
	if err != nil {
		return err
	}
	p.pos = np
	return nil
}

func (p *Parser) peek() (Token, error) {
	if err := p.chewSkip(); err != nil {
		return Token{}, err
	}
	return scanToken(p.line, p.pos), nil
}

func (p *Parser) advance() (Token, error) {
	tok, err := p.peek()
	if err != nil {
		return Token{}, err
	}
	p.pos = tok.End
	return tok, nil
}

func (p *Parser) expect(kind TokKind, what string) (Token, error) {
	tok, err := p.advance()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, fmt.Errorf("evalexpr: expected %s, got %q", what, tok.Text)
	}
	return tok, nil
}

// protected reports whether v should be shielded from short-circuit or
// constant-fold elimination.
func protected(v Value) bool { return v.KeepConst || v.Keep }

// markDead records that the source span [a, b) is now provably dead. No-op
// when the parser has no view attached.
func (p *Parser) markDead(a, b int) {
	if p.view != nil && b > a {
		p.view.MarkDelete(a, b)
	}
}

// --- precedence ladder, lowest to highest -------------------------------

func (p *Parser) parseOr() (Value, error) {
	left, err := p.parseAnd()
	if err != nil {
		return Value{}, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return Value{}, err
		}
		if tok.Kind != TokOrOr {
			return left, nil
		}
		if _, err := p.advance(); err != nil {
			return Value{}, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return Value{}, err
		}
		left = p.foldOr(left, right)
	}
}

func (p *Parser) parseAnd() (Value, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return Value{}, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return Value{}, err
		}
		if tok.Kind != TokAndAnd {
			return left, nil
		}
		if _, err := p.advance(); err != nil {
			return Value{}, err
		}
		right, err := p.parseBitOr()
		if err != nil {
			return Value{}, err
		}
		left = p.foldAnd(left, right)
	}
}

// foldOr combines left || right, pruning dead text when left alone
// decides the answer.
func (p *Parser) foldOr(left, right Value) Value {
	out := Value{Start: left.Start, End: right.End}
	out.KeepConst = left.KeepConst || right.KeepConst
	out.Keep = left.Keep || right.Keep
	out.Insoluble = left.Insoluble || right.Insoluble

	if left.Resolved && !protected(left) {
		if left.True {
			p.markDead(left.End, right.End) // drop " || right"
			return resolvedBool(true, left.Start, left.End)
		}
		p.markDead(left.Start, right.Start) // drop "left || "
		res := right
		res.Start, res.End = left.Start, right.End
		return res
	}
	if right.Resolved && right.True && !protected(right) {
		out.Resolved, out.True, out.Int = true, true, 1
		return out
	}
	if left.Resolved && right.Resolved {
		out.Resolved = true
		out.True = left.True || right.True
		if out.True {
			out.Int = 1
		}
	}
	return out
}

func (p *Parser) foldAnd(left, right Value) Value {
	out := Value{Start: left.Start, End: right.End}
	out.KeepConst = left.KeepConst || right.KeepConst
	out.Keep = left.Keep || right.Keep
	out.Insoluble = left.Insoluble || right.Insoluble

	if left.Resolved && !protected(left) {
		if !left.True {
			p.markDead(left.End, right.End) // drop " && right"
			return resolvedBool(false, left.Start, left.End)
		}
		p.markDead(left.Start, right.Start) // drop "left && "
		res := right
		res.Start, res.End = left.Start, right.End
		return res
	}
	if right.Resolved && !right.True && !protected(right) {
		out.Resolved, out.True, out.Int = true, false, 0
		return out
	}
	if left.Resolved && right.Resolved {
		out.Resolved = true
		out.True = left.True && right.True
		if out.True {
			out.Int = 1
		}
	}
	return out
}

type binLevel struct {
	kinds []TokKind
	next  func(*Parser) (Value, error)
	apply func(op TokKind, a, b int32) (int32, bool) // false => undefined (div/mod by zero)
}

func (p *Parser) parseBinary(lv binLevel) (Value, error) {
	left, err := lv.next(p)
	if err != nil {
		return Value{}, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return Value{}, err
		}
		matched := false
		for _, k := range lv.kinds {
			if tok.Kind == k {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		if _, err := p.advance(); err != nil {
			return Value{}, err
		}
		right, err := lv.next(p)
		if err != nil {
			return Value{}, err
		}
		left = p.combine(left, right, tok.Kind, lv.apply)
	}
}

// combine implements the non-short-circuiting binary operators: the
// result is resolved iff both operands are, and nothing about the
// operator or operands is ever pruned (only || and && do that).
func (p *Parser) combine(left, right Value, op TokKind, apply func(TokKind, int32, int32) (int32, bool)) Value {
	out := Value{Start: left.Start, End: right.End}
	out.KeepConst = left.KeepConst || right.KeepConst
	out.Keep = left.Keep || right.Keep
	out.Insoluble = left.Insoluble || right.Insoluble
	if left.Resolved && right.Resolved {
		n, ok := apply(op, left.Int, right.Int)
		if !ok {
			p.warn("division by zero in constant expression, treating as unresolved")
			return out
		}
		out.Resolved = true
		out.Int = n
		out.True = n != 0
	}
	return out
}

func i32bool(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (p *Parser) parseBitOr() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokPipe}, (*Parser).parseBitXor, func(_ TokKind, a, b int32) (int32, bool) { return a | b, true }})
}

func (p *Parser) parseBitXor() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokCaret}, (*Parser).parseBitAnd, func(_ TokKind, a, b int32) (int32, bool) { return a ^ b, true }})
}

func (p *Parser) parseBitAnd() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokAmp}, (*Parser).parseEquality, func(_ TokKind, a, b int32) (int32, bool) { return a & b, true }})
}

func (p *Parser) parseEquality() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokEq, TokNe}, (*Parser).parseRelational, func(op TokKind, a, b int32) (int32, bool) {
		if op == TokEq {
			return i32bool(a == b), true
		}
		return i32bool(a != b), true
	}})
}

func (p *Parser) parseRelational() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokLt, TokLe, TokGt, TokGe}, (*Parser).parseShift, func(op TokKind, a, b int32) (int32, bool) {
		switch op {
		case TokLt:
			return i32bool(a < b), true
		case TokLe:
			return i32bool(a <= b), true
		case TokGt:
			return i32bool(a > b), true
		default:
			return i32bool(a >= b), true
		}
	}})
}

func (p *Parser) parseShift() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokShl, TokShr}, (*Parser).parseAdditive, func(op TokKind, a, b int32) (int32, bool) {
		shift := uint32(b) % 32
		if op == TokShl {
			return a << shift, true
		}
		return a >> shift, true
	}})
}

func (p *Parser) parseAdditive() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokPlus, TokMinus}, (*Parser).parseMultiplicative, func(op TokKind, a, b int32) (int32, bool) {
		if op == TokPlus {
			return a + b, true
		}
		return a - b, true
	}})
}

func (p *Parser) parseMultiplicative() (Value, error) {
	return p.parseBinary(binLevel{[]TokKind{TokStar, TokSlash, TokPercent}, (*Parser).parseUnary, func(op TokKind, a, b int32) (int32, bool) {
		switch op {
		case TokStar:
			return a * b, true
		case TokSlash:
			if b == 0 {
				return 0, false
			}
			return a / b, true
		default:
			if b == 0 {
				return 0, false
			}
			return a % b, true
		}
	}})
}

func (p *Parser) parseUnary() (Value, error) {
	tok, err := p.peek()
	if err != nil {
		return Value{}, err
	}
	switch tok.Kind {
	case TokNot, TokTilde, TokPlus, TokMinus:
		if _, err := p.advance(); err != nil {
			return Value{}, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return Value{}, err
		}
		out := operand
		out.Start = tok.Start
		if operand.Resolved {
			switch tok.Kind {
			case TokNot:
				out.True = !operand.True
				out.Int = i32bool(out.True)
			case TokTilde:
				out.Int = ^operand.Int
				out.True = out.Int != 0
			case TokMinus:
				out.Int = -operand.Int
				out.True = out.Int != 0
			case TokPlus:
				// no-op
			}
		}
		return out, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (Value, error) {
	tok, err := p.advance()
	if err != nil {
		return Value{}, err
	}
	switch tok.Kind {
	case TokInt:
		n, ok := parseIntLiteral(tok.Text)
		if !ok {
			p.warn("malformed or out-of-range integer constant %q, treating as unresolved", tok.Text)
			return unresolved(tok.Start, tok.End), nil
		}
		v := resolvedInt(n, tok.Start, tok.End)
		v.Const = true
		if !p.opts.EvalConsts {
			v.KeepConst = true
		}
		if !p.opts.DelConsts {
			v.Keep = true
		}
		return v, nil

	case TokDefined:
		return p.parseDefined(tok)

	case TokIdent:
		return p.parseIdentifier(tok)

	case TokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return Value{}, err
		}
		rparen, err := p.expect(TokRParen, "')'")
		if err != nil {
			return Value{}, err
		}
		if p.view != nil && inner.Resolved {
			p.view.MarkParen(tok.Start, rparen.Start)
		}
		inner.Start, inner.End = tok.Start, rparen.End
		return inner, nil

	default:
		return Value{}, fmt.Errorf("evalexpr: unexpected token %q", tok.Text)
	}
}

func (p *Parser) parseDefined(definedTok Token) (Value, error) {
	paren := false
	tok, err := p.peek()
	if err != nil {
		return Value{}, err
	}
	if tok.Kind == TokLParen {
		if _, err := p.advance(); err != nil {
			return Value{}, err
		}
		paren = true
	}
	nameTok, err := p.expect(TokIdent, "identifier")
	if err != nil {
		return Value{}, err
	}
	end := nameTok.End
	if paren {
		rp, err := p.expect(TokRParen, "')'")
		if err != nil {
			return Value{}, err
		}
		end = rp.End
	}

	idx := p.syms.FindName(nameTok.Text)
	if idx < 0 {
		return insoluble(definedTok.Start, end), nil
	}
	return resolvedBool(p.syms.At(idx).Defined(), definedTok.Start, end), nil
}

func (p *Parser) parseIdentifier(tok Token) (Value, error) {
	idx, _ := p.syms.Find(tok.Text)
	if idx < 0 {
		// No assumption was ever recorded for this name: its truth is
		// simply unknown, not "assumed false". Unlike defined(), bare
		// reference to an unconfigured identifier never touches the
		// table (matching eval_unary's symchar branch, which looks the
		// symbol up and moves on without inserting anything on a miss).
		return unresolved(tok.Start, tok.End), nil
	}

	sym := p.syms.At(idx)
	if !sym.Defined() {
		// A row exists with Def == nil only because of an explicit -U
		// (or an #undef/complement arriving at that same state): the
		// symbol is assumed undefined, so a bare reference to it is
		// definite false, matching eval_symbol's "!symdef → EVAL_FALSE".
		return resolvedBool(false, tok.Start, tok.End), nil
	}
	if *sym.Def == "" {
		p.warn("empty symbol %q in expression", tok.Text)
		return insoluble(tok.Start, tok.End), nil
	}
	if sym.Visited {
		p.warn("circular definition of %q in expression", tok.Text)
		return insoluble(tok.Start, tok.End), nil
	}
	if p.depth >= maxExpansionDepth {
		p.warn("definition of %q nested too deeply, treating as unresolved", tok.Text)
		return insoluble(tok.Start, tok.End), nil
	}

	name := tok.Text
	def := *sym.Def
	sym.Visited = true
	// Re-fetch the symbol by name after recursing rather than holding
	// sym or idx across the call: a #define/#undef nested inside the
	// replacement text (by further expansion) could in principle still
	// mutate the shared table, which can reallocate its backing slice
	// and shift every later index, stranding a pointer or index
	// obtained before the call.
	sub, err := evalReplacementText(def, p.syms, p.opts, p.warn, p.depth+1)
	if i := p.syms.FindName(name); i >= 0 {
		p.syms.At(i).Visited = false
	}
	if err != nil {
		p.warn("malformed definition of %q (%v), treating as unresolved", tok.Text, err)
		return insoluble(tok.Start, tok.End), nil
	}
	sub.Start, sub.End = tok.Start, tok.End
	sub.KeepConst = true // a macro-derived truth must never drive || / && pruning of source text
	return sub, nil
}

// evalReplacementText evaluates a symbol's replacement text as a
// self-contained expression, with no source line or rewriter attached:
// identifiers can still recurse further, but nothing here is ever
// marked for deletion, since the text being evaluated does not exist in
// the file being rewritten.
func evalReplacementText(text string, syms *symtab.Table, opts Options, warn Warner, depth int) (Value, error) {
	buf := linebuf.New(strings.NewReader(text + "\n"))
	if ok, err := buf.GetLine(); err != nil || !ok {
		return Value{}, fmt.Errorf("empty replacement text")
	}
	c := chew.New(buf)
	sub := New(buf.Bytes(), 0, c, syms, nil, opts, warn)
	sub.depth = depth
	v, err := sub.parseOr()
	return v, err
}

// parseIntLiteral parses a C integer-constant token (decimal, octal, or
// hex, with an optional u/U/l/L suffix combination) and reports whether
// it was well-formed and within the 32-bit signed range. A literal above
// that maximum is rejected rather than wrapped; only arithmetic on
// values already parsed wraps.
func parseIntLiteral(text string) (int32, bool) {
	end := len(text)
	for end > 0 && isSuffixChar(text[end-1]) {
		end--
	}
	digits := text[:end]
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 0, 64)
	if err != nil || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}
