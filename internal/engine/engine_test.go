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

package engine

import (
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uncpp/uncpp/internal/cliopts"
	"github.com/uncpp/uncpp/internal/contradiction"
	"github.com/uncpp/uncpp/internal/diagnostics"
	"github.com/uncpp/uncpp/internal/symtab"
)

func strp(s string) *string { return &s }

func newEngine(t *testing.T, symbols ...symtab.Symbol) (*Engine, *diagnostics.Log) {
	t.Helper()
	opts := &cliopts.Options{Contradiction: contradiction.Comment}
	for _, s := range symbols {
		opts.Symbols.Add(s)
	}
	logger := diagnostics.New(log.New(strings.NewReader(""), "", 0))
	return New(opts, logger), logger
}

func process(t *testing.T, e *Engine, input string) string {
	t.Helper()
	out, _, err := e.Process("test.h", strings.NewReader(input))
	require.NoError(t, err)
	return string(out)
}

func TestProcessDropsDeadBranch(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "DEBUG", Def: nil})
	input := "#if defined(DEBUG)\nlog();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, "", got)
}

func TestProcessKeepsTrueBranchUnwrapped(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "DEBUG", Def: strp("")})
	input := "#if defined(DEBUG)\nlog();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, "log();\n", got)
}

func TestProcessUnresolvedIfPassesThroughVerbatim(t *testing.T) {
	e, _ := newEngine(t)
	input := "#if SOME_UNKNOWN\nbody();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, input, got)
}

func TestProcessElifOnFalsePrefixBecomesIf(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "A", Def: nil})
	input := "#if defined(A)\nfoo();\n#elif UNKNOWN\nbar();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, "#if UNKNOWN\nbar();\n#endif\n", got)
}

func TestProcessElifTrueAfterUnresolvedBecomesElse(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "B", Def: strp("")})
	input := "#if UNKNOWN\nfoo();\n#elif defined(B)\nbar();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, "#if UNKNOWN\nfoo();\n#else\nbar();\n#endif\n", got)
}

func TestProcessConsistentUndefPassesThrough(t *testing.T) {
	e, _ := newEngine(t)
	input := "#undef FOO\n"
	got := process(t, e, input)
	assert.Equal(t, input, got)
}

func TestProcessContradictoryUndefCommented(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "FOO", Def: strp("")})
	got := process(t, e, "#undef FOO\n")
	assert.Contains(t, got, "//error :")
}

func TestProcessContradictoryUndefDeletePolicy(t *testing.T) {
	opts := &cliopts.Options{Contradiction: contradiction.Delete}
	opts.Symbols.Add(symtab.Symbol{Name: "FOO", Def: strp("")})
	logger := diagnostics.New(log.New(strings.NewReader(""), "", 0))
	e := New(opts, logger)
	got := process(t, e, "#undef FOO\n")
	assert.Equal(t, "", got)
}

func TestProcessOrphanEndifIsError(t *testing.T) {
	e, _ := newEngine(t)
	_, _, err := e.Process("test.h", strings.NewReader("#endif\n"))
	assert.Error(t, err)
}

func TestProcessUnterminatedIfIsError(t *testing.T) {
	e, _ := newEngine(t)
	_, _, err := e.Process("test.h", strings.NewReader("#if defined(X)\n"))
	assert.Error(t, err)
}

func TestProcessNestedIfInsideDeadBranchNeverEvaluated(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "OUTER", Def: nil})
	input := "#if defined(OUTER)\n#if UNDEFINED_AND_UNUSED\ninner();\n#endif\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, "", got)
}

func TestProcessMarksDroppedEvent(t *testing.T) {
	e, logger := newEngine(t, symtab.Symbol{Name: "DEBUG", Def: nil})
	_ = process(t, e, "#if defined(DEBUG)\nlog();\n#endif\n")
	assert.True(t, logger.Has(diagnostics.EventDroppedLines))
}

func TestProcessDefineContradictsAssumedUndef(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "FOO", Def: nil})
	got := process(t, e, "#define FOO\n")
	assert.Contains(t, got, "//error :")
	assert.Contains(t, got, `"#define FOO" contradicts -U`)
}

func TestProcessBareConstIfNotCollapsedWhenEvalConstsOff(t *testing.T) {
	e, _ := newEngine(t)
	input := "#if 1\nbody();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, input, got)
}

func TestProcessDiscardBlankKeepsLineCount(t *testing.T) {
	opts := &cliopts.Options{Contradiction: contradiction.Comment, Discard: cliopts.DiscardBlank}
	opts.Eval.EvalConsts = true
	logger := diagnostics.New(log.New(strings.NewReader(""), "", 0))
	e := New(opts, logger)
	got := process(t, e, "#if 0\nbody();\n#endif\n")
	assert.Equal(t, "\n\n\n", got)
}

func TestProcessDiscardCommentKeepsLineText(t *testing.T) {
	opts := &cliopts.Options{Contradiction: contradiction.Comment, Discard: cliopts.DiscardComment}
	opts.Symbols.Add(symtab.Symbol{Name: "DEBUG", Def: nil})
	logger := diagnostics.New(log.New(strings.NewReader(""), "", 0))
	e := New(opts, logger)
	got := process(t, e, "#if defined(DEBUG)\nbody();\n#endif\n")
	assert.Contains(t, got, "//uncpp < body();")
}

func TestProcessLineDirectivesReanchorAfterDrop(t *testing.T) {
	opts := &cliopts.Options{Contradiction: contradiction.Comment, LineDirectives: true}
	opts.Symbols.Add(symtab.Symbol{Name: "DEBUG", Def: nil})
	logger := diagnostics.New(log.New(strings.NewReader(""), "", 0))
	e := New(opts, logger)
	got := process(t, e, "#if defined(DEBUG)\nbody();\n#endif\nafter();\n")
	assert.Equal(t, "#line 4 \"test.h\"\nafter();\n", got)
}

func TestProcessShortCircuitOrPrunesKnownOperand(t *testing.T) {
	e, _ := newEngine(t, symtab.Symbol{Name: "ALWAYS", Def: strp("")})
	input := "#if defined(ALWAYS) || SOMETHING\nbody();\n#endif\n"
	got := process(t, e, input)
	assert.Equal(t, "body();\n", got)
}
