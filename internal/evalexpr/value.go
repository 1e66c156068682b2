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

package evalexpr

// Value is the result of evaluating a subexpression. Internally it is
// the flattened, legacy-shaped record the recursive evaluator threads
// through every reduction step, since that is what drives both the
// arithmetic and the in-place text rewriting in lockstep; Evaluate
// converts it to the Verdict sum type at the package boundary.
type Value struct {
	Resolved bool  // true when Int (and True/False) are meaningful
	True     bool  // only meaningful when Resolved
	Int      int32 // only meaningful when Resolved

	Const     bool // this subexpression is a bare integer literal
	KeepConst bool // must not be eliminated even when its value is known
	Keep      bool // literal text should survive rendering even if dead

	Insoluble bool // unresolved because of something we can never know (unknown defined())

	Start, End int // byte span of the (possibly already-pruned) text
}

func unresolved(start, end int) Value {
	return Value{Start: start, End: end}
}

func insoluble(start, end int) Value {
	return Value{Insoluble: true, Start: start, End: end}
}

func resolvedBool(truth bool, start, end int) Value {
	v := Value{Resolved: true, True: truth, Start: start, End: end}
	if truth {
		v.Int = 1
	}
	return v
}

func resolvedInt(n int32, start, end int) Value {
	return Value{Resolved: true, True: n != 0, Int: n, Start: start, End: end}
}

// Verdict is the public, sum-type-shaped result of evaluating a full
// #if/#elif expression: either a known truth value or "we don't know".
type Verdict struct {
	Resolved  bool
	True      bool
	Insoluble bool
	// KeepConst marks a result that is arithmetically known but must
	// not, by itself, be allowed to decide the line's fate: a bare
	// integer literal (e.g. "#if 1") when EvalConsts is off. The line
	// classifier treats a KeepConst verdict the same as an unresolved
	// one.
	KeepConst bool
}

func (v Value) toVerdict() Verdict {
	return Verdict{Resolved: v.Resolved, True: v.True, Insoluble: v.Insoluble, KeepConst: v.KeepConst}
}
