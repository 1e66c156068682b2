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

package ifstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrueIfDropsIfAndEndif(t *testing.T) {
	c := New()
	a, err := c.Step(True, 1)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)
	assert.Equal(t, 1, c.Depth())

	a, err = c.Step(Endif, 5)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)
	assert.Equal(t, 0, c.Depth())
}

func TestFalseIfDropsBodyUntilElse(t *testing.T) {
	c := New()
	_, err := c.Step(False, 1)
	require.NoError(t, err)
	assert.True(t, c.Dropping())

	a, err := c.Step(Plain, 2)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)

	a, err = c.Step(Else, 3)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)
	assert.False(t, c.Dropping())

	a, err = c.Step(Plain, 4)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)

	a, err = c.Step(Endif, 5)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)
}

func TestUnresolvedIfIsPrintedVerbatim(t *testing.T) {
	c := New()
	a, err := c.Step(If, 1)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)
	assert.Empty(t, a.Keyword)

	a, err = c.Step(Endif, 2)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)
}

func TestUnresolvedElifOnFalsePrefixBecomesIf(t *testing.T) {
	c := New()
	_, err := c.Step(False, 1)
	require.NoError(t, err)

	a, err := c.Step(Elif, 2)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)
	assert.Equal(t, "if", a.Keyword)
}

func TestTrueElifAfterUnresolvedIfBecomesElse(t *testing.T) {
	c := New()
	_, err := c.Step(If, 1)
	require.NoError(t, err)

	a, err := c.Step(ElTrue, 2)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)
	assert.Equal(t, "else", a.Keyword)
}

func TestElifAfterTrueMiddleBecomesEndifAndRealEndifDrops(t *testing.T) {
	c := New()
	_, err := c.Step(If, 1)
	require.NoError(t, err)
	_, err = c.Step(ElTrue, 2) // -> TrueMiddle, keyword rewritten to else
	require.NoError(t, err)

	a, err := c.Step(ElFalse, 3)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)
	assert.Equal(t, "endif", a.Keyword)

	a, err = c.Step(Endif, 4)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)
}

func TestNestedIfInsideDeadBranchIsDroppedRegardlessOfTruth(t *testing.T) {
	c := New()
	_, err := c.Step(False, 1)
	require.NoError(t, err)

	a, err := c.Step(True, 2) // nested #if that is itself TRUE, but outer is false
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)
	assert.Equal(t, 2, c.Depth())

	a, err = c.Step(Plain, 3)
	require.NoError(t, err)
	assert.Equal(t, EmitDrop, a.Emit)

	_, err = c.Step(Endif, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Depth())
}

func TestOrphanEndifIsError(t *testing.T) {
	c := New()
	_, err := c.Step(Endif, 1)
	assert.ErrorIs(t, err, ErrOrphanEndif)
}

func TestOrphanElseIsError(t *testing.T) {
	c := New()
	_, err := c.Step(Else, 1)
	assert.ErrorIs(t, err, ErrOrphanElse)
}

func TestUnterminatedIfAtEOFIsError(t *testing.T) {
	c := New()
	_, err := c.Step(True, 1)
	require.NoError(t, err)
	_, err = c.Step(EOF, 2)
	assert.ErrorIs(t, err, ErrUnterminated)
}

func TestEOFAtTopLevelIsFine(t *testing.T) {
	c := New()
	a, err := c.Step(EOF, 1)
	require.NoError(t, err)
	assert.Equal(t, EmitPrint, a.Emit)
}

func TestTooDeepNestingIsError(t *testing.T) {
	c := New()
	var err error
	for i := 0; i < MaxDepth; i++ {
		_, err = c.Step(True, i)
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrTooDeep)
}
