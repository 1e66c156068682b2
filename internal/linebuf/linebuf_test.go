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

package linebuf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLineBasic(t *testing.T) {
	b := New(strings.NewReader("one\ntwo\n"))

	ok, err := b.GetLine()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(b.Bytes()))
	assert.Equal(t, 1, b.LineNum())

	ok, err = b.GetLine()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(b.Bytes()))
	assert.Equal(t, 2, b.LineNum())

	ok, err = b.GetLine()
	require.False(t, ok)
	require.NoError(t, err)
}

func TestGetLineMissingTrailingNewline(t *testing.T) {
	b := New(strings.NewReader("a\nb"))

	ok, err := b.GetLine()
	require.True(t, ok)
	require.NoError(t, err)

	ok, err = b.GetLine()
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrMissingNewline)
	assert.Equal(t, "b", string(b.Bytes()))
}

func TestExtendLine(t *testing.T) {
	b := New(strings.NewReader("a\\\nb\n"))
	ok, err := b.GetLine()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "a\\\n", string(b.Bytes()))

	require.NoError(t, b.ExtendLine())
	assert.Equal(t, "a\\\nb\n", string(b.Bytes()))
	assert.Equal(t, 1, b.ExtensionLines())
	assert.Equal(t, 1, b.LineNum())
}

func TestSaveReadPos(t *testing.T) {
	b := New(strings.NewReader("x\n"))
	b.SaveReadPos(3)
	assert.Equal(t, 3, b.SavedReadPos())
}
