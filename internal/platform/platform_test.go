// Copyright 2026 EngFlow Inc. All rights reserved.
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

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolvesAliases(t *testing.T) {
	p, err := Parse("macos/arm64")
	require.NoError(t, err)
	assert.Equal(t, Platform{OS: osx, Arch: aarch64}, p)
}

func TestParseRejectsUnknownOS(t *testing.T) {
	_, err := Parse("beos/x86_64")
	assert.Error(t, err)
}

func TestParseAcceptsOSOnly(t *testing.T) {
	p, err := Parse("linux")
	require.NoError(t, err)
	assert.Equal(t, Platform{OS: linux}, p)
}

func TestMacrosMergesWideAndExactEntries(t *testing.T) {
	p, err := Parse("windows/x86_64")
	require.NoError(t, err)
	macros, ok := Macros(p)
	require.True(t, ok)
	assert.Equal(t, "1", macros["_WIN32"])
	assert.Equal(t, "1", macros["_WIN64"])
	assert.NotContains(t, macros, "__linux__")
}

func TestMacrosLinuxIncludesUnix(t *testing.T) {
	p, err := Parse("linux/x86_64")
	require.NoError(t, err)
	macros, ok := Macros(p)
	require.True(t, ok)
	assert.Equal(t, "1", macros["__linux__"])
	assert.Equal(t, "1", macros["unix"])
	assert.Equal(t, "1", macros["__x86_64__"])
}
