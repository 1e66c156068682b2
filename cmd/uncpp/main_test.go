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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesResolvedOutputToStdout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.h")
	require.NoError(t, os.WriteFile(path, []byte("#if defined(DEBUG)\nlog();\n#endif\n"), 0o644))

	var out bytes.Buffer
	code := run([]string{"-D", "DEBUG", path}, &out)
	assert.Equal(t, 0, code&0x7)
	assert.Equal(t, "log();\n", out.String())
}

func TestRunInPlaceRewritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.h")
	require.NoError(t, os.WriteFile(path, []byte("#if defined(DEBUG)\nlog();\n#endif\n"), 0o644))

	var out bytes.Buffer
	run([]string{"-D", "DEBUG", "-i", path}, &out)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log();\n", string(got))

	backup, err := os.ReadFile(path + ".orig")
	require.NoError(t, err)
	assert.Equal(t, "#if defined(DEBUG)\nlog();\n#endif\n", string(backup))
}

func TestRunBadArgsReturnsNonZero(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{}, &out)
	assert.NotEqual(t, 0, code)
}
