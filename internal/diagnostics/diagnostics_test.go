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

package diagnostics

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityEscalatesToWorst(t *testing.T) {
	d := New(log.Default())
	d.Info("just fyi")
	d.Warn("something odd")
	assert.Equal(t, SeverityWarning, d.Severity())
	d.Info("fyi again")
	assert.Equal(t, SeverityWarning, d.Severity())
}

func TestMarkAndClearEvents(t *testing.T) {
	d := New(nil)
	d.Mark(EventDroppedLines)
	assert.True(t, d.Has(EventDroppedLines))
	d.Clear(EventDroppedLines)
	assert.False(t, d.Has(EventDroppedLines))
}

func TestExitCodePacksEvents(t *testing.T) {
	d := New(nil)
	d.Warn("conflict resolved")
	d.Mark(EventDroppedLines)
	d.Mark(EventChangedLines)
	code := d.ExitCode()
	assert.Equal(t, int(SeverityWarning), code&0x7)
	assert.NotZero(t, code&(int(EventDroppedLines)<<3))
	assert.NotZero(t, code&(int(EventChangedLines)<<3))
}
