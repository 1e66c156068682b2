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

// Package fsreplace implements in-place rewriting of a source file:
// the new content is written to a sibling temporary file, the original
// is preserved under a backup suffix, and the temporary file is then
// renamed over the original path. The rename is atomic on every
// platform this tool supports, so a process that is killed mid-write
// can never leave the original file half-overwritten; at worst it
// leaves a stray temporary file behind.
package fsreplace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Replace writes content to path, keeping the previous content at
// path+backupSuffix (unless backupSuffix is empty, in which case no
// backup is kept). It takes an advisory lock on the destination for
// the duration of the write, so a second uncpp process taking the same
// lock on the same file waits until the first releases it rather than
// interleaving output.
func Replace(path string, content []byte, backupSuffix string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".uncpp-*.tmp")
	if err != nil {
		return fmt.Errorf("fsreplace: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	unlock, err := lockPath(path)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("fsreplace: locking %s: %w", path, err)
	}
	defer unlock()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("fsreplace: writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsreplace: syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsreplace: closing %s: %w", tmpName, err)
	}

	if info, statErr := os.Stat(path); statErr == nil {
		if err := os.Chmod(tmpName, info.Mode()); err != nil {
			return fmt.Errorf("fsreplace: preserving mode of %s: %w", path, err)
		}
		if backupSuffix != "" {
			if err := copyFile(path, path+backupSuffix, info.Mode()); err != nil {
				return fmt.Errorf("fsreplace: backing up %s: %w", path, err)
			}
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("fsreplace: replacing %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}
