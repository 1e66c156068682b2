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

// Package fswalk expands the file and directory arguments on the
// command line into the concrete list of files to rewrite, recursing
// into directories and filtering by the configured extension globs.
package fswalk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/uncpp/uncpp/internal/collections"
)

// Walk expands paths (files or directories) into a sorted, deduplicated
// list of regular files. Directories are walked recursively; a file
// inside a directory is kept only if its path relative to the walked
// root matches one of patterns (doublestar glob syntax, e.g.
// "**/*.c"). Files named explicitly on the command line are always
// kept, regardless of patterns.
func Walk(paths []string, patterns []string) ([]string, error) {
	seen := make(collections.Set[string])
	var out []string

	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if !seen.Contains(abs) {
			seen.Add(abs)
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("fswalk: %w", err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			if matches(rel, patterns) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("fswalk: walking %s: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

func matches(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	slashed := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, slashed); ok {
			return true
		}
	}
	return false
}
