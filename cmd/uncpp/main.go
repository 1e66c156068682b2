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

// Command uncpp rewrites C/C++ source files to remove #if/#ifdef/#elif
// branches whose outcome is known from a set of assumed symbols,
// collapsing dead branches and simplifying conditions that can be
// partly resolved.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/uncpp/uncpp/internal/cliopts"
	"github.com/uncpp/uncpp/internal/diagnostics"
	"github.com/uncpp/uncpp/internal/engine"
	"github.com/uncpp/uncpp/internal/fsreplace"
	"github.com/uncpp/uncpp/internal/fswalk"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(argv []string, stdout io.Writer) int {
	logger := diagnostics.New(log.New(os.Stderr, "uncpp: ", 0))

	opts, err := cliopts.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	files, err := fswalk.Walk(opts.Paths, opts.Extensions)
	if err != nil {
		logger.Abend("%v", err)
		return logger.ExitCode()
	}

	eng := engine.New(opts, logger)
	writeOutput := stdout.Write
	if len(files) > 1 && !opts.InPlace {
		logger.Abend("-i is required when rewriting more than one file")
		return logger.ExitCode()
	}

	for _, path := range files {
		if err := processOne(eng, opts, path, writeOutput); err != nil {
			logger.Error("%v", err)
			if !opts.KeepGoing {
				break
			}
		}
	}

	return logger.ExitCode()
}

func processOne(eng *engine.Engine, opts *cliopts.Options, path string, writeStdout func([]byte) (int, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	output, changed, err := eng.Process(path, f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if !opts.InPlace {
		_, err := writeStdout(output)
		return err
	}
	if !changed {
		return nil
	}
	return fsreplace.Replace(path, output, opts.BackupSuffix)
}
