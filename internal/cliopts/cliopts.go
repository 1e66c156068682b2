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

// Package cliopts parses the command-line surface: which symbols are
// assumed defined or undefined, how contradictions and constants are
// handled, and which paths to walk. Flags are collected on a private
// flag.FlagSet rather than flag.CommandLine so that tests (and
// eventually a library caller) can parse an arbitrary argv without
// touching global state.
package cliopts

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/uncpp/uncpp/internal/contradiction"
	"github.com/uncpp/uncpp/internal/evalexpr"
	"github.com/uncpp/uncpp/internal/platform"
	"github.com/uncpp/uncpp/internal/symtab"
)

// Options holds every setting that affects how files are rewritten.
type Options struct {
	Symbols symtab.Table

	Contradiction contradiction.Policy
	Discard       DiscardPolicy
	Eval          evalexpr.Options

	Complement     bool // invert the sense of every -D/-U assumption
	Plaintext      bool // do not parse comments/quotes, treat input as opaque text
	LineDirectives bool // emit "#line" directives for dropped line ranges
	KeepGoing      bool // do not abort the whole run on a per-file error
	InPlace        bool // rewrite files in place rather than to stdout
	BackupSuffix   string

	Extensions []string // glob patterns selecting which walked files are rewritten

	Paths []string // files/directories named on the command line
}

// stringListValue implements flag.Value to collect a flag that may be
// repeated, following the same shape as the vendor indexer's
// -select flag.
type stringListValue struct{ values *[]string }

func (v stringListValue) String() string {
	if v.values == nil {
		return ""
	}
	return strings.Join(*v.values, ",")
}

func (v stringListValue) Set(s string) error {
	*v.values = append(*v.values, s)
	return nil
}

// defineValue implements flag.Value for "-D NAME" and "-D NAME=TEXT".
type defineValue struct{ symbols *symtab.Table }

func (d defineValue) String() string { return "" }

func (d defineValue) Set(s string) error {
	name, text, hasText := strings.Cut(s, "=")
	if !symtab.NameRegexp.MatchString(name) {
		return fmt.Errorf("cliopts: %q is not a valid identifier", name)
	}
	def := ""
	if hasText {
		def = text
	}
	d.symbols.Add(symtab.Symbol{Name: name, Def: &def})
	return nil
}

// undefValue implements flag.Value for "-U NAME".
type undefValue struct{ symbols *symtab.Table }

func (u undefValue) String() string { return "" }

func (u undefValue) Set(s string) error {
	if !symtab.NameRegexp.MatchString(s) {
		return fmt.Errorf("cliopts: %q is not a valid identifier", s)
	}
	u.symbols.Add(symtab.Symbol{Name: s, Def: nil})
	return nil
}

// DiscardPolicy selects how a line dropped by conditional-rewriting
// (as opposed to a contradictory #define/#undef) is rendered in output.
type DiscardPolicy int

const (
	// DiscardDrop omits the discarded line from output entirely.
	DiscardDrop DiscardPolicy = iota
	// DiscardBlank replaces the discarded line with an empty line, so
	// surrounding line numbers are undisturbed.
	DiscardBlank
	// DiscardComment replaces the discarded line with a "//uncpp < "
	// comment carrying the original text.
	DiscardComment
)

type discardValue struct{ p *DiscardPolicy }

func (d discardValue) String() string {
	if d.p == nil {
		return "drop"
	}
	switch *d.p {
	case DiscardBlank:
		return "blank"
	case DiscardComment:
		return "comment"
	default:
		return "drop"
	}
}

func (d discardValue) Set(s string) error {
	switch s {
	case "drop":
		*d.p = DiscardDrop
	case "blank":
		*d.p = DiscardBlank
	case "comment":
		*d.p = DiscardComment
	default:
		return fmt.Errorf("cliopts: -discard must be one of drop, blank, comment (got %q)", s)
	}
	return nil
}

type contradictionValue struct{ p *contradiction.Policy }

func (c contradictionValue) String() string {
	if c.p == nil {
		return "comment"
	}
	switch *c.p {
	case contradiction.Delete:
		return "delete"
	case contradiction.Error:
		return "error"
	default:
		return "comment"
	}
}

func (c contradictionValue) Set(s string) error {
	switch s {
	case "delete":
		*c.p = contradiction.Delete
	case "comment":
		*c.p = contradiction.Comment
	case "error":
		*c.p = contradiction.Error
	default:
		return fmt.Errorf("cliopts: --conflict must be one of delete, comment, error (got %q)", s)
	}
	return nil
}

// assumeFile is the schema accepted by -assume-file, a YAML document
// listing -D/-U style assumptions too numerous or too environment-
// specific to spell out on the command line every time.
type assumeFile struct {
	Define   map[string]string `yaml:"define"`
	Undefine []string          `yaml:"undefine"`
}

func loadAssumeFile(path string, symbols *symtab.Table) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cliopts: reading assume file: %w", err)
	}
	var doc assumeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("cliopts: parsing assume file %s: %w", path, err)
	}
	for name, text := range doc.Define {
		if !symtab.NameRegexp.MatchString(name) {
			return fmt.Errorf("cliopts: %s: %q is not a valid identifier", path, name)
		}
		def := text
		symbols.Add(symtab.Symbol{Name: name, Def: &def})
	}
	for _, name := range doc.Undefine {
		if !symtab.NameRegexp.MatchString(name) {
			return fmt.Errorf("cliopts: %s: %q is not a valid identifier", path, name)
		}
		symbols.Add(symtab.Symbol{Name: name, Def: nil})
	}
	return nil
}

// seedPlatform adds the predefined macros of the named platform
// (e.g. "linux/x86_64") as assumptions, the way an actual compiler
// invocation for that target would define them. A name already
// decided by an explicit -D/-U is left alone: command-line assumptions
// always take precedence over the platform preset.
func seedPlatform(spec string, symbols *symtab.Table) error {
	p, err := platform.Parse(spec)
	if err != nil {
		return fmt.Errorf("cliopts: -assume-platform: %w", err)
	}
	macros, ok := platform.Macros(p)
	if !ok {
		return fmt.Errorf("cliopts: -assume-platform: no known macros for %s", p)
	}
	for name, text := range macros {
		if symbols.FindName(name) >= 0 {
			continue
		}
		def := text
		symbols.Add(symtab.Symbol{Name: name, Def: &def})
	}
	return nil
}

// Parse parses argv (excluding the program name) into an Options.
func Parse(argv []string) (*Options, error) {
	opts := &Options{BackupSuffix: ".orig", Contradiction: contradiction.Comment}

	fs := flag.NewFlagSet("uncpp", flag.ContinueOnError)
	fs.Var(defineValue{&opts.Symbols}, "D", "assume the named symbol is defined, optionally as NAME=TEXT (repeatable)")
	fs.Var(undefValue{&opts.Symbols}, "U", "assume the named symbol is undefined (repeatable)")
	var assumeFilePath string
	fs.StringVar(&assumeFilePath, "assume-file", "", "load additional -D/-U assumptions from a YAML file")
	var assumePlatform string
	fs.StringVar(&assumePlatform, "assume-platform", "", "seed assumptions with a target platform's predefined macros, e.g. linux/x86_64 (explicit -D/-U take precedence)")
	fs.Var(contradictionValue{&opts.Contradiction}, "conflict", "how to handle a #define/#undef that contradicts an assumption: delete, comment, error (default comment)")
	fs.Var(discardValue{&opts.Discard}, "discard", "how to render a line dropped by conditional rewriting: drop, blank, comment (default drop)")
	fs.BoolVar(&opts.Eval.EvalConsts, "e", false, "also fold bare integer constants in || and && expressions")
	delConsts := fs.Bool("del-consts", true, "allow folded integer constants to be deleted from output")
	fs.BoolVar(&opts.Complement, "c", false, "complement: invert the sense of every -D/-U assumption")
	fs.BoolVar(&opts.Plaintext, "t", false, "treat input as plain text: do not parse comments or quoted strings")
	fs.BoolVar(&opts.LineDirectives, "line-directives", false, "emit #line directives so dropped line numbers stay traceable")
	fs.BoolVar(&opts.KeepGoing, "k", false, "keep processing remaining files after an error in one of them")
	fs.BoolVar(&opts.InPlace, "i", false, "rewrite files in place instead of writing to stdout")
	fs.StringVar(&opts.BackupSuffix, "backup-suffix", opts.BackupSuffix, "suffix for the backup kept when rewriting in place")
	fs.Var(stringListValue{&opts.Extensions}, "ext", "glob pattern selecting which files a directory walk should rewrite (repeatable, default **/*.c, **/*.h, **/*.cc, **/*.cpp, **/*.hpp and **/*.hh)")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	opts.Eval.DelConsts = *delConsts

	if assumePlatform != "" {
		if err := seedPlatform(assumePlatform, &opts.Symbols); err != nil {
			return nil, err
		}
	}
	if assumeFilePath != "" {
		if err := loadAssumeFile(assumeFilePath, &opts.Symbols); err != nil {
			return nil, err
		}
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{"**/*.c", "**/*.h", "**/*.cc", "**/*.cpp", "**/*.hpp", "**/*.hh"}
	}

	opts.Paths = fs.Args()
	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("cliopts: at least one file or directory argument is required")
	}

	if opts.Complement {
		complement(&opts.Symbols)
	}

	return opts, nil
}

// complement flips every recorded assumption: defined becomes
// undefined and vice versa, an empty replacement text standing in for
// "defined, no particular value" either way. This lets one set of
// -D/-U flags double as its own inverse for a second pass, the way the
// original tool's --complement switch does.
func complement(t *symtab.Table) {
	for i := 0; i < t.Len(); i++ {
		sym := t.At(i)
		if sym.Defined() {
			sym.Def = nil
		} else {
			empty := ""
			sym.Def = &empty
		}
	}
}
