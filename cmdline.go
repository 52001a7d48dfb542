// cmdline.go: command-line argument surface for AppState (C7).
//
// Grounded on original_source/src/CAppState.cpp's argument parsing: a
// quoted-string-aware whitespace splitter that turns either a POSIX
// argv[] or a single Windows command-line string into the same
// indexed-argument model, plus a findArg/enumArg query pair for the
// external command-line interface.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"regexp"
	"strings"

	"github.com/spf13/pflag"
)

// CommandLine holds the parsed, indexed argument list: argument 0 is
// always the executable path.
type CommandLine struct {
	args []string
}

// NewCommandLineFromArgv builds a CommandLine directly from a POSIX-style
// argv slice, where argv[0] is already the executable path.
func NewCommandLineFromArgv(argv []string) *CommandLine {
	cp := make([]string, len(argv))
	copy(cp, argv)
	return &CommandLine{args: cp}
}

// NewCommandLineFromString builds a CommandLine from a single Windows-style
// command-line string that excludes the executable name; exePath is the
// queried executable path corerun synthesizes into slot 0.
func NewCommandLineFromString(cmdline, exePath string) *CommandLine {
	args := append([]string{exePath}, splitCommandLine(cmdline)...)
	return &CommandLine{args: args}
}

// splitCommandLine tokenizes s on whitespace, honoring double-quoted
// substrings as single tokens (the quotes themselves are stripped).
func splitCommandLine(s string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	hasToken := false

	flush := func() {
		if hasToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			hasToken = false
		}
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			hasToken = true
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
			hasToken = true
		}
	}
	flush()
	return tokens
}

// SplitKeyValue optionally splits a "key=value" argument into its two
// halves. ok is false if arg contains no '='.
func SplitKeyValue(arg string) (key, value string, ok bool) {
	idx := strings.IndexByte(arg, '=')
	if idx < 0 {
		return arg, "", false
	}
	return arg[:idx], arg[idx+1:], true
}

// Argc returns the number of arguments, including argument 0.
func (c *CommandLine) Argc() int {
	return len(c.args)
}

// EnumArg returns the i-th argument, or ok == false if i is out of range.
func (c *CommandLine) EnumArg(i int) (arg string, ok bool) {
	if i < 0 || i >= len(c.args) {
		return "", false
	}
	return c.args[i], true
}

// Args returns a copy of the full argument list, argument 0 included.
func (c *CommandLine) Args() []string {
	cp := make([]string, len(c.args))
	copy(cp, c.args)
	return cp
}

// FindArg searches arguments 1..N (argument 0, the executable path, is
// never matched) for name, either as an exact string or, when useRegex is
// true, as a regular expression. Returns the matching index, or ok ==
// false if nothing matched — this is a lookup miss, not an error.
func (c *CommandLine) FindArg(name string, useRegex, caseSensitive bool) (index int, ok bool) {
	var re *regexp.Regexp
	if useRegex {
		pattern := name
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return 0, false
		}
		re = compiled
	}

	for i := 1; i < len(c.args); i++ {
		arg := c.args[i]
		if useRegex {
			if re.MatchString(arg) {
				return i, true
			}
			continue
		}
		if caseSensitive {
			if arg == name {
				return i, true
			}
		} else if strings.EqualFold(arg, name) {
			return i, true
		}
	}
	return 0, false
}

// NewFlagSet returns an empty pflag.FlagSet named name, on which
// applications register conventional `--flag` options; ParseFlags then
// parses the argv corerun already tokenized (argument 0 excluded) into it. This
// does not replace FindArg/EnumArg — it is an additive convenience for
// callers that want normal flag parsing on top of the raw argument model.
func (c *CommandLine) NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	return fs
}

// ParseFlags parses this command line's arguments (argument 0 excluded)
// into fs.
func (c *CommandLine) ParseFlags(fs *pflag.FlagSet) error {
	if len(c.args) <= 1 {
		return fs.Parse(nil)
	}
	return fs.Parse(c.args[1:])
}
