// This package is based on the Golang source code with some modifications.
//
// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package help implements the "vprinter help" command and the usage
// messages printed for unknown or bare invocations.
package help

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

// Help implements 'vprinter help <command>', walking args as a path
// through the command tree rooted at base.VprinterCommand.
func Help(w io.Writer, args []string) {
	cmd := base.VprinterCommand
Args:
	for _, arg := range args {
		for _, sub := range cmd.Commands {
			if sub.Name() == arg {
				cmd = sub
				continue Args
			}
		}
		fmt.Fprintf(os.Stderr, "vprinter help %s: unknown help topic. Run 'vprinter help'.\n", strings.Join(args, " "))
		base.SetExitStatus(base.SInvalidParameters)
		base.Exit()
	}

	if len(cmd.Commands) > 0 {
		PrintUsage(w, cmd)
		return
	}

	tmpl(w, helpTemplate, cmd)
}

// PrintUsage prints the usage message for cmd to w, including the table
// of subcommands if it has any.
func PrintUsage(w io.Writer, cmd *base.Command) {
	tmpl(w, usageTemplate, cmd)
}

// tmpl executes text, a template string with {{.Markdown}} /
// {{.UsageLine}} /{{.Commands}} placeholders, against data and writes
// the result to w. A failing template is a programmer error, so this
// panics rather than returning an error, matching the upstream package's
// own behavior.
func tmpl(w io.Writer, text string, data any) {
	t := template.New("top")
	t.Funcs(template.FuncMap{
		"trim":       strings.TrimSpace,
		"capitalize": capitalize,
	})
	template.Must(t.Parse(text))
	if err := t.Execute(w, data); err != nil {
		panic(err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToTitle(r)) + s[n:]
}
