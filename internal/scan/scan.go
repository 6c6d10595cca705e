// Package scan reads a source file's top-level attribute forms and
// extracts the raw references to other files or modules those
// attributes name.
//
// The scanner is pure with respect to the input file's bytes — it never
// opens or follows any of the references it produces — and it never fails
// the whole scan because one form couldn't be parsed. A malformed form is
// skipped and scanning continues with the next one; the real compiler is
// responsible for reporting syntax errors.
package scan

import (
	"os"
	"regexp"
	"strings"
)

// Kind identifies which attribute produced a Reference.
type Kind int

const (
	// KindPath references are already a path (possibly relative) to a
	// header file: -include and -file attributes.
	KindPath Kind = iota
	// KindLibPath references are library-relative paths: -include_lib.
	KindLibPath
	// KindModule references name another module that must be mapped to
	// "<module>.<source-extension>" by the caller: -import, -behaviour,
	// and the parse_transform/core_transform entries of -compile.
	KindModule
)

// Reference is one raw reference extracted from a source file's
// attributes, before any resolution against the filesystem.
type Reference struct {
	Kind Kind
	Name string // path (KindPath/KindLibPath) or bare module atom (KindModule)
}

var (
	includeRe    = regexp.MustCompile(`^-\s*include\s*\(\s*"([^"]*)"\s*\)\s*$`)
	includeLibRe = regexp.MustCompile(`^-\s*include_lib\s*\(\s*"([^"]*)"\s*\)\s*$`)
	fileRe       = regexp.MustCompile(`^-\s*file\s*\(\s*"([^"]*)"\s*,.*\)\s*$`)
	importRe     = regexp.MustCompile(`^-\s*import\s*\(\s*([a-zA-Z_][a-zA-Z0-9_@]*)\s*,`)
	behaviourRe  = regexp.MustCompile(`^-\s*behaviou?r\s*\(\s*([a-zA-Z_][a-zA-Z0-9_@]*)\s*\)\s*$`)
	compileRe    = regexp.MustCompile(`^-\s*compile\s*\((.*)\)\s*$`)
	transformRe  = regexp.MustCompile(`\{\s*(?:parse_transform|core_transform)\s*,\s*([a-zA-Z_][a-zA-Z0-9_@]*)\s*\}`)
)

// File scans the source file at path and returns its extracted
// references. It never returns an error for malformed content — only for
// the file being unreadable, which the caller treats as a scanner error
// (recoverable, logged, and the file simply yields no references).
func File(path string) ([]Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Bytes(data), nil
}

// Bytes scans raw source content and returns its extracted references.
func Bytes(src []byte) []Reference {
	var refs []Reference
	for _, form := range splitForms(src) {
		form = strings.TrimSpace(form)
		if form == "" || !strings.HasPrefix(form, "-") {
			continue
		}
		refs = append(refs, parseForm(form)...)
	}
	return refs
}

func parseForm(form string) []Reference {
	if m := includeRe.FindStringSubmatch(form); m != nil {
		return []Reference{{Kind: KindPath, Name: m[1]}}
	}
	if m := includeLibRe.FindStringSubmatch(form); m != nil {
		return []Reference{{Kind: KindLibPath, Name: m[1]}}
	}
	if m := fileRe.FindStringSubmatch(form); m != nil {
		return []Reference{{Kind: KindPath, Name: m[1]}}
	}
	if m := importRe.FindStringSubmatch(form); m != nil {
		return []Reference{{Kind: KindModule, Name: m[1]}}
	}
	if m := behaviourRe.FindStringSubmatch(form); m != nil {
		return []Reference{{Kind: KindModule, Name: m[1]}}
	}
	if m := compileRe.FindStringSubmatch(form); m != nil {
		var refs []Reference
		for _, tm := range transformRe.FindAllStringSubmatch(m[1], -1) {
			refs = append(refs, Reference{Kind: KindModule, Name: tm[1]})
		}
		return refs
	}
	// Unrecognized or malformed attribute form: skip it silently and let
	// scanning continue with the next form.
	return nil
}

// splitForms splits Erlang-shaped source into its top-level forms, each
// terminated by a "." at nesting depth zero outside of a string literal.
// It tolerates unbalanced or malformed input: at end-of-input it returns
// the forms already found plus any unterminated trailing text as one
// final form.
func splitForms(src []byte) []string {
	var forms []string
	var cur strings.Builder
	depth := 0
	inString := false
	escaped := false
	inComment := false

	flush := func() {
		if cur.Len() > 0 {
			forms = append(forms, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]

		if inComment {
			if c == '\n' {
				inComment = false
				cur.WriteByte(c)
			}
			continue
		}

		if inString {
			cur.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '%':
			inComment = true
		case '"':
			inString = true
			cur.WriteByte(c)
		case '(', '[', '{':
			depth++
			cur.WriteByte(c)
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(c)
		case '.':
			if depth == 0 {
				nextIsBoundary := i+1 >= len(src) || src[i+1] == '\n' || src[i+1] == ' ' ||
					src[i+1] == '\t' || src[i+1] == '\r'
				if nextIsBoundary {
					flush()
					continue
				}
			}
			cur.WriteByte(c)
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return forms
}
