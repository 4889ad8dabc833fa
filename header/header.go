// Package header extracts the prelude marker and the imported module names
// from the top of a Lean source file. It only understands the header: it
// stops at the first command keyword.
package header

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	preludeWord = "prelude"
	importWord  = "import"
)

// keywords end the header. Any of these as a single word stops extraction.
var keywords = map[string]struct{}{
	"abbreviation":        {},
	"add_key_equivalence": {},
	"attribute":           {},
	"axiom":               {},
	"axioms":              {},
	"class":               {},
	"coinductive":         {},
	"constant":            {},
	"constants":           {},
	"definition":          {},
	"def":                 {},
	"declare_trace":       {},
	"example":             {},
	"export":              {},
	"hide":                {},
	"include":             {},
	"inductive":           {},
	"infix":               {},
	"infixl":              {},
	"infixr":              {},
	"init_quotient":       {},
	"instance":            {},
	"local":               {},
	"lemma":               {},
	"meta":                {},
	"mutual":              {},
	"namespace":           {},
	"noncomputable":       {},
	"notation":            {},
	"parameter":           {},
	"parameters":          {},
	"precedence":          {},
	"prefix":              {},
	"private":             {},
	"protected":           {},
	"postfix":             {},
	"reserve":             {},
	"run_cmd":             {},
	"omit":                {},
	"open":                {},
	"section":             {},
	"set_option":          {},
	"structure":           {},
	"theorem":             {},
	"universe":            {},
	"universes":           {},
	"variable":            {},
	"variables":           {},
}

// IsKeyword reports whether word ends a header.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// Header is what Parse found.
type Header struct {
	Prelude bool
	// Imports holds one entry per imported name, split on ".", in source
	// order. The relative form `import .foo` yields a leading "" segment.
	Imports [][]string
}

// ImportNames returns the imports joined back into dotted names.
func (h Header) ImportNames() []string {
	out := make([]string, 0, len(h.Imports))
	for _, segs := range h.Imports {
		out = append(out, strings.Join(segs, "."))
	}
	return out
}

// Parse reads the header of src. It never fails: anything it cannot
// tokenize (including an unterminated block comment) just ends the header.
func Parse(src []byte) Header {
	var h Header
	s := &scanner{src: src}
	for {
		if !s.skipSpace() {
			return h
		}
		word := s.word()
		if word == nil {
			return h
		}
		if len(word) == 1 {
			switch w := word[0]; {
			case w == preludeWord:
				h.Prelude = true
				continue
			case w == importWord:
				continue
			case IsKeyword(w):
				return h
			}
		}
		h.Imports = append(h.Imports, word)
	}
}

type scanner struct {
	src []byte
	pos int
}

func (s *scanner) rest() []byte {
	return s.src[s.pos:]
}

// skipSpace consumes whitespace and comments. It returns false when the
// input is exhausted or a block comment never closes.
func (s *scanner) skipSpace() bool {
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.pos++
		case hasPrefix(s.rest(), "/-"):
			end := strings.Index(string(s.rest()[2:]), "-/")
			if end < 0 {
				s.pos = len(s.src)
				return false
			}
			s.pos += 2 + end + 2
		case hasPrefix(s.rest(), "--"):
			end := strings.IndexAny(string(s.rest()), "\r\n")
			if end < 0 {
				s.pos = len(s.src)
				return false
			}
			s.pos += end + 1
		default:
			return true
		}
	}
	return false
}

// word reads a dotted name. It returns nil if nothing was consumed.
func (s *scanner) word() []string {
	start := s.pos
	segs := []string{s.segment()}
	for s.pos < len(s.src) && s.src[s.pos] == '.' {
		s.pos++
		segs = append(segs, s.segment())
	}
	if s.pos == start {
		return nil
	}
	return segs
}

func (s *scanner) segment() string {
	start := s.pos
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRune(s.src[s.pos:])
		if !isNameRune(r) {
			break
		}
		s.pos += size
	}
	return string(s.src[start:s.pos])
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func hasPrefix(b []byte, p string) bool {
	return len(b) >= len(p) && string(b[:len(p)]) == p
}
