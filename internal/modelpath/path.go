// Package modelpath parses module paths such as "transformer.h[3].attn.c_proj"
// into structured segments and walks them over a model handle.
package modelpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned by Parse for malformed paths.
var ErrSyntax = errors.New("modelpath: invalid path")

// Segment is a single step in a Path: either a named field or a list index.
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

// Field returns a named-field segment.
func Field(name string) Segment {
	return Segment{Name: name}
}

// Index returns a list-index segment.
func Index(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Name
}

// Path is an ordered sequence of segments starting at a model root.
type Path []Segment

// String renders the path in bracket form, e.g. "h[0].attn.q_proj".
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if !seg.IsIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// Dotted renders the path the way tensor names are written in checkpoint
// files, e.g. "h.0.attn.q_proj".
func (p Path) Dotted() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			parts[i] = strconv.Itoa(seg.Index)
		} else {
			parts[i] = seg.Name
		}
	}
	return strings.Join(parts, ".")
}

// Parse converts a path string into a Path. Both "h[3].attn" and "h.3.attn"
// are accepted; an all-digit dotted segment is treated as an index.
func Parse(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSyntax)
	}
	var out Path
	i := 0
	expectName := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '.':
			if expectName {
				return nil, fmt.Errorf("%w: unexpected '.' at %d in %q", ErrSyntax, i, s)
			}
			expectName = true
			i++
		case c == '[':
			if expectName {
				return nil, fmt.Errorf("%w: unexpected '[' at %d in %q", ErrSyntax, i, s)
			}
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated index in %q", ErrSyntax, s)
			}
			n, err := parseIndex(s[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w: %v in %q", ErrSyntax, err, s)
			}
			out = append(out, Index(n))
			i += end + 1
		default:
			if !expectName {
				return nil, fmt.Errorf("%w: missing separator at %d in %q", ErrSyntax, i, s)
			}
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("%w: unexpected %q at %d in %q", ErrSyntax, c, i, s)
			}
			tok := s[i:j]
			if isDigits(tok) {
				n, err := parseIndex(tok)
				if err != nil {
					return nil, fmt.Errorf("%w: %v in %q", ErrSyntax, err, s)
				}
				out = append(out, Index(n))
			} else {
				out = append(out, Field(tok))
			}
			expectName = false
			i = j
		}
	}
	if expectName {
		return nil, fmt.Errorf("%w: trailing '.' in %q", ErrSyntax, s)
	}
	return out, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseIndex(s string) (int, error) {
	if !isDigits(s) {
		return 0, fmt.Errorf("bad index %q", s)
	}
	return strconv.Atoi(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
