/*
 * MIT License
 *
 * Copyright (c) 2026 Pode authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package route

import "strings"

// segKind classifies one path-pattern segment for specificity ordering:
// literal beats :param beats * beats **.
type segKind uint8

const (
	segLiteral segKind = iota
	segParam
	segWildcard
	segRemainder
)

type segment struct {
	kind segKind
	text string // literal text, or the param name without ':'
}

// Pattern is a compiled route path, e.g. "/users/:id/*".
type Pattern struct {
	raw string
	seg []segment
}

// CompilePattern parses a path pattern into segments. Per spec.md §9's
// resolution of the wildcard Open Question, "*" matches exactly one path
// segment; "**" matches the remainder of the path and must be the final
// segment.
func CompilePattern(p string) Pattern {
	p = strings.Trim(p, "/")
	pat := Pattern{raw: "/" + p}

	if p == "" {
		return pat
	}

	for _, part := range strings.Split(p, "/") {
		switch {
		case part == "**":
			pat.seg = append(pat.seg, segment{kind: segRemainder})
		case part == "*":
			pat.seg = append(pat.seg, segment{kind: segWildcard})
		case strings.HasPrefix(part, ":"):
			pat.seg = append(pat.seg, segment{kind: segParam, text: part[1:]})
		default:
			pat.seg = append(pat.seg, segment{kind: segLiteral, text: part})
		}
	}

	return pat
}

func (p Pattern) String() string { return p.raw }

// Specificity returns a comparable score where a strictly more specific
// pattern (more literal segments, matched earlier) yields a larger value;
// used to break ties when more than one pattern could match a path.
func (p Pattern) Specificity() int {
	score := 0
	for i, s := range p.seg {
		weight := len(p.seg) - i
		switch s.kind {
		case segLiteral:
			score += 3 * weight
		case segParam:
			score += 2 * weight
		case segWildcard:
			score += 1 * weight
		case segRemainder:
			score += 0
		}
	}
	return score
}

// Match attempts to match path against the pattern, normalizing a trailing
// slash, and returns extracted :param bindings (URL-decoded by the caller)
// on success.
func (p Pattern) Match(path string) (params map[string]string, ok bool) {
	path = strings.Trim(path, "/")

	var parts []string
	if path != "" {
		parts = strings.Split(path, "/")
	}

	params = make(map[string]string)

	for i, s := range p.seg {
		if s.kind == segRemainder {
			return params, true
		}

		if i >= len(parts) {
			return nil, false
		}

		switch s.kind {
		case segLiteral:
			if parts[i] != s.text {
				return nil, false
			}
		case segParam:
			params[s.text] = parts[i]
		case segWildcard:
			// matches exactly one segment, any content.
		}
	}

	if len(parts) != len(p.seg) {
		return nil, false
	}

	return params, true
}
