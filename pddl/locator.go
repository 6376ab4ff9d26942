// Package pddl locates, splices, renders and reads PDDL documents.
//
// The locator works on raw text: it finds parenthesized expressions by
// position without building a syntax tree, so that sections of a problem can
// be replaced while the rest of the document stays byte-for-byte untouched.
package pddl

import (
	"fmt"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// Range is a closed byte range [Start, End] of an expression, from its opening
// to its matching closing parenthesis.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes in the range.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Of returns the text the range covers.
func (r Range) Of(text string) string { return text[r.Start : r.End+1] }

func malformed(pos int, format string, args ...interface{}) error {
	return &ontology.MalformedInputError{Position: pos, Message: fmt.Sprintf(format, args...)}
}

func assertOpenParenthesis(text string, pos int) error {
	if pos < 0 || pos >= len(text) {
		return malformed(pos, "position is out of the text bounds")
	}
	if text[pos] != '(' {
		return malformed(pos, "parenthesis location does not point at a parenthesis, instead points at %q", text[pos])
	}
	return nil
}

// skipComment returns the index of the end of a ";" comment starting at i.
func skipComment(text string, i int) int {
	for i < len(text) && text[i] != '\n' {
		i++
	}
	return i
}

func unclosed(pos int) error {
	return malformed(pos, "parenthesis opened at %d is never closed", pos)
}

// FirstChildExpression returns the position of the first expression nested in
// the one opened at pos. It reports false when the expression closes before
// any child opens.
func FirstChildExpression(text string, pos int) (int, bool, error) {
	if err := assertOpenParenthesis(text, pos); err != nil {
		return 0, false, err
	}
	for i := pos + 1; i < len(text); i++ {
		switch text[i] {
		case ';':
			i = skipComment(text, i)
		case '(':
			return i, true, nil
		case ')':
			return 0, false, nil
		}
	}
	return 0, false, unclosed(pos)
}

// NextSiblingExpression returns the position of the next expression at the
// same depth as the one opened at pos. It reports false when the enclosing
// expression, or the text, ends first.
func NextSiblingExpression(text string, pos int) (int, bool, error) {
	if err := assertOpenParenthesis(text, pos); err != nil {
		return 0, false, err
	}
	depth := 0
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case ';':
			i = skipComment(text, i)
		case '(':
			depth++
			if depth == 1 && i != pos {
				return i, true, nil
			}
		case ')':
			depth--
			if depth < 0 {
				return 0, false, nil
			}
		}
	}
	if depth > 0 {
		return 0, false, unclosed(pos)
	}
	return 0, false, nil
}

// ExpressionRange returns the range of the expression opened at pos.
func ExpressionRange(text string, pos int) (Range, error) {
	if err := assertOpenParenthesis(text, pos); err != nil {
		return Range{}, err
	}
	depth := 0
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case ';':
			i = skipComment(text, i)
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Range{Start: pos, End: i}, nil
			}
		}
	}
	return Range{}, unclosed(pos)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// WordAt returns the head word of the expression opened at pos.
func WordAt(text string, pos int) (string, error) {
	if err := assertOpenParenthesis(text, pos); err != nil {
		return "", err
	}
	start := pos + 1
	for start < len(text) && isSpace(text[start]) {
		start++
	}
	end := start
	for end < len(text) {
		c := text[end]
		if isSpace(c) || c == '(' || c == ')' || c == ';' {
			break
		}
		end++
	}
	return text[start:end], nil
}

// Walker visits expressions breadth-first: an expression, then all of its
// later siblings, then the children of the first visited expression, and so
// on. Outer sections are therefore found before nested ones.
type Walker struct {
	text     string
	next     int
	hasNext  bool
	children []int
	err      error
}

// Walk starts a breadth-first walk at the expression opened at pos.
func Walk(text string, pos int) *Walker {
	w := &Walker{text: text}
	if err := assertOpenParenthesis(text, pos); err != nil {
		w.err = err
		return w
	}
	w.next, w.hasNext = pos, true
	return w
}

// Next returns the next expression position. It reports false at the end of
// the walk or on error; check Err afterwards.
func (w *Walker) Next() (int, bool) {
	if w.err != nil || !w.hasNext {
		return 0, false
	}
	current := w.next

	child, ok, err := FirstChildExpression(w.text, current)
	if err != nil {
		w.err = err
		return 0, false
	}
	if ok {
		w.children = append(w.children, child)
	}

	w.next, w.hasNext, err = NextSiblingExpression(w.text, current)
	if err != nil {
		w.err = err
		return 0, false
	}
	if !w.hasNext && len(w.children) > 0 {
		w.next, w.hasNext = w.children[0], true
		w.children = w.children[1:]
	}
	return current, true
}

// Err returns the error that stopped the walk, if any.
func (w *Walker) Err() error { return w.err }

// firstExpression returns the position of the first significant byte of text,
// which must open an expression. It reports false for blank text.
func firstExpression(text string) (int, bool, error) {
	for i := 0; i < len(text); i++ {
		switch {
		case isSpace(text[i]):
		case text[i] == ';':
			i = skipComment(text, i)
		case text[i] == '(':
			return i, true, nil
		default:
			return 0, false, malformed(i, "expected an expression, found %q", text[i])
		}
	}
	return 0, false, nil
}

// FindExpressionWithWord returns the range of the first expression, in
// breadth-first order, whose head word is word. It reports false when no
// expression matches. The range is relative to text as given.
func FindExpressionWithWord(text, word string) (Range, bool, error) {
	start, ok, err := firstExpression(text)
	if err != nil || !ok {
		return Range{}, false, err
	}
	walker := Walk(text, start)
	for {
		pos, ok := walker.Next()
		if !ok {
			break
		}
		head, err := WordAt(text, pos)
		if err != nil {
			return Range{}, false, err
		}
		if head == word {
			r, err := ExpressionRange(text, pos)
			return r, err == nil, err
		}
	}
	return Range{}, false, walker.Err()
}
