package pddl

import (
	"errors"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

var (
	// pddlLexer splits PDDL into parentheses and atoms. Comments run from ";"
	// to the end of the line.
	pddlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `;[^\n]*`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "LParen", Pattern: `\(`},
		{Name: "RParen", Pattern: `\)`},
		{Name: "Atom", Pattern: `[^\s();]+`},
	})

	sexprParser = participle.MustBuild[Document](
		participle.Lexer(pddlLexer),
		participle.Elide("Comment", "Whitespace"),
	)
)

// Document is a sequence of top-level s-expressions.
type Document struct {
	Pos   lexer.Position
	Nodes []*Node `parser:"@@*"`
}

// Node is either an atom or a parenthesized list.
type Node struct {
	Pos   lexer.Position
	Atom  *string `parser:"  @Atom"`
	List  bool    `parser:"| @LParen"`
	Items []*Node `parser:"  @@* RParen"`
}

// Head returns the first atom of a list node.
func (n *Node) Head() string {
	if n == nil || !n.List || len(n.Items) == 0 || n.Items[0].Atom == nil {
		return ""
	}
	return *n.Items[0].Atom
}

// IsAtom reports whether the node is an atom.
func (n *Node) IsAtom() bool {
	return n != nil && n.Atom != nil
}

// ParseDocument reads PDDL text into s-expressions.
func ParseDocument(filename, text string) (*Document, error) {
	doc, err := sexprParser.ParseString(filename, text)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &ontology.MalformedInputError{Position: perr.Position().Offset, Message: perr.Message()}
		}
		return nil, &ontology.MalformedInputError{Position: -1, Message: err.Error()}
	}
	return doc, nil
}
