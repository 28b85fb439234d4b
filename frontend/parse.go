// Copyright © 2024 The ELPS authors

/*
Package frontend turns Kotlin source into the engine's syntax tree and
symbol model.

Parsing uses the tree-sitter Kotlin grammar. The concrete syntax tree is
lowered into package tree, and a binder then walks the lowered tree with
lexical scopes, resolving names, calls and static types against the
declarations of the file and a stub symbol.Library. The binder is
deliberately approximate: anything it cannot resolve is simply absent from
the model, which the engine treats as unknown.
*/
package frontend

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/kotlin"

	"github.com/luthersystems/kvet/tree"
)

// Comment is a source comment.
type Comment struct {
	Span tree.Span
	Text string
}

// SyntaxError is a region the grammar could not parse.
type SyntaxError struct {
	Span tree.Span
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error near %q", e.Span.Start, e.Text)
}

// Parsed is the result of parsing one file.
type Parsed struct {
	File     *tree.File
	Comments []Comment
	Errors   []*SyntaxError
}

// ErrInvalidContent is returned for source that is not valid UTF-8.
var ErrInvalidContent = errors.New("source is not valid UTF-8")

// Parse parses src. Syntax errors do not fail the parse; the affected
// regions become *tree.Bad nodes and are reported in Parsed.Errors.
// Parse is safe for concurrent use.
func Parse(ctx context.Context, src []byte, name string) (*Parsed, error) {
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("parse %s: %w", name, ErrInvalidContent)
	}
	// tree-sitter parsers are not goroutine safe; use one per call.
	parser := sitter.NewParser()
	parser.SetLanguage(kotlin.GetLanguage())
	cst, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	defer cst.Close()
	root := cst.RootNode()
	c := &converter{src: src}
	out := &Parsed{File: c.file(root, name)}
	tree.Link(out.File)
	collect(root, src, out)
	return out, nil
}

func collect(n *sitter.Node, src []byte, out *Parsed) {
	switch {
	case isComment(n.Type()):
		out.Comments = append(out.Comments, Comment{Span: span(n), Text: n.Content(src)})
		return
	case n.Type() == "ERROR" || n.IsMissing():
		text := n.Content(src)
		if len(text) > 32 {
			text = text[:32]
		}
		out.Errors = append(out.Errors, &SyntaxError{Span: span(n), Text: text})
	}
	for _, ch := range children(n) {
		collect(ch, src, out)
	}
}
