// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/lint"
	"github.com/luthersystems/kvet/tree"
)

// toLSPPosition converts a 1-based source position to a 0-based LSP
// position.
func toLSPPosition(line, col int) protocol.Position {
	if line > 0 {
		line--
	}
	if col > 0 {
		col--
	}
	return protocol.Position{
		Line:      safeUint(line),
		Character: safeUint(col),
	}
}

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// spanRange converts a node's source range to an LSP range. An unknown end
// yields a zero-width range.
func spanRange(start, end tree.Pos) protocol.Range {
	r := protocol.Range{Start: toLSPPosition(start.Line, start.Col)}
	r.End = r.Start
	if end.IsValid() {
		r.End = toLSPPosition(end.Line, end.Col)
	}
	return r
}

func nodeRange(n tree.Node) protocol.Range {
	return spanRange(n.Pos(), n.End())
}

func lintRange(pos, end lint.Position) protocol.Range {
	return spanRange(tree.Pos{Line: pos.Line, Col: pos.Col}, tree.Pos{Line: end.Line, Col: end.Col})
}

// fromLSPPosition converts a 0-based LSP position to a 1-based source
// position.
func fromLSPPosition(p protocol.Position) tree.Pos {
	return tree.Pos{Line: int(p.Line) + 1, Col: int(p.Character) + 1}
}

func before(a, b tree.Pos) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Col < b.Col)
}

// contains reports whether pos lies within n's source range, end
// exclusive.
func contains(n tree.Node, pos tree.Pos) bool {
	start, end := n.Pos(), n.End()
	if !start.IsValid() || !end.IsValid() {
		return false
	}
	return !before(pos, start) && before(pos, end)
}

// nodeAt returns the innermost node of root enclosing pos, or nil.
func nodeAt(root tree.Node, pos tree.Pos) tree.Node {
	var found tree.Node
	tree.Inspect(root, func(n tree.Node) bool {
		if !n.Pos().IsValid() {
			// Synthetic nodes carry no position; their children may.
			return true
		}
		if !contains(n, pos) {
			return false
		}
		found = n
		return true
	})
	return found
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}
