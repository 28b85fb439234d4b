// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/tree"
)

// textDocumentFoldingRange handles the textDocument/foldingRange request.
// It returns folding ranges for multi-line declarations, blocks and
// lambdas, the import list, and consecutive line comments.
func (s *Server) textDocumentFoldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	unit, err := doc.Unit(context.Background(), s.lib)
	if err != nil {
		return nil, nil
	}

	var ranges []protocol.FoldingRange
	tree.Inspect(unit.File, func(n tree.Node) bool {
		switch n.(type) {
		case *tree.Class, *tree.Function, *tree.Block, *tree.Lambda:
			if r, ok := foldingRange(n.Pos().Line, n.End().Line, protocol.FoldingRangeKindRegion); ok {
				ranges = append(ranges, r)
			}
		}
		return true
	})
	ranges = append(ranges, importFoldingRange(string(unit.Source))...)
	ranges = append(ranges, commentFoldingRanges(string(unit.Source))...)
	return ranges, nil
}

// foldingRange converts 1-based start and end lines to a range, rejecting
// single-line spans.
func foldingRange(start, end int, kind protocol.FoldingRangeKind) (protocol.FoldingRange, bool) {
	if start <= 0 || end <= start {
		return protocol.FoldingRange{}, false
	}
	k := string(kind)
	return protocol.FoldingRange{
		StartLine: safeUint(start - 1),
		EndLine:   safeUint(end - 1),
		Kind:      &k,
	}, true
}

// importFoldingRange folds the run of import directives.
func importFoldingRange(content string) []protocol.FoldingRange {
	first, last := 0, 0
	for i, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "import ") {
			if first == 0 {
				first = i + 1
			}
			last = i + 1
		}
	}
	if r, ok := foldingRange(first, last, protocol.FoldingRangeKindImports); ok {
		return []protocol.FoldingRange{r}
	}
	return nil
}

// commentFoldingRanges detects consecutive lines starting with "//" and
// produces a folding range for each block of 2+ lines.
func commentFoldingRanges(content string) []protocol.FoldingRange {
	lines := strings.Split(content, "\n")
	var ranges []protocol.FoldingRange

	blockStart := -1
	flush := func(end int) {
		if blockStart >= 0 {
			if r, ok := foldingRange(blockStart+1, end+1, protocol.FoldingRangeKindComment); ok {
				ranges = append(ranges, r)
			}
		}
		blockStart = -1
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			if blockStart < 0 {
				blockStart = i
			}
			continue
		}
		flush(i - 1)
	}
	// Handle comment block at end of file.
	flush(len(lines) - 1)

	return ranges
}
