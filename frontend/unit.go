// Copyright © 2024 The ELPS authors

package frontend

import (
	"context"

	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// Unit is a parsed and bound source file.
type Unit struct {
	Name     string
	Source   []byte
	File     *tree.File
	Model    *symbol.Table
	Comments []Comment
	Errors   []*SyntaxError
}

// Load parses and binds src against lib.
func Load(ctx context.Context, src []byte, name string, lib *symbol.Library) (*Unit, error) {
	parsed, err := Parse(ctx, src, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Unit{
		Name:     name,
		Source:   src,
		File:     parsed.File,
		Model:    Bind(parsed.File, lib),
		Comments: parsed.Comments,
		Errors:   parsed.Errors,
	}, nil
}
