// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sync"

	"github.com/luthersystems/kvet/frontend"
	"github.com/luthersystems/kvet/symbol"
)

// Document represents an open text document tracked by the LSP server.
type Document struct {
	mu      sync.Mutex
	URI     string
	Version int32
	Content string

	// unit caches the parsed and bound content; loadErr is set when the
	// content could not be read at all.
	unit    *frontend.Unit
	loadErr error
}

// load parses and binds the document unless the current content already
// has been. The caller must hold d.mu.
func (d *Document) load(ctx context.Context, lib *symbol.Library) (*frontend.Unit, error) {
	if d.unit == nil && d.loadErr == nil {
		d.unit, d.loadErr = frontend.Load(ctx, []byte(d.Content), uriToPath(d.URI), lib)
	}
	return d.unit, d.loadErr
}

// Unit returns the bound unit for the document's current content.
func (d *Document) Unit(ctx context.Context, lib *symbol.Library) (*frontend.Unit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(ctx, lib)
}

// DocumentStore manages open documents with thread-safe access.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open adds a document to the store.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Change updates a document's content (full sync) and drops the cached
// unit.
func (s *DocumentStore) Change(uri string, version int32, content string) *Document {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri}
		s.docs[uri] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.Version = version
	doc.Content = content
	doc.unit = nil
	doc.loadErr = nil
	doc.mu.Unlock()
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// Len returns the number of open documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
