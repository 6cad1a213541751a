// Package engine is the narrow seam to the stof document engine. The
// distribution core only needs to decode and encode result documents,
// look up fields, and invoke functions by reference; everything else the
// engine does stays on the other side of this interface.
package engine

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrFunctionNotFound  = errors.New("function not found")
)

// Function is a reference to a top-level function in a document's main
// scope, with the attributes the remote side tagged it with.
type Function struct {
	Name       string            `json:"name" cbor:"name"`
	Attributes map[string]string `json:"attributes,omitempty" cbor:"attributes,omitempty"`
}

// HasAttribute reports whether the function carries the named tag.
func (f Function) HasAttribute(name string) bool {
	_, ok := f.Attributes[name]
	return ok
}

// Document is a decoded document: its main-scope fields and top-level
// functions. Fields may nest arbitrarily.
type Document struct {
	Fields map[string]any
	Funcs  []Function
}

// Functions lists the document's top-level functions.
func (d *Document) Functions() []Function {
	return d.Funcs
}

// FieldValue resolves a dotted path against the document's fields. The
// second return is false when any path segment is absent.
func (d *Document) FieldValue(path string) (any, bool) {
	if d == nil || d.Fields == nil {
		return nil, false
	}
	var cur any = d.Fields
	for _, seg := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[any]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Engine decodes, encodes, and executes documents.
type Engine interface {
	Decode(data []byte, format string) (*Document, error)
	Encode(doc *Document, format string) ([]byte, error)
	Call(ctx context.Context, fn Function) error
}
