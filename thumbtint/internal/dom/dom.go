// Package dom is the narrow read/write contract the tint pipeline has with
// the host document. Lookups that find nothing return (nil, nil): absence
// is a normal outcome, not an error.
package dom

import (
	"context"
	"errors"
)

// ErrDetached is returned when an operation needs a node that left the tree.
var ErrDetached = errors.New("dom: node is detached")

// Document is the host page.
type Document interface {
	// URL is the document address, used to resolve relative sources.
	URL() string
	// QueryAll returns matches in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// CreateElement returns a new, detached element.
	CreateElement(ctx context.Context, tag string) (Element, error)
}

// Element is a node of the host page.
type Element interface {
	// Closest returns the nearest inclusive ancestor matching selector.
	Closest(ctx context.Context, selector string) (Element, error)
	// Query returns the first descendant matching selector.
	Query(ctx context.Context, selector string) (Element, error)
	// Text returns the text content.
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, bool, error)
	SetAttr(ctx context.Context, name, value string) error
	// Style reads an inline style property, custom properties included.
	Style(ctx context.Context, property string) (string, error)
	SetStyle(ctx context.Context, property, value string) error
	// Size is the rendered width and height in CSS pixels.
	Size(ctx context.Context) (width, height int, err error)
	Parent(ctx context.Context) (Element, error)
	InsertBefore(ctx context.Context, child, ref Element) error
	AppendChild(ctx context.Context, child Element) error
	// Remove detaches the element from its parent. Detached elements are left as is.
	Remove(ctx context.Context) error
	// SetText replaces the children with a single text node.
	SetText(ctx context.Context, text string) error
}
