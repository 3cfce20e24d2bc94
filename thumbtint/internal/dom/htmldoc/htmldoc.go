// Package htmldoc implements the dom contract over an in-memory HTML tree.
//
// It is used for offline rendering of saved feed pages and for tests. There
// is no layout engine: rendered size comes from the width/height attributes
// or the inline style.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom"
)

// Document wraps a parsed HTML tree.
type Document struct {
	root *html.Node
	url  string

	mu       sync.Mutex
	sels     map[string]cascadia.SelectorGroup
	onMutate []func()
}

var _ dom.Document = (*Document)(nil)

// Parse reads an HTML document. pageURL is used to resolve relative sources.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{
		root: gq.Nodes[0],
		url:  pageURL,
		sels: make(map[string]cascadia.SelectorGroup),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(s, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(s), pageURL)
}

// URL implements dom.Document.
func (d *Document) URL() string { return d.url }

// OnMutate registers fn to be called after every write to the tree.
func (d *Document) OnMutate(fn func()) {
	d.mu.Lock()
	d.onMutate = append(d.onMutate, fn)
	d.mu.Unlock()
}

func (d *Document) mutated() {
	d.mu.Lock()
	hooks := append([]func(){}, d.onMutate...)
	d.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, ignoring errors.
func (d *Document) String() string {
	var b strings.Builder
	d.Render(&b)
	return b.String()
}

// InjectStyle appends a <style id=id> element to <head> unless one with the
// same id exists. It reports whether the element was added.
func (d *Document) InjectStyle(id, css string) (bool, error) {
	m, err := d.compile("head")
	if err != nil {
		return false, err
	}
	head := cascadia.Query(d.root, m)
	if head == nil {
		return false, nil
	}
	if existing, _ := d.compile("style#" + id); existing != nil && cascadia.Query(head, existing) != nil {
		return false, nil
	}

	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: id}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	head.AppendChild(style)
	d.mutated()
	return true, nil
}

// QueryAll implements dom.Document.
func (d *Document) QueryAll(_ context.Context, selector string) ([]dom.Element, error) {
	m, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	nodes := cascadia.QueryAll(d.root, m)
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

// CreateElement implements dom.Document.
func (d *Document) CreateElement(_ context.Context, tag string) (dom.Element, error) {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}), nil
}

// Node exposes the underlying node of an element created by this package.
func Node(e dom.Element) *html.Node {
	if el, ok := e.(*element); ok {
		return el.n
	}
	return nil
}

func (d *Document) wrap(n *html.Node) *element {
	return &element{doc: d, n: n}
}

func (d *Document) compile(selector string) (cascadia.SelectorGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.sels[selector]; ok {
		return m, nil
	}
	m, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: selector %q: %w", selector, err)
	}
	d.sels[selector] = m
	return m, nil
}

type element struct {
	doc *Document
	n   *html.Node
}

func (e *element) Closest(_ context.Context, selector string) (dom.Element, error) {
	m, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && m.Match(n) {
			return e.doc.wrap(n), nil
		}
	}
	return nil, nil
}

func (e *element) Query(_ context.Context, selector string) (dom.Element, error) {
	m, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	if n := cascadia.Query(e.n, m); n != nil {
		return e.doc.wrap(n), nil
	}
	return nil, nil
}

func (e *element) Text(context.Context) (string, error) {
	return goquery.NewDocumentFromNode(e.n).Text(), nil
}

func (e *element) Attr(_ context.Context, name string) (string, bool, error) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e *element) SetAttr(_ context.Context, name, value string) error {
	setAttr(e.n, name, value)
	e.doc.mutated()
	return nil
}

func (e *element) Style(_ context.Context, property string) (string, error) {
	return parseStyle(attr(e.n, "style")).get(property), nil
}

// SetStyle rewrites the style attribute. An empty value removes the property.
func (e *element) SetStyle(_ context.Context, property, value string) error {
	decls := parseStyle(attr(e.n, "style")).set(property, value)
	setAttr(e.n, "style", decls.String())
	e.doc.mutated()
	return nil
}

func (e *element) Size(context.Context) (int, int, error) {
	w, h := pixels(attr(e.n, "width")), pixels(attr(e.n, "height"))
	if w > 0 && h > 0 {
		return w, h, nil
	}
	decls := parseStyle(attr(e.n, "style"))
	if w == 0 {
		w = pixels(decls.get("width"))
	}
	if h == 0 {
		h = pixels(decls.get("height"))
	}
	return w, h, nil
}

func (e *element) Parent(context.Context) (dom.Element, error) {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, nil
	}
	return e.doc.wrap(p), nil
}

func (e *element) InsertBefore(_ context.Context, child, ref dom.Element) error {
	c, r := Node(child), Node(ref)
	if c == nil || r == nil || r.Parent != e.n {
		return dom.ErrDetached
	}
	detach(c)
	e.n.InsertBefore(c, r)
	e.doc.mutated()
	return nil
}

func (e *element) AppendChild(_ context.Context, child dom.Element) error {
	c := Node(child)
	if c == nil {
		return dom.ErrDetached
	}
	detach(c)
	e.n.AppendChild(c)
	e.doc.mutated()
	return nil
}

func (e *element) Remove(context.Context) error {
	if e.n.Parent == nil {
		return nil
	}
	detach(e.n)
	e.doc.mutated()
	return nil
}

func (e *element) SetText(_ context.Context, text string) error {
	for c := e.n.FirstChild; c != nil; c = e.n.FirstChild {
		e.n.RemoveChild(c)
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	e.doc.mutated()
	return nil
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// pixels parses "320", "320px" or "320.5px" into whole CSS pixels.
func pixels(s string) int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}
