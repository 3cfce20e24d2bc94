// Package roddoc implements the dom contract over a live Chrome tab.
package roddoc

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom"
)

// Document is a rod page seen through the dom contract.
type Document struct {
	page *rod.Page
}

var _ dom.Document = (*Document)(nil)

// New wraps page.
func New(page *rod.Page) *Document {
	return &Document{page: page}
}

// Page returns the wrapped page.
func (d *Document) Page() *rod.Page { return d.page }

// URL implements dom.Document. It returns "" if the target is gone.
func (d *Document) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// WaitReady blocks until the document has finished parsing.
func (d *Document) WaitReady(ctx context.Context) error {
	_, err := d.page.Context(ctx).Eval(`() => document.readyState !== "loading" ||
		new Promise(r => document.addEventListener("DOMContentLoaded", () => r(true), {once: true}))`)
	if err != nil {
		return fmt.Errorf("roddoc: wait ready: %w", err)
	}
	return nil
}

// InjectStyle adds a stylesheet to the page. Rod skips identical tags.
func (d *Document) InjectStyle(css string) error {
	if err := d.page.AddStyleTag("", css); err != nil {
		return fmt.Errorf("roddoc: inject style: %w", err)
	}
	return nil
}

// QueryAll implements dom.Document.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("roddoc: query %q: %w", selector, err)
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{doc: d, el: el})
	}
	return out, nil
}

// CreateElement implements dom.Document.
func (d *Document) CreateElement(ctx context.Context, tag string) (dom.Element, error) {
	obj, err := d.page.Context(ctx).Evaluate(rod.Eval(`(t) => document.createElement(t)`, tag).ByObject())
	if err != nil {
		return nil, fmt.Errorf("roddoc: create %s: %w", tag, err)
	}
	return d.fromObject(ctx, obj)
}

func (d *Document) fromObject(ctx context.Context, obj *proto.RuntimeRemoteObject) (dom.Element, error) {
	if obj == nil || obj.ObjectID == "" {
		return nil, nil
	}
	el, err := d.page.Context(ctx).ElementFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("roddoc: resolve element: %w", err)
	}
	return &element{doc: d, el: el}, nil
}

// Element unwraps an element created by this package.
func Element(e dom.Element) *rod.Element {
	if el, ok := e.(*element); ok {
		return el.el
	}
	return nil
}

type element struct {
	doc *Document
	el  *rod.Element
}

func (e *element) eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	res, err := e.el.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("roddoc: eval: %w", err)
	}
	return res, nil
}

func (e *element) object(ctx context.Context, js string, args ...any) (dom.Element, error) {
	obj, err := e.el.Context(ctx).Evaluate(rod.Eval(js, args...).ByObject())
	if err != nil {
		return nil, fmt.Errorf("roddoc: eval: %w", err)
	}
	return e.doc.fromObject(ctx, obj)
}

func (e *element) Closest(ctx context.Context, selector string) (dom.Element, error) {
	return e.object(ctx, `(s) => this.closest(s)`, selector)
}

func (e *element) Query(ctx context.Context, selector string) (dom.Element, error) {
	return e.object(ctx, `(s) => this.querySelector(s)`, selector)
}

func (e *element) Parent(ctx context.Context) (dom.Element, error) {
	return e.object(ctx, `() => this.parentElement`)
}

func (e *element) Text(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, `() => this.textContent || ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("roddoc: attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) SetAttr(ctx context.Context, name, value string) error {
	_, err := e.eval(ctx, `(n, v) => this.setAttribute(n, v)`, name, value)
	return err
}

func (e *element) Style(ctx context.Context, property string) (string, error) {
	res, err := e.eval(ctx, `(p) => this.style.getPropertyValue(p).trim()`, property)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) SetStyle(ctx context.Context, property, value string) error {
	_, err := e.eval(ctx, `(p, v) => this.style.setProperty(p, v)`, property, value)
	return err
}

func (e *element) Size(ctx context.Context) (int, int, error) {
	res, err := e.eval(ctx, `() => {
		const r = this.getBoundingClientRect();
		return {w: Math.floor(r.width), h: Math.floor(r.height)};
	}`)
	if err != nil {
		return 0, 0, err
	}
	w, h := box(res.Value)
	return w, h, nil
}

// box reads the {w, h} object returned by the size script. Missing fields
// read as zero, which callers treat as not laid out yet.
func box(v gson.JSON) (int, int) {
	return v.Get("w").Int(), v.Get("h").Int()
}

func (e *element) InsertBefore(ctx context.Context, child, ref dom.Element) error {
	c, r := Element(child), Element(ref)
	if c == nil || r == nil {
		return dom.ErrDetached
	}
	res, err := e.eval(ctx, `(c, r) => {
		if (r.parentNode !== this) return false;
		this.insertBefore(c, r);
		return true;
	}`, c.Object, r.Object)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return dom.ErrDetached
	}
	return nil
}

func (e *element) AppendChild(ctx context.Context, child dom.Element) error {
	c := Element(child)
	if c == nil {
		return dom.ErrDetached
	}
	_, err := e.eval(ctx, `(c) => { this.appendChild(c) }`, c.Object)
	return err
}

func (e *element) Remove(ctx context.Context) error {
	_, err := e.eval(ctx, `() => { this.remove() }`)
	return err
}

func (e *element) SetText(ctx context.Context, text string) error {
	_, err := e.eval(ctx, `(t) => { this.textContent = t }`, text)
	return err
}
