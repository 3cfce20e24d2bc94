package htmldoc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom"
)

const page = `<!DOCTYPE html><html><head><title>t</title></head><body>
<div class="card" id="c1">
  <div class="thumb"><img id="i1" width="320" height="180" src="a.jpg"></div>
  <h3>First <b>video</b></h3>
</div>
<div class="card" id="c2">
  <div class="thumb"><img id="i2" style="width: 0px; height: 90px"></div>
</div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	d, err := ParseString(page, "https://feed.example/watch")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestQueryAllClosestQuery(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()

	imgs, err := d.QueryAll(ctx, ".thumb img")
	if err != nil || len(imgs) != 2 {
		t.Fatalf("QueryAll: %d elems, err=%v", len(imgs), err)
	}

	card, err := imgs[0].Closest(ctx, ".card")
	if err != nil || card == nil {
		t.Fatalf("Closest: %v %v", card, err)
	}
	if id, _, _ := card.Attr(ctx, "id"); id != "c1" {
		t.Errorf("Closest: got id %q", id)
	}

	h3, _ := card.Query(ctx, "h3")
	text, _ := h3.Text(ctx)
	if text != "First video" {
		t.Errorf("Text: got %q", text)
	}

	missing, err := card.Query(ctx, ".nope")
	if err != nil || missing != nil {
		t.Errorf("Query(missing): got %v, %v", missing, err)
	}
	if none, _ := imgs[0].Closest(ctx, "section"); none != nil {
		t.Errorf("Closest(missing): got %v", none)
	}
}

func TestQueryExcludesSelf(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	cards, _ := d.QueryAll(ctx, ".card")
	if inner, _ := cards[0].Query(ctx, ".card"); inner != nil {
		t.Error("Query matched the receiver itself")
	}
}

func TestNotSelectorAndMark(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	imgs, _ := d.QueryAll(ctx, ".thumb img:not([data-done])")
	imgs[0].SetAttr(ctx, "data-done", "true")

	left, _ := d.QueryAll(ctx, ".thumb img:not([data-done])")
	if len(left) != 1 {
		t.Fatalf("after mark: %d left, want 1", len(left))
	}
	if id, _, _ := left[0].Attr(ctx, "id"); id != "i2" {
		t.Errorf("unmarked: got %q", id)
	}
}

func TestSize(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	imgs, _ := d.QueryAll(ctx, "img")

	if w, h, _ := imgs[0].Size(ctx); w != 320 || h != 180 {
		t.Errorf("attr size: %dx%d", w, h)
	}
	if w, h, _ := imgs[1].Size(ctx); w != 0 || h != 90 {
		t.Errorf("style size: %dx%d", w, h)
	}
	imgs[1].SetStyle(ctx, "width", "160px")
	if w, _, _ := imgs[1].Size(ctx); w != 160 {
		t.Errorf("after SetStyle: width %d", w)
	}
}

func TestStyleCustomProperty(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	div, _ := d.CreateElement(ctx, "div")

	g := "linear-gradient(135deg, rgb(1, 2, 3), rgb(4, 5, 6))"
	if err := div.SetStyle(ctx, "--gradient", g); err != nil {
		t.Fatal(err)
	}
	div.SetStyle(ctx, "display", "block")
	if got, _ := div.Style(ctx, "--gradient"); got != g {
		t.Errorf("Style(--gradient): got %q", got)
	}
	div.SetStyle(ctx, "display", "none")
	if got, _ := div.Style(ctx, "display"); got != "none" {
		t.Errorf("Style(display): got %q", got)
	}
	raw, _, _ := div.Attr(ctx, "style")
	if strings.Count(raw, "display") != 1 {
		t.Errorf("style attr duplicated property: %q", raw)
	}
}

func TestInsertAppendAndMutate(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	mutations := 0
	d.OnMutate(func() { mutations++ })

	imgs, _ := d.QueryAll(ctx, "img")
	thumb, _ := imgs[0].Parent(ctx)
	div, _ := d.CreateElement(ctx, "div")
	div.SetAttr(ctx, "class", "overlay")
	span, _ := d.CreateElement(ctx, "span")
	span.SetText(ctx, "hello")
	div.AppendChild(ctx, span)

	if err := thumb.InsertBefore(ctx, div, imgs[0]); err != nil {
		t.Fatal(err)
	}
	if mutations != 4 {
		t.Errorf("mutations: got %d, want 4", mutations)
	}

	first, _ := thumb.Query(ctx, ":first-child")
	if cls, _, _ := first.Attr(ctx, "class"); cls != "overlay" {
		t.Errorf("first child: class %q", cls)
	}
	if !strings.Contains(d.String(), `<div class="overlay"><span>hello</span></div><img id="i1"`) {
		t.Errorf("render: %s", d.String())
	}

	other, _ := d.CreateElement(ctx, "p")
	if err := thumb.InsertBefore(ctx, other, span); !errors.Is(err, dom.ErrDetached) {
		t.Errorf("InsertBefore(foreign ref): got %v", err)
	}
}

func TestInjectStyleOnce(t *testing.T) {
	d := mustParse(t)
	added, err := d.InjectStyle("tint", ".x{}")
	if err != nil || !added {
		t.Fatalf("first inject: %v %v", added, err)
	}
	if added, _ := d.InjectStyle("tint", ".x{}"); added {
		t.Error("second inject added a duplicate")
	}
	if n := strings.Count(d.String(), `<style id="tint">`); n != 1 {
		t.Errorf("style elements: %d", n)
	}
}

func TestStyleToleratesBrokenDeclarations(t *testing.T) {
	ctx := context.Background()
	for _, style := range []string{
		"color:red; ;",
		"color:red;;;}x",
		"color:red; @media x {}",
		`color:red; background: url("data:image/png;base64,AA==")`,
	} {
		d, err := ParseString(`<body><img style='`+style+`'></body>`, "")
		if err != nil {
			t.Fatal(err)
		}
		imgs, _ := d.QueryAll(ctx, "img")
		img := imgs[0]

		if err := img.SetStyle(ctx, "display", "none"); err != nil {
			t.Errorf("%q: SetStyle: %v", style, err)
			continue
		}
		if v, _ := img.Style(ctx, "display"); v != "none" {
			t.Errorf("%q: display: got %q", style, v)
		}
		if v, _ := img.Style(ctx, "color"); v != "red" {
			t.Errorf("%q: color: got %q", style, v)
		}
	}
}

func TestSetStyleEmptyRemoves(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	imgs, _ := d.QueryAll(ctx, "#i2")
	img := imgs[0]

	img.SetStyle(ctx, "width", "")
	if v, _ := img.Style(ctx, "width"); v != "" {
		t.Errorf("width after removal: %q", v)
	}
	if v, _ := img.Style(ctx, "height"); v != "90px" {
		t.Errorf("height: got %q", v)
	}
}

func TestRemove(t *testing.T) {
	d := mustParse(t)
	ctx := context.Background()
	imgs, _ := d.QueryAll(ctx, "#i1")
	if err := imgs[0].Remove(ctx); err != nil {
		t.Fatal(err)
	}
	if left, _ := d.QueryAll(ctx, "#i1"); len(left) != 0 {
		t.Error("element still in the document")
	}
	if err := imgs[0].Remove(ctx); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}
