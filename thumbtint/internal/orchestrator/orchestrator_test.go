package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/dom/htmldoc"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/extract"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/gradient"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/swatch"
)

func cardHTML(i, width int, avatar string) string {
	return fmt.Sprintf(`<ytd-rich-grid-media id="card%d">
  <div><img class="yt-core-image" width="%d" height="90"></div>
  <img class="yt-spec-avatar-shape__image yt-core-image--loaded" src="%s">
  <a id="video-title">Video %d</a>
  <ytd-channel-name><div id="text"><a>Channel %d</a></div></ytd-channel-name>
  <div id="metadata-line"><span>%d views</span><span>%d days ago</span></div>
</ytd-rich-grid-media>`, i, width, avatar, i, i, i*100, i)
}

func feed(cards ...string) string {
	return "<html><head></head><body>" + strings.Join(cards, "\n") + "</body></html>"
}

type fixedSampler map[string]swatch.RGB

func (f fixedSampler) Sample(_ context.Context, u string) (swatch.RGB, bool) {
	c, ok := f[u]
	return c, ok
}

func newOrch(s swatch.Sampler) *Orchestrator {
	return New(Config{
		Sampler:     s,
		Synthesizer: gradient.New(gradient.WithIntn(func(int) int { return 1 })),
		PageID:      "feed",
	})
}

func TestRun_ProcessesInDocumentOrder(t *testing.T) {
	doc, err := htmldoc.ParseString(feed(
		cardHTML(1, 320, "https://i.example/a.png"),
		cardHTML(2, 320, "https://i.example/missing.png"),
	), "https://www.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	s := fixedSampler{"https://i.example/a.png": {R: 200, G: 100, B: 50}}

	pass := newOrch(s).Run(context.Background(), doc)
	if pass.Candidates != 2 || pass.Processed != 2 || pass.Failed != 0 {
		t.Fatalf("pass: %+v", pass)
	}
	if pass.ID == "" || pass.PageID != "feed" || pass.PageURL != "https://www.example.com/" {
		t.Errorf("pass identity: %+v", pass)
	}
	if pass.Items[0].Title != "Video 1" || pass.Items[1].Title != "Video 2" {
		t.Errorf("order: %q, %q", pass.Items[0].Title, pass.Items[1].Title)
	}
	if pass.Items[0].Fallback || pass.Items[0].Gradient != "linear-gradient(135deg, rgb(140, 70, 35), rgb(168, 84, 42))" {
		t.Errorf("derived item: %+v", pass.Items[0])
	}
	if !pass.Items[1].Fallback || !strings.Contains(pass.Items[1].Gradient, gradient.Palette[1].Primary.CSS()) {
		t.Errorf("fallback item: %+v", pass.Items[1])
	}
}

func TestRun_MarkedNodesNeverReturn(t *testing.T) {
	doc, _ := htmldoc.ParseString(feed(cardHTML(1, 320, "")), "")
	o := newOrch(nil)
	ctx := context.Background()

	if pass := o.Run(ctx, doc); pass.Processed != 1 {
		t.Fatalf("first pass: %+v", pass)
	}

	writes := 0
	doc.OnMutate(func() { writes++ })
	for range 3 {
		pass := o.Run(ctx, doc)
		if pass.Candidates != 0 || pass.Processed != 0 {
			t.Errorf("repeat pass: %+v", pass)
		}
	}
	if writes != 0 {
		t.Errorf("repeat passes wrote %d times", writes)
	}
	if blocks, _ := doc.QueryAll(ctx, ".minimalist-gradient"); len(blocks) != 1 {
		t.Errorf("blocks: got %d, want 1", len(blocks))
	}
}

func TestRun_ZeroWidthWaitsForLayout(t *testing.T) {
	doc, _ := htmldoc.ParseString(feed(cardHTML(1, 0, "")), "")
	o := newOrch(nil)
	ctx := context.Background()

	pass := o.Run(ctx, doc)
	if pass.Candidates != 1 || pass.Skipped != 1 || pass.Processed != 0 {
		t.Fatalf("zero width: %+v", pass)
	}
	if blocks, _ := doc.QueryAll(ctx, ".minimalist-gradient"); len(blocks) != 0 {
		t.Fatal("zero-width thumbnail was replaced")
	}

	thumbs, _ := doc.QueryAll(ctx, o.Query())
	thumbs[0].SetAttr(ctx, "width", "240")

	if pass := o.Run(ctx, doc); pass.Processed != 1 {
		t.Errorf("after layout: %+v", pass)
	}
}

func TestRun_NoContainerIsSkipped(t *testing.T) {
	doc, _ := htmldoc.ParseString(`<div><img class="yt-core-image" width="10" height="10"></div>`, "")
	o := New(Config{Selectors: extract.Selectors{Thumbnail: "img.yt-core-image"}})

	pass := o.Run(context.Background(), doc)
	if pass.Candidates != 1 || pass.Skipped != 1 || pass.Failed != 0 {
		t.Errorf("orphan: %+v", pass)
	}
}

type panicSampler struct{}

func (panicSampler) Sample(_ context.Context, u string) (swatch.RGB, bool) {
	if strings.Contains(u, "boom") {
		panic("decoder exploded")
	}
	return swatch.RGB{R: 1, G: 2, B: 3}, true
}

func TestRun_FaultDoesNotAbortPass(t *testing.T) {
	doc, _ := htmldoc.ParseString(feed(
		cardHTML(1, 320, "https://i.example/boom.png"),
		cardHTML(2, 320, "https://i.example/ok.png"),
	), "")

	pass := newOrch(panicSampler{}).Run(context.Background(), doc)
	if pass.Failed != 1 || pass.Processed != 1 {
		t.Errorf("pass: %+v", pass)
	}
	if len(pass.Items) != 1 || pass.Items[0].Title != "Video 2" {
		t.Errorf("items: %+v", pass.Items)
	}
}

func TestRun_Cancelled(t *testing.T) {
	doc, _ := htmldoc.ParseString(feed(cardHTML(1, 320, ""), cardHTML(2, 320, "")), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pass := newOrch(nil).Run(ctx, doc)
	if pass.Processed != 0 {
		t.Errorf("cancelled pass processed %d", pass.Processed)
	}
}

func TestRun_MalformedInlineStyleIsReplacedOnce(t *testing.T) {
	ctx := context.Background()
	for _, style := range []string{"color:red; ;", "@media x {}", "a:b;;;}x"} {
		card := strings.Replace(cardHTML(1, 320, ""), `width="320"`, `width="320" style="`+style+`"`, 1)
		doc, err := htmldoc.ParseString(feed(card), "")
		if err != nil {
			t.Fatal(err)
		}
		o := newOrch(nil)

		first := o.Run(ctx, doc)
		if first.Processed != 1 || first.Failed != 0 {
			t.Errorf("%q: first pass: %+v", style, first)
		}
		for range 2 {
			o.Run(ctx, doc)
		}
		if blocks, _ := doc.QueryAll(ctx, "div.minimalist-gradient"); len(blocks) != 1 {
			t.Errorf("%q: blocks after three passes: got %d, want 1", style, len(blocks))
		}
	}
}
