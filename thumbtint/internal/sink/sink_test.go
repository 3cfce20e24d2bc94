package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

func samplePass(page string, processed int, fallbacks ...bool) report.Pass {
	p := report.Begin(page, "https://feed.example/"+page)
	p.Candidates = processed + 1
	p.Processed = processed
	p.Skipped = 1
	for i := 0; i < processed; i++ {
		fb := i < len(fallbacks) && fallbacks[i]
		p.Items = append(p.Items, report.Item{Title: "v", Gradient: "linear-gradient(135deg, red, blue)", Fallback: fb})
	}
	p.Finish()
	return p
}

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	ctx := context.Background()

	s.Send(ctx, samplePass("a", 0)) // nothing replaced, dropped
	s.Send(ctx, samplePass("a", 2))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(lines))
	}
	var env struct {
		Type string      `json:"type"`
		Data report.Pass `json:"data"`
	}
	if err := json.Unmarshal(lines[0], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "pass" || env.Data.Processed != 2 || len(env.Data.Items) != 2 {
		t.Errorf("envelope: %+v", env)
	}

	buf.Reset()
	s.Verbose = true
	s.Send(ctx, samplePass("a", 0))
	if buf.Len() == 0 {
		t.Error("verbose sink dropped an empty pass")
	}
}

func TestRouter_FanOutAndFirstError(t *testing.T) {
	var got []string
	boom := errors.New("boom")
	r := NewRouter(nil,
		NewCallback(func(_ context.Context, p report.Pass) error { got = append(got, "a:"+p.PageID); return boom }),
		nil,
		NewCallback(func(_ context.Context, p report.Pass) error { got = append(got, "b:"+p.PageID); return nil }),
	)
	if r.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", r.Len())
	}

	err := r.Send(context.Background(), samplePass("p", 1))
	if !errors.Is(err, boom) {
		t.Errorf("Send: got %v, want boom", err)
	}
	if len(got) != 2 || got[1] != "b:p" {
		t.Errorf("delivery: %v", got)
	}
}

func TestStore_SendStatsRecent(t *testing.T) {
	st, err := OpenStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()

	for _, p := range []report.Pass{
		samplePass("home", 2, true, false),
		samplePass("home", 0), // not stored
		samplePass("subs", 1, true),
	} {
		if err := st.Send(ctx, p); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	all, err := st.Stats(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	want := report.Stats{Passes: 2, Candidates: 5, Processed: 3, Skipped: 2, Fallbacks: 2}
	if all != want {
		t.Errorf("Stats(all): got %+v, want %+v", all, want)
	}

	home, _ := st.Stats(ctx, "home")
	if home.Passes != 1 || home.Processed != 2 || home.Fallbacks != 1 {
		t.Errorf("Stats(home): got %+v", home)
	}

	recent, err := st.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent: got %d, want 2", len(recent))
	}
	if recent[0].PageID != "subs" {
		t.Errorf("Recent order: got %q first", recent[0].PageID)
	}
}

func TestStore_Cleanup(t *testing.T) {
	st, err := OpenStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()

	old := samplePass("home", 1)
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	st.Send(ctx, old)
	st.Send(ctx, samplePass("home", 1))

	n, err := st.Cleanup(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Cleanup: n=%d err=%v", n, err)
	}
	var items int
	st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM pass_items").Scan(&items)
	if items != 1 {
		t.Errorf("items after cleanup: got %d, want 1 (cascade)", items)
	}
}
