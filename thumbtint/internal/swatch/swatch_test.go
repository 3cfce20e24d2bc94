package swatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAverage_RoundedMeanOfOpaquePixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 31, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 11, G: 21, B: 30, A: 129})
	// Alpha exactly at the threshold does not count.
	img.SetNRGBA(2, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 128})

	got, ok := Average(img, DefaultAlphaThreshold)
	if !ok {
		t.Fatal("Average: ok = false, want true")
	}
	// (10+11)/2 = 10.5 -> 11, (20+21)/2 = 20.5 -> 21, (31+30)/2 = 30.5 -> 31
	want := RGB{R: 11, G: 21, B: 31}
	if got != want {
		t.Errorf("Average: got %+v, want %+v", got, want)
	}
}

func TestAverage_Transparent(t *testing.T) {
	img := solid(4, 4, color.NRGBA{R: 200, A: 0})
	if _, ok := Average(img, DefaultAlphaThreshold); ok {
		t.Error("Average(transparent): ok = true, want false")
	}
	if _, ok := Average(nil, DefaultAlphaThreshold); ok {
		t.Error("Average(nil): ok = true, want false")
	}
}

func TestAverage_ChannelBounds(t *testing.T) {
	img := solid(2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	got, ok := Average(img, DefaultAlphaThreshold)
	if !ok || got != (RGB{255, 255, 255}) {
		t.Errorf("Average(white): got %+v ok=%v", got, ok)
	}
}

func TestSum_MatchesAverage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 0, B: 9, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 201, G: 3, B: 0, A: 200})

	a, okA := Average(img, DefaultAlphaThreshold)
	s, okS := Sum(img.Pix, DefaultAlphaThreshold)
	if !okA || !okS {
		t.Fatalf("ok: Average=%v Sum=%v", okA, okS)
	}
	if a != s {
		t.Errorf("Sum: got %+v, want %+v", s, a)
	}
}

func TestRGB_CSS(t *testing.T) {
	if got := (RGB{1, 22, 255}).CSS(); got != "rgb(1, 22, 255)" {
		t.Errorf("CSS: got %q", got)
	}
}

func TestHTTPSampler(t *testing.T) {
	avatar := encodePNG(t, solid(8, 8, color.NRGBA{R: 200, G: 100, B: 50, A: 255}))
	blank := encodePNG(t, solid(8, 8, color.NRGBA{}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("SID"); err == nil {
			t.Errorf("request carried credentials")
		}
		switch r.URL.Path {
		case "/avatar.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(avatar)
		case "/clear.png":
			w.Write(blank)
		case "/garbage":
			w.Write([]byte("not an image"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write(avatar)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewHTTPSampler(HTTPConfig{Timeout: 50 * time.Millisecond})
	ctx := context.Background()

	got, ok := s.Sample(ctx, srv.URL+"/avatar.png")
	if !ok || got != (RGB{200, 100, 50}) {
		t.Errorf("avatar: got %+v ok=%v", got, ok)
	}

	for _, path := range []string{"/clear.png", "/garbage", "/missing", "/slow"} {
		if _, ok := s.Sample(ctx, srv.URL+path); ok {
			t.Errorf("%s: ok = true, want false", path)
		}
	}
	if _, ok := s.Sample(ctx, "ftp://example.com/a.png"); ok {
		t.Error("ftp scheme: ok = true, want false")
	}
}

func TestHTTPSampler_MaxBytes(t *testing.T) {
	avatar := encodePNG(t, solid(64, 64, color.NRGBA{R: 1, A: 255}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(avatar)
	}))
	defer srv.Close()

	s := NewHTTPSampler(HTTPConfig{MaxBytes: 16})
	if _, ok := s.Sample(context.Background(), srv.URL); ok {
		t.Error("oversized body: ok = true, want false")
	}
}

func TestHTTPSampler_DataURL(t *testing.T) {
	avatar := encodePNG(t, solid(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	u := "data:image/png;base64," + base64.StdEncoding.EncodeToString(avatar)

	s := NewHTTPSampler(HTTPConfig{})
	got, ok := s.Sample(context.Background(), u)
	if !ok || got != (RGB{10, 20, 30}) {
		t.Errorf("data url: got %+v ok=%v", got, ok)
	}
	if _, ok := s.Sample(context.Background(), "data:nocomma"); ok {
		t.Error("malformed data url: ok = true, want false")
	}
}

func TestHTTPSampler_PublicOnlyRefusesLoopback(t *testing.T) {
	avatar := encodePNG(t, solid(2, 2, color.NRGBA{R: 10, A: 255}))
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write(avatar)
	}))
	defer srv.Close()

	ctx := context.Background()
	if _, ok := NewHTTPSampler(HTTPConfig{PublicOnly: true}).Sample(ctx, srv.URL); ok {
		t.Error("loopback: ok = true, want false")
	}
	if hits != 0 {
		t.Errorf("loopback server was reached %d times", hits)
	}
	if _, ok := NewHTTPSampler(HTTPConfig{}).Sample(ctx, srv.URL); !ok {
		t.Error("unrestricted sampler refused loopback")
	}
}

func TestPublicOnly(t *testing.T) {
	tests := []struct {
		addr   string
		public bool
	}{
		{"127.0.0.1:80", false},
		{"[::1]:443", false},
		{"10.1.2.3:80", false},
		{"192.168.0.10:80", false},
		{"172.16.5.5:80", false},
		{"169.254.169.254:80", false},
		{"100.64.0.1:80", false},
		{"0.0.0.0:80", false},
		{"[::ffff:127.0.0.1]:80", false},
		{"[fd00::1]:80", false},
		{"93.184.216.34:443", true},
		{"[2606:4700::6810:85e5]:443", true},
	}
	for _, tt := range tests {
		err := publicOnly("tcp", tt.addr, nil)
		if tt.public && err != nil {
			t.Errorf("%s: got %v, want nil", tt.addr, err)
		}
		if !tt.public && !errors.Is(err, ErrNonPublic) {
			t.Errorf("%s: got %v, want ErrNonPublic", tt.addr, err)
		}
	}
}
