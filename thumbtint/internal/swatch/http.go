package swatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	_ "golang.org/x/image/webp"
)

// HTTPConfig configures an HTTPSampler.
type HTTPConfig struct {
	// Timeout bounds a single Sample call. Default: 10s.
	Timeout time.Duration
	// MaxBytes caps the image body. Default: 4 MiB.
	MaxBytes int64
	// AlphaThreshold is the minimum (exclusive) alpha of counted pixels. Default: 128.
	AlphaThreshold *uint8
	// UserAgent sent with requests.
	UserAgent string
	// Client overrides the HTTP client. Its jar is ignored: requests never
	// carry credentials.
	Client *http.Client
	// PublicOnly refuses to connect to loopback, private, link-local and
	// other non-public addresses, redirects included. Used when the image
	// URLs come from caller-supplied HTML. Ignored when Client is set.
	PublicOnly bool
	Logger *slog.Logger
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 4 << 20
	}
	if c.AlphaThreshold == nil {
		t := DefaultAlphaThreshold
		c.AlphaThreshold = &t
	}
	if c.UserAgent == "" {
		c.UserAgent = "thumbtint/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// HTTPSampler downloads the image outside the page and decodes it at its
// natural size. Requests are anonymous: no cookies, no auth headers.
type HTTPSampler struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPSampler creates an HTTPSampler.
func NewHTTPSampler(cfg HTTPConfig) *HTTPSampler {
	cfg.defaults()
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			return nil
		},
	}
	if cfg.PublicOnly {
		dialer := &net.Dialer{Timeout: cfg.Timeout, Control: publicOnly}
		client.Transport = &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: cfg.Timeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	if cfg.Client != nil {
		c := *cfg.Client
		c.Jar = nil
		client = &c
	}
	return &HTTPSampler{cfg: cfg, client: client}
}

// Sample implements Sampler.
func (s *HTTPSampler) Sample(ctx context.Context, rawURL string) (RGB, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := s.load(ctx, rawURL)
	if err != nil {
		s.cfg.Logger.Debug("swatch: image unavailable", "url", rawURL, "error", err)
		return RGB{}, false
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.cfg.Logger.Debug("swatch: decode failed", "url", rawURL, "error", err)
		return RGB{}, false
	}

	c, ok := Average(img, *s.cfg.AlphaThreshold)
	if !ok {
		s.cfg.Logger.Debug("swatch: no opaque pixels", "url", rawURL, "format", format)
	}
	return c, ok
}

func (s *HTTPSampler) load(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.cfg.MaxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", s.cfg.MaxBytes)
	}
	return body, nil
}

// ErrNonPublic is returned when a PublicOnly sampler is pointed at a
// non-public address.
var ErrNonPublic = errors.New("swatch: non-public address")

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// publicOnly runs after DNS resolution, so it sees the address actually dialed.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	ip = ip.Unmap()
	if !ip.IsGlobalUnicast() || ip.IsPrivate() || sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrNonPublic, ip)
	}
	return nil
}

var errDataURL = errors.New("malformed data url")

// decodeDataURL handles data:[<mediatype>][;base64],<data>.
func decodeDataURL(raw string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, errDataURL
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDataURL, err)
	}
	return []byte(unescaped), nil
}
