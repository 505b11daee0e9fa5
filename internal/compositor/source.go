package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	defaultSourceTimeout = 20 * time.Second
	maxSourceBytes       = 32 << 20

	// DefaultMaxPixels bounds width*height of a source before it is decoded.
	DefaultMaxPixels = 40_000_000
)

// ErrBlockedAddress is returned when a source URL resolves to a loopback,
// private, link-local or otherwise internal address.
var ErrBlockedAddress = errors.New("address not allowed")

// cgnat is the shared address space of RFC 6598, not covered by IsPrivate.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// Loader resolves a source reference to a decoded image. It understands
// data URIs, http(s) URLs (fetched without credentials) and, when enabled,
// local file paths.
type Loader struct {
	httpClient *http.Client
	timeout    time.Duration
	allowFiles bool
	allowLocal bool
	maxPixels  int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxPixels rejects sources whose width*height exceeds n. n <= 0 keeps
// the default.
func WithMaxPixels(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxPixels = n
		}
	}
}

// WithPrivateNetworks lets URL sources reach loopback and private addresses.
func WithPrivateNetworks() LoaderOption {
	return func(l *Loader) { l.allowLocal = true }
}

// NewLoader returns a loader that gives up after timeout. A zero timeout uses
// the default of 20 seconds. Loaders that read local files run on the user's
// own machine and may fetch from any address; the others only dial public
// addresses unless WithPrivateNetworks is given.
func NewLoader(timeout time.Duration, allowFiles bool, opts ...LoaderOption) *Loader {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	l := &Loader{
		timeout:    timeout,
		allowFiles: allowFiles,
		allowLocal: allowFiles,
		maxPixels:  DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.allowLocal {
		l.httpClient = &http.Client{}
	} else {
		l.httpClient = &http.Client{Transport: publicTransport()}
	}
	return l
}

// publicTransport checks every dialed address, so redirects and DNS answers
// pointing inside the network are refused too. Proxies are disabled because
// the dial would otherwise target the proxy.
func publicTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   checkPublicAddress,
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}

func checkPublicAddress(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip := ap.Addr().Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() || ip.IsUnspecified() || cgnat.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

// Load fetches and decodes ref. Every failure wraps ErrDecode.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(l.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, l.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("empty source")
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetch(ctx, ref)
	case l.allowFiles:
		return readFile(ctx, ref)
	default:
		return nil, fmt.Errorf("unsupported source %q", truncate(ref, 32))
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("source exceeds %d MiB", maxSourceBytes>>20)
	}
	return data, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// decodeDataURI extracts the payload of a data: URI such as
// "data:image/png;base64,iVBOR...".
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI payload: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI payload: %w", err)
	}
	return []byte(s), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
