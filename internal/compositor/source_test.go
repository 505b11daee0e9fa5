package compositor

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader returns a PNG that declares w x h pixels but carries no image data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestLoaderRejectsOversizedImages(t *testing.T) {
	ctx := context.Background()

	_, err := NewLoader(time.Second, false).Load(ctx, dataURI(pngHeader(10000, 10000)))
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")

	small := NewLoader(time.Second, false, WithMaxPixels(100))
	_, err = small.Load(ctx, dataURI(solidPNG(t, 20, 20, color.White)))
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "20x20")

	img, err := small.Load(ctx, dataURI(solidPNG(t, 10, 10, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestComposeRejectsOversizedSource(t *testing.T) {
	c := newTestCompositor(t)

	start := time.Now()
	res, err := c.Compose(context.Background(), dataURI(pngHeader(6000, 6000)), "too big")
	assert.ErrorIs(t, err, ErrDecode)
	assert.Nil(t, res)
	assert.Less(t, time.Since(start), time.Second)
}

func TestServerLoaderRefusesLoopback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(solidPNG(t, 10, 10, color.White))
	}))
	defer srv.Close()

	c := newTestCompositor(t, WithLoader(NewLoader(time.Second, false)))
	res, err := c.Compose(context.Background(), srv.URL+"/story.png", "text")

	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), ErrBlockedAddress.Error())
	assert.Nil(t, res)
	assert.Zero(t, hits.Load())
}

func TestCheckPublicAddress(t *testing.T) {
	blocked := []string{
		"127.0.0.1:80",
		"[::1]:443",
		"10.1.2.3:80",
		"172.16.0.5:80",
		"192.168.1.1:8080",
		"169.254.169.254:80",
		"0.0.0.0:80",
		"100.64.0.1:80",
		"[::ffff:127.0.0.1]:80",
		"[fe80::1]:80",
		"[fd00::1]:80",
		"not-an-address",
	}
	for _, addr := range blocked {
		err := checkPublicAddress("tcp", addr, nil)
		assert.ErrorIs(t, err, ErrBlockedAddress, addr)
	}

	for _, addr := range []string{"8.8.8.8:443", "[2606:4700:4700::1111]:443"} {
		assert.NoError(t, checkPublicAddress("tcp", addr, nil), addr)
	}
}

func TestLoaderRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, maxSourceBytes+1))
	}))
	defer srv.Close()

	_, err := NewLoader(5*time.Second, false, WithPrivateNetworks()).Load(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "source exceeds 32 MiB")
}
