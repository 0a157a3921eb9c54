package filevalidator

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// 1x1 lossless WebP.
const webpFixture = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8(x ^ y), 255})
		}
	}
	return img
}

func pngBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, testImage(w, h)); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, testImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := gif.Encode(buf, testImage(w, h), nil); err != nil {
		t.Fatalf("gif.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func bmpBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := bmp.Encode(buf, testImage(w, h)); err != nil {
		t.Fatalf("bmp.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func tiffBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := tiff.Encode(buf, testImage(w, h), nil); err != nil {
		t.Fatalf("tiff.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func webpBytes(t testing.TB) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(webpFixture)
	if err != nil {
		t.Fatalf("decode webp fixture: %v", err)
	}
	return data
}

func pdfBytes(size int) []byte {
	doc := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	if size <= len(doc) {
		return doc
	}
	return padded(doc, size)
}

// padded appends filler after the end of data until it is size bytes long.
// Image decoders stop at their end marker, so the result still decodes.
func padded(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}

func svgBytes() []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
}

func textBytes(size int) []byte {
	return []byte(strings.Repeat("plain text ", size/11+1)[:size])
}

var errDisk = errors.New("disk read failed")

// failingReader seeks normally and fails every read.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error)       { return 0, errDisk }
func (failingReader) Seek(int64, int) (int64, error) { return 0, nil }

// failAfterReader returns the first n bytes of data and then fails.
type failAfterReader struct {
	*bytes.Reader
	n int64
}

func (r *failAfterReader) Read(p []byte) (int, error) {
	pos, _ := r.Reader.Seek(0, io.SeekCurrent)
	if pos >= r.n {
		return 0, errDisk
	}
	if remaining := r.n - pos; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	return r.Reader.Read(p)
}

// unseekableReader fails every seek.
type unseekableReader struct {
	io.Reader
}

func (unseekableReader) Seek(int64, int) (int64, error) {
	return 0, errors.New("seek not supported")
}

func offset(t *testing.T, rs io.Seeker) int64 {
	t.Helper()
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	return pos
}

func containsString(s, substr string) bool {
	return strings.Contains(s, substr)
}
