package filevalidator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"testing"
)

func TestImageSniffer_Sniff(t *testing.T) {
	sniffer := DefaultImageSniffer()
	policy := ThumbnailPolicy()

	tests := []struct {
		name       string
		data       func(t *testing.T) []byte
		filename   string
		wantFormat string
		wantReason Reason
	}{
		{
			name:       "png",
			data:       func(t *testing.T) []byte { return pngBytes(t, 16, 16) },
			filename:   "screen.png",
			wantFormat: FormatPNG,
		},
		{
			name:       "jpeg",
			data:       func(t *testing.T) []byte { return jpegBytes(t, 16, 16) },
			filename:   "photo.jpg",
			wantFormat: FormatJPEG,
		},
		{
			name:       "jpeg with jpeg extension",
			data:       func(t *testing.T) []byte { return jpegBytes(t, 16, 16) },
			filename:   "photo.JPEG",
			wantFormat: FormatJPEG,
		},
		{
			name:       "gif",
			data:       func(t *testing.T) []byte { return gifBytes(t, 16, 16) },
			filename:   "anim.gif",
			wantFormat: FormatGIF,
		},
		{
			name:       "png with trailing bytes",
			data:       func(t *testing.T) []byte { return padded(pngBytes(t, 8, 8), 64*1024) },
			filename:   "screen.png",
			wantFormat: FormatPNG,
		},
		{
			name:       "png renamed to jpg",
			data:       func(t *testing.T) []byte { return pngBytes(t, 16, 16) },
			filename:   "photo.jpg",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "jpeg renamed to gif",
			data:       func(t *testing.T) []byte { return jpegBytes(t, 16, 16) },
			filename:   "anim.gif",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "bmp renamed to png",
			data:       func(t *testing.T) []byte { return bmpBytes(t, 16, 16) },
			filename:   "screen.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "tiff renamed to jpg",
			data:       func(t *testing.T) []byte { return tiffBytes(t, 16, 16) },
			filename:   "photo.jpg",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "svg renamed to png",
			data:       func(t *testing.T) []byte { return svgBytes() },
			filename:   "logo.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "plain text",
			data:       func(t *testing.T) []byte { return textBytes(1024) },
			filename:   "notes.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "empty",
			data:       func(t *testing.T) []byte { return nil },
			filename:   "empty.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "pdf renamed to png",
			data:       func(t *testing.T) []byte { return pdfBytes(0) },
			filename:   "report.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name:       "png signature with oversized first chunk",
			data:       func(t *testing.T) []byte { return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte("A"), 64)...) },
			filename:   "x.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name: "png cut inside the header",
			data: func(t *testing.T) []byte {
				return pngBytes(t, 64, 64)[:20]
			},
			filename:   "screen.png",
			wantReason: ReasonInvalidImageContent,
		},
		{
			name: "truncated png body",
			data: func(t *testing.T) []byte {
				data := pngBytes(t, 64, 64)
				return data[:len(data)/2]
			},
			filename:   "screen.png",
			wantReason: ReasonUnreadableFile,
		},
		{
			name: "truncated jpeg body",
			data: func(t *testing.T) []byte {
				data := jpegBytes(t, 64, 64)
				return data[:len(data)/2]
			},
			filename:   "photo.jpg",
			wantReason: ReasonUnreadableFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CandidateFromBytes(tt.data(t), tt.filename)
			format, err := sniffer.Sniff(c, policy)

			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Sniff() error = %v", err)
				}
				if format != tt.wantFormat {
					t.Errorf("Sniff() format = %q, want %q", format, tt.wantFormat)
				}
			} else {
				if err == nil {
					t.Fatalf("Sniff() = %q, want rejection %q", format, tt.wantReason)
				}
				if got := ReasonOf(err); got != tt.wantReason {
					t.Errorf("ReasonOf() = %q, want %q (err = %v)", got, tt.wantReason, err)
				}
			}

			if pos := offset(t, c.Reader); pos != 0 {
				t.Errorf("reader offset after Sniff() = %d, want 0", pos)
			}
		})
	}
}

func TestImageSniffer_WebP(t *testing.T) {
	sniffer := &ImageSniffer{HeaderOnly: true}
	c := CandidateFromBytes(webpBytes(t), "cover.webp")

	format, err := sniffer.Sniff(c, ThumbnailPolicy())
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if format != FormatWEBP {
		t.Errorf("Sniff() format = %q, want %q", format, FormatWEBP)
	}
}

func TestImageSniffer_FormatNotAllowed(t *testing.T) {
	sniffer := DefaultImageSniffer()
	c := CandidateFromBytes(bmpBytes(t, 4, 4), "photo.bmp")

	_, err := sniffer.Sniff(c, ThumbnailPolicy())
	if !errors.Is(err, ErrFormatNotAllowed) {
		t.Fatalf("Sniff() error = %v, want ErrFormatNotAllowed", err)
	}
	if !errors.Is(err, ErrInvalidImageContent) {
		t.Errorf("errors.Is(err, ErrInvalidImageContent) = false")
	}
}

func TestImageSniffer_MaxPixels(t *testing.T) {
	sniffer := &ImageSniffer{MaxPixels: 100}

	t.Run("within limit", func(t *testing.T) {
		c := CandidateFromBytes(pngBytes(t, 10, 10), "small.png")
		if _, err := sniffer.Sniff(c, ThumbnailPolicy()); err != nil {
			t.Errorf("Sniff() error = %v", err)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		c := CandidateFromBytes(pngBytes(t, 11, 10), "big.png")
		_, err := sniffer.Sniff(c, ThumbnailPolicy())
		if ReasonOf(err) != ReasonInvalidImageContent {
			t.Fatalf("Sniff() error = %v, want %q", err, ReasonInvalidImageContent)
		}
		if !containsString(err.Error(), "exceeds maximum") {
			t.Errorf("error = %q, want mention of the pixel limit", err.Error())
		}
	})

	t.Run("header claims huge dimensions", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 1, 1))
		buf := new(bytes.Buffer)
		if err := png.Encode(buf, img); err != nil {
			t.Fatal(err)
		}
		data := buf.Bytes()
		// Rewrite IHDR to 50000x50000 and fix its CRC.
		binary.BigEndian.PutUint32(data[16:20], 50000)
		binary.BigEndian.PutUint32(data[20:24], 50000)
		binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

		c := CandidateFromBytes(data, "bomb.png")
		_, err := DefaultImageSniffer().Sniff(c, ThumbnailPolicy())
		if ReasonOf(err) != ReasonInvalidImageContent {
			t.Fatalf("Sniff() error = %v, want %q", err, ReasonInvalidImageContent)
		}
		if !containsString(err.Error(), "exceeds maximum") {
			t.Errorf("error = %q, want mention of the pixel limit", err.Error())
		}
	})
}

func TestImageSniffer_HeaderOnly(t *testing.T) {
	data := pngBytes(t, 64, 64)
	truncated := data[:len(data)/2]

	c := CandidateFromBytes(truncated, "screen.png")
	format, err := (&ImageSniffer{HeaderOnly: true}).Sniff(c, ThumbnailPolicy())
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if format != FormatPNG {
		t.Errorf("Sniff() format = %q, want %q", format, FormatPNG)
	}
}

func TestImageSniffer_ReadFaults(t *testing.T) {
	sniffer := DefaultImageSniffer()
	policy := ThumbnailPolicy()

	t.Run("read fails immediately", func(t *testing.T) {
		c := Candidate{Reader: failingReader{}, Filename: "photo.png", Size: 100}
		_, err := sniffer.Sniff(c, policy)
		if ReasonOf(err) != ReasonUnreadableFile {
			t.Fatalf("Sniff() error = %v, want %q", err, ReasonUnreadableFile)
		}
		if !errors.Is(err, errDisk) {
			t.Errorf("errors.Is(err, errDisk) = false")
		}
	})

	t.Run("read fails mid body", func(t *testing.T) {
		data := pngBytes(t, 64, 64)
		r := &failAfterReader{Reader: bytes.NewReader(data), n: int64(len(data) / 2)}
		c := Candidate{Reader: r, Filename: "photo.png", Size: int64(len(data))}
		_, err := sniffer.Sniff(c, policy)
		if ReasonOf(err) != ReasonUnreadableFile {
			t.Fatalf("Sniff() error = %v, want %q", err, ReasonUnreadableFile)
		}
	})

	t.Run("seek fails", func(t *testing.T) {
		data := pngBytes(t, 4, 4)
		c := Candidate{Reader: unseekableReader{bytes.NewReader(data)}, Filename: "photo.png", Size: int64(len(data))}
		_, err := sniffer.Sniff(c, policy)
		if ReasonOf(err) != ReasonUnreadableFile {
			t.Fatalf("Sniff() error = %v, want %q", err, ReasonUnreadableFile)
		}
	})
}
