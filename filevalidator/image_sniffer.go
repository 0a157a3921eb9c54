package filevalidator

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSniffer detects the real encoding of an image upload with the decoders
// registered in the image package. BMP and TIFF decoders are registered so
// that those files are recognized and then refused by the policy rather than
// reported as garbage.
type ImageSniffer struct {
	// MaxPixels caps width*height before any pixel data is decoded.
	// Zero disables the cap.
	MaxPixels int64

	// HeaderOnly stops after image.DecodeConfig. By default the whole image
	// is decoded so a valid header in front of a truncated body is rejected.
	HeaderOnly bool
}

// DefaultImageSniffer returns a sniffer with a 40 megapixel cap and full decoding.
func DefaultImageSniffer() *ImageSniffer {
	return &ImageSniffer{
		MaxPixels: 40_000_000,
	}
}

// Sniff implements ContentSniffer.
func (s *ImageSniffer) Sniff(c Candidate, p Policy) (format string, err error) {
	if err := c.Rewind(); err != nil {
		return "", wrapValidationError(p.Kind, ReasonUnreadableFile, "failed to rewind image stream", err)
	}
	defer func() {
		if rerr := c.Rewind(); rerr != nil && err == nil {
			format = ""
			err = wrapValidationError(p.Kind, ReasonUnreadableFile, "failed to rewind image stream", rerr)
		}
	}()

	fr := newFaultReader(c.Reader, p.MaxBytes)
	cfg, format, err := image.DecodeConfig(fr)
	if err != nil {
		return "", classifyImageError(p.Kind, fr, err, false)
	}

	if !p.AllowsFormat(format) {
		return "", wrapValidationError(p.Kind, ReasonInvalidImageContent,
			fmt.Sprintf("image format %s is not allowed", format), ErrFormatNotAllowed)
	}

	// The extension was only a claim; the bytes have the last word.
	if claimed := FormatForExtension(Extension(c.Filename)); claimed != "" && claimed != format {
		return "", NewValidationError(p.Kind, ReasonInvalidImageContent,
			fmt.Sprintf("content is %s but the file is named as %s", format, claimed))
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", NewValidationError(p.Kind, ReasonInvalidImageContent,
			fmt.Sprintf("invalid image dimensions %dx%d", cfg.Width, cfg.Height))
	}

	// Decompression bomb protection
	if pixels := int64(cfg.Width) * int64(cfg.Height); s.MaxPixels > 0 && pixels > s.MaxPixels {
		return "", NewValidationError(p.Kind, ReasonInvalidImageContent,
			fmt.Sprintf("total pixels %d exceeds maximum %d", pixels, s.MaxPixels))
	}

	if s.HeaderOnly {
		return format, nil
	}

	if err := c.Rewind(); err != nil {
		return "", wrapValidationError(p.Kind, ReasonUnreadableFile, "failed to rewind image stream", err)
	}
	fr = newFaultReader(c.Reader, p.MaxBytes)
	if _, _, err := image.Decode(fr); err != nil {
		return "", classifyImageError(p.Kind, fr, err, true)
	}

	return format, nil
}

// classifyImageError maps a decoder failure to a rejection. Running out of
// input only counts as truncation once the header has parsed; a header that
// cannot be read to the end is not an image.
func classifyImageError(kind AssetKind, fr *faultReader, err error, bodyPass bool) error {
	eof := fr.eof || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
	switch {
	case fr.err != nil:
		return wrapValidationError(kind, ReasonUnreadableFile, "failed to read image data", fr.err)
	case errors.Is(err, image.ErrFormat):
		return NewValidationError(kind, ReasonInvalidImageContent, "content is not a recognized image")
	case eof && !bodyPass:
		return NewValidationError(kind, ReasonInvalidImageContent, "image header is incomplete")
	case eof:
		return NewValidationError(kind, ReasonUnreadableFile, "image data is truncated")
	default:
		return NewValidationError(kind, ReasonInvalidImageContent, "image data is corrupt")
	}
}

// faultReader separates failures of the underlying stream from decode errors.
type faultReader struct {
	r   io.Reader
	err error
	eof bool
}

func newFaultReader(r io.Reader, limit int64) *faultReader {
	if limit > 0 {
		r = io.LimitReader(r, limit)
	}
	return &faultReader{r: r}
}

func (f *faultReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	switch {
	case err == io.EOF:
		f.eof = true
	case err != nil:
		f.err = err
	}
	return n, err
}
