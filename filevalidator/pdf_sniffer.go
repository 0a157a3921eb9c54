package filevalidator

import (
	"bytes"
	"errors"
	"io"
)

// PDFSignature is the leading byte sequence of every PDF file.
var PDFSignature = []byte("%PDF-")

// PDFSniffer accepts streams that begin with the PDF signature.
// It does not inspect the trailer or cross-reference table.
type PDFSniffer struct{}

// Sniff implements ContentSniffer.
func (s *PDFSniffer) Sniff(c Candidate, p Policy) (format string, err error) {
	if err := c.Rewind(); err != nil {
		return "", wrapValidationError(p.Kind, ReasonUnreadableFile, "failed to rewind pdf stream", err)
	}
	defer func() {
		if rerr := c.Rewind(); rerr != nil && err == nil {
			format = ""
			err = wrapValidationError(p.Kind, ReasonUnreadableFile, "failed to rewind pdf stream", rerr)
		}
	}()

	header := make([]byte, len(PDFSignature))
	if _, err := io.ReadFull(c.Reader, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", NewValidationError(p.Kind, ReasonInvalidPDFContent, "file is too short to be a PDF")
		}
		return "", wrapValidationError(p.Kind, ReasonUnreadableFile, "failed to read pdf header", err)
	}

	if !bytes.Equal(header, PDFSignature) {
		return "", NewValidationError(p.Kind, ReasonInvalidPDFContent, "missing PDF signature")
	}

	return FormatPDF, nil
}
