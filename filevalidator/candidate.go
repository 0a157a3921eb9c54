package filevalidator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// Candidate is an uploaded file awaiting validation. The caller owns the
// reader; validation only reads it and leaves it positioned at offset 0.
type Candidate struct {
	// Reader is the seekable upload stream.
	Reader io.ReadSeeker

	// Filename is the client-declared name. Only its extension is trusted,
	// and only as a pre-filter.
	Filename string

	// Size is the byte length of the stream.
	Size int64
}

// NewCandidate measures the size of rs by seeking to its end and restores the
// starting position.
func NewCandidate(rs io.ReadSeeker, filename string) (Candidate, error) {
	if rs == nil {
		return Candidate{}, errors.New("candidate reader is nil")
	}
	current, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to get current position: %w", err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to seek to end: %w", err)
	}
	if _, err := rs.Seek(current, io.SeekStart); err != nil {
		return Candidate{}, fmt.Errorf("failed to restore position: %w", err)
	}
	return Candidate{Reader: rs, Filename: filename, Size: end}, nil
}

// CandidateFromBytes wraps an in-memory upload.
func CandidateFromBytes(data []byte, filename string) Candidate {
	return Candidate{
		Reader:   bytes.NewReader(data),
		Filename: filename,
		Size:     int64(len(data)),
	}
}

// CandidateFromFileHeader opens a multipart upload. The returned closer must be
// closed once the candidate is no longer needed.
func CandidateFromFileHeader(fh *multipart.FileHeader) (Candidate, io.Closer, error) {
	if fh == nil {
		return Candidate{}, nil, errors.New("file header is nil")
	}
	f, err := fh.Open()
	if err != nil {
		return Candidate{}, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	return Candidate{Reader: f, Filename: fh.Filename, Size: fh.Size}, f, nil
}

// Rewind seeks the candidate back to offset 0.
func (c Candidate) Rewind() error {
	if c.Reader == nil {
		return errors.New("candidate reader is nil")
	}
	_, err := c.Reader.Seek(0, io.SeekStart)
	return err
}
