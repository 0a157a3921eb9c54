package filevalidator

import (
	"maps"
	"slices"
)

// ContentSniffer determines the true format of a candidate from its bytes.
// Implementations must leave the candidate at offset 0 on every return path
// and report failures as *ValidationError.
type ContentSniffer interface {
	Sniff(c Candidate, p Policy) (format string, err error)
}

// SnifferFunc adapts a function to ContentSniffer.
type SnifferFunc func(c Candidate, p Policy) (string, error)

// Sniff calls f(c, p).
func (f SnifferFunc) Sniff(c Candidate, p Policy) (string, error) {
	return f(c, p)
}

// SnifferRegistry maps asset kinds to content sniffers. It is read-only after
// construction.
type SnifferRegistry struct {
	sniffers map[AssetKind]ContentSniffer
}

// NewSnifferRegistry creates a registry from a kind to sniffer map.
func NewSnifferRegistry(sniffers map[AssetKind]ContentSniffer) *SnifferRegistry {
	return &SnifferRegistry{sniffers: maps.Clone(sniffers)}
}

// DefaultRegistry returns a registry with the image sniffer for thumbnails and
// the signature sniffer for PDFs.
func DefaultRegistry() *SnifferRegistry {
	return NewSnifferRegistry(map[AssetKind]ContentSniffer{
		KindThumbnail: DefaultImageSniffer(),
		KindPDF:       &PDFSniffer{},
	})
}

// With returns a new registry where kind uses s.
func (r *SnifferRegistry) With(kind AssetKind, s ContentSniffer) *SnifferRegistry {
	next := maps.Clone(r.sniffers)
	if next == nil {
		next = make(map[AssetKind]ContentSniffer, 1)
	}
	next[kind] = s
	return &SnifferRegistry{sniffers: next}
}

// Get returns the sniffer for kind.
func (r *SnifferRegistry) Get(kind AssetKind) (ContentSniffer, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.sniffers[kind]
	return s, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *SnifferRegistry) Kinds() []AssetKind {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.sniffers))
}
