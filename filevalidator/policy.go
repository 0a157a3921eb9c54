package filevalidator

import (
	"slices"
	"strings"
)

// Size constants for easier size configuration
const (
	KB = int64(1024)
	MB = KB * 1024
	GB = MB * 1024
)

// Policy is the upload policy for one asset kind.
// Extensions are stored without the leading dot and in lower case.
type Policy struct {
	// Kind is the asset kind the policy governs.
	Kind AssetKind

	// MaxBytes is the inclusive size ceiling.
	MaxBytes int64

	// AllowedExtensions is the filename suffix allow-list (e.g. "jpg").
	AllowedExtensions []string

	// AllowedFormats is the set of content formats the sniffer may report
	// (e.g. "jpeg", "pdf").
	AllowedFormats []string
}

// ThumbnailPolicy returns the policy for project thumbnails:
// 5 MiB, jpg/jpeg/png/webp/gif, content must sniff as JPEG, PNG, WEBP or GIF.
func ThumbnailPolicy() Policy {
	return Policy{
		Kind:              KindThumbnail,
		MaxBytes:          5 * MB,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "webp", "gif"},
		AllowedFormats:    []string{FormatJPEG, FormatPNG, FormatWEBP, FormatGIF},
	}
}

// PDFPolicy returns the policy for project documents:
// 20 MiB, pdf, content must start with the PDF signature.
func PDFPolicy() Policy {
	return Policy{
		Kind:              KindPDF,
		MaxBytes:          20 * MB,
		AllowedExtensions: []string{"pdf"},
		AllowedFormats:    []string{FormatPDF},
	}
}

// AllowsExtension reports whether ext (with or without a leading dot) is in
// the allow-list, ignoring case.
func (p Policy) AllowsExtension(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return false
	}
	for _, allowed := range p.AllowedExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// AllowsFormat reports whether a sniffed format is approved, ignoring case.
func (p Policy) AllowsFormat(format string) bool {
	for _, allowed := range p.AllowedFormats {
		if strings.EqualFold(format, allowed) {
			return true
		}
	}
	return false
}

// WithMaxBytes returns a copy of p with a lower ceiling. Values that are not
// positive or that would raise the ceiling are ignored.
func (p Policy) WithMaxBytes(maxBytes int64) Policy {
	if maxBytes > 0 && maxBytes < p.MaxBytes {
		p.MaxBytes = maxBytes
	}
	return p
}

func (p Policy) clone() Policy {
	p.AllowedExtensions = slices.Clone(p.AllowedExtensions)
	p.AllowedFormats = slices.Clone(p.AllowedFormats)
	return p
}

// PolicySet is an immutable set of policies keyed by kind.
type PolicySet struct {
	policies map[AssetKind]Policy
}

// NewPolicySet builds a set from the given policies. A later policy for the
// same kind replaces an earlier one.
func NewPolicySet(policies ...Policy) PolicySet {
	set := PolicySet{policies: make(map[AssetKind]Policy, len(policies))}
	for _, p := range policies {
		set.policies[p.Kind] = p.clone()
	}
	return set
}

// DefaultPolicies returns the thumbnail and PDF policies.
func DefaultPolicies() PolicySet {
	return NewPolicySet(ThumbnailPolicy(), PDFPolicy())
}

// Get returns a copy of the policy for kind.
func (s PolicySet) Get(kind AssetKind) (Policy, bool) {
	p, ok := s.policies[kind]
	if !ok {
		return Policy{}, false
	}
	return p.clone(), true
}

func (s PolicySet) lookup(kind AssetKind) (Policy, bool) {
	p, ok := s.policies[kind]
	return p, ok
}
