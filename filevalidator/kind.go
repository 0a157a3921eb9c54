package filevalidator

import (
	"fmt"
	"strings"
)

// AssetKind selects the policy and content sniffer applied to an upload.
type AssetKind string

const (
	// KindThumbnail is a project thumbnail image.
	KindThumbnail AssetKind = "thumbnail"

	// KindPDF is a project PDF document.
	KindPDF AssetKind = "pdf"
)

// Kinds returns every asset kind.
func Kinds() []AssetKind {
	return []AssetKind{KindThumbnail, KindPDF}
}

// ParseAssetKind parses a kind name case-insensitively.
func ParseAssetKind(s string) (AssetKind, error) {
	switch AssetKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindThumbnail:
		return KindThumbnail, nil
	case KindPDF:
		return KindPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

// Valid reports whether k is one of the known kinds.
func (k AssetKind) Valid() bool {
	return k == KindThumbnail || k == KindPDF
}

func (k AssetKind) String() string {
	return string(k)
}
