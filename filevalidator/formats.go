package filevalidator

import (
	"path/filepath"
	"strings"
)

// Content formats reported by the sniffers. Image names match the names the
// Go image decoders register.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWEBP = "webp"
	FormatGIF  = "gif"
	FormatPDF  = "pdf"
)

var extensionFormats = map[string]string{
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"png":  FormatPNG,
	"webp": FormatWEBP,
	"gif":  FormatGIF,
	"pdf":  FormatPDF,
}

var formatMIMETypes = map[string]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatWEBP: "image/webp",
	FormatGIF:  "image/gif",
	FormatPDF:  "application/pdf",
}

// Extension returns the lower-cased suffix after the last dot of the base
// name, without the dot. It returns "" when there is none.
func Extension(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// FormatForExtension returns the content format a file extension claims,
// or "" for unknown extensions.
func FormatForExtension(ext string) string {
	return extensionFormats[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// MIMETypeForFormat returns the MIME type for a sniffed format.
func MIMETypeForFormat(format string) string {
	if mimeType, ok := formatMIMETypes[strings.ToLower(format)]; ok {
		return mimeType
	}
	return "application/octet-stream"
}
