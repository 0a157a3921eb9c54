package filevalidator

import (
	"errors"

	"github.com/docker/go-units"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Rejection text shown to uploaders. Keys are reasons, optionally suffixed
// with ".<kind>" or ".format" for more specific wording.
var messageEntries = []struct {
	key string
	ko  string
	en  string
}{
	{"size_exceeded", "파일 크기가 허용된 최대 크기를 초과합니다.", "The file exceeds the maximum allowed size."},
	{"size_exceeded.thumbnail", "파일 크기는 5MB 이하여야 합니다.", "The file must be 5MB or smaller."},
	{"size_exceeded.pdf", "파일 크기는 20MB 이하여야 합니다.", "The file must be 20MB or smaller."},
	{"size_exceeded.limit", "파일 크기는 %s 이하여야 합니다.", "The file must be %s or smaller."},
	{"disallowed_extension", "허용되지 않는 파일 확장자입니다.", "This file extension is not allowed."},
	{"disallowed_extension.pdf", "PDF 파일만 업로드할 수 있습니다.", "Only PDF files can be uploaded."},
	{"invalid_image_content", "유효하지 않은 이미지 파일입니다.", "The file is not a valid image."},
	{"invalid_image_content.format", "허용되지 않는 이미지 형식입니다. (jpg, png, webp, gif만 가능)", "This image format is not allowed (jpg, png, webp and gif only)."},
	{"invalid_pdf_content", "유효하지 않은 PDF 파일입니다.", "The file is not a valid PDF."},
	{"unreadable_file", "파일을 읽을 수 없습니다.", "The file could not be read."},
	{"unreadable_file.thumbnail", "이미지 파일을 읽을 수 없습니다.", "The image file could not be read."},
	{"unsupported_kind", "지원하지 않는 파일 종류입니다.", "This kind of file is not supported."},
	{"canceled", "요청이 취소되었습니다.", "The request was canceled."},
}

var (
	messageTags    = []language.Tag{language.Korean, language.English}
	messageMatcher = language.NewMatcher(messageTags)
	messageKeys    = make(map[string]bool, len(messageEntries))
	messageCatalog = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Korean))
	for _, e := range messageEntries {
		messageKeys[e.key] = true
		if err := b.SetString(language.Korean, e.key, e.ko); err != nil {
			panic(err)
		}
		if err := b.SetString(language.English, e.key, e.en); err != nil {
			panic(err)
		}
	}
	return b
}

// MessageLanguages returns the languages the built-in catalog covers,
// Korean first.
func MessageLanguages() []language.Tag {
	return append([]language.Tag(nil), messageTags...)
}

// Message returns the user-facing text for a rejection reason in the closest
// supported language. Korean is the fallback.
func Message(tag language.Tag, r Reason) string {
	return printer(tag).Sprintf(message.Key(string(r), string(r)))
}

// KindMessage is like Message but prefers wording specific to the asset kind,
// such as the size ceiling of that kind.
func KindMessage(tag language.Tag, kind AssetKind, r Reason) string {
	return lookup(tag, string(r)+"."+string(kind), r)
}

// ErrorMessage maps an error returned by a Pipeline to user-facing text.
// Errors that are not validation errors map to the unreadable file text.
func ErrorMessage(tag language.Tag, err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return Message(tag, ReasonUnreadableFile)
	}
	if errors.Is(ve, ErrFormatNotAllowed) {
		return lookup(tag, string(ve.Reason)+".format", ve.Reason)
	}
	if ve.Reason == ReasonSizeExceeded && ve.Limit > 0 {
		return sizeMessage(tag, ve.Kind, ve.Limit)
	}
	return KindMessage(tag, ve.Kind, ve.Reason)
}

// sizeMessage names the ceiling that was actually applied. The kind wording
// is only used while the built-in ceiling is in force.
func sizeMessage(tag language.Tag, kind AssetKind, limit int64) string {
	if p, ok := DefaultPolicies().Get(kind); ok && p.MaxBytes == limit {
		return KindMessage(tag, kind, ReasonSizeExceeded)
	}
	return printer(tag).Sprintf(message.Key("size_exceeded.limit", string(ReasonSizeExceeded)), units.BytesSize(float64(limit)))
}

func lookup(tag language.Tag, key string, r Reason) string {
	if !messageKeys[key] {
		return Message(tag, r)
	}
	return printer(tag).Sprintf(message.Key(key, string(r)))
}

func printer(tag language.Tag) *message.Printer {
	_, idx, _ := messageMatcher.Match(tag)
	return message.NewPrinter(messageTags[idx], message.Catalog(messageCatalog))
}
