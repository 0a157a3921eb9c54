package filevalidator

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/text/language"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name   string
		tag    language.Tag
		reason Reason
		want   string
	}{
		{"korean invalid image", language.Korean, ReasonInvalidImageContent, "유효하지 않은 이미지 파일입니다."},
		{"korean invalid pdf", language.Korean, ReasonInvalidPDFContent, "유효하지 않은 PDF 파일입니다."},
		{"english invalid pdf", language.English, ReasonInvalidPDFContent, "The file is not a valid PDF."},
		{"regional english", language.BritishEnglish, ReasonUnreadableFile, "The file could not be read."},
		{"unsupported language falls back to korean", language.Japanese, ReasonInvalidPDFContent, "유효하지 않은 PDF 파일입니다."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.tag, tt.reason); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessage_EveryReason(t *testing.T) {
	for _, tag := range MessageLanguages() {
		for _, r := range append(Reasons(), ReasonUnsupportedKind, ReasonCanceled) {
			if got := Message(tag, r); got == "" || got == string(r) {
				t.Errorf("Message(%s, %s) = %q, want translated text", tag, r, got)
			}
		}
	}
}

func TestKindMessage(t *testing.T) {
	tests := []struct {
		kind   AssetKind
		reason Reason
		want   string
	}{
		{KindThumbnail, ReasonSizeExceeded, "파일 크기는 5MB 이하여야 합니다."},
		{KindPDF, ReasonSizeExceeded, "파일 크기는 20MB 이하여야 합니다."},
		{KindThumbnail, ReasonUnreadableFile, "이미지 파일을 읽을 수 없습니다."},
		{KindPDF, ReasonUnreadableFile, "파일을 읽을 수 없습니다."},
		{KindThumbnail, ReasonInvalidImageContent, "유효하지 않은 이미지 파일입니다."},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+string(tt.reason), func(t *testing.T) {
			if got := KindMessage(language.Korean, tt.kind, tt.reason); got != tt.want {
				t.Errorf("KindMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	pipeline := NewDefault()

	bmpOutcome := pipeline.Validate(CandidateFromBytes(bmpBytes(t, 4, 4), "a.png"), KindThumbnail)
	if got, want := ErrorMessage(language.Korean, bmpOutcome.Err()), "허용되지 않는 이미지 형식입니다. (jpg, png, webp, gif만 가능)"; got != want {
		t.Errorf("ErrorMessage(bmp) = %q, want %q", got, want)
	}

	bigPDF := pipeline.Validate(CandidateFromBytes(pdfBytes(int(21*MB)), "a.pdf"), KindPDF)
	if got, want := ErrorMessage(language.English, bigPDF.Err()), "The file must be 20MB or smaller."; got != want {
		t.Errorf("ErrorMessage(big pdf) = %q, want %q", got, want)
	}

	if got := ErrorMessage(language.Korean, nil); got != "" {
		t.Errorf("ErrorMessage(nil) = %q, want empty", got)
	}
	if got, want := ErrorMessage(language.Korean, errors.New("boom")), "파일을 읽을 수 없습니다."; got != want {
		t.Errorf("ErrorMessage(plain) = %q, want %q", got, want)
	}
}

func TestErrorMessage_LoweredCeiling(t *testing.T) {
	pipeline := New(NewPolicySet(ThumbnailPolicy().WithMaxBytes(MB), PDFPolicy().WithMaxBytes(512*KB)), nil)

	tests := []struct {
		name string
		tag  language.Tag
		c    Candidate
		kind AssetKind
		want string
	}{
		{"korean thumbnail", language.Korean, Candidate{Reader: bytes.NewReader(pngBytes(t, 4, 4)), Filename: "a.png", Size: 2 * MB}, KindThumbnail, "파일 크기는 1MiB 이하여야 합니다."},
		{"english pdf", language.English, CandidateFromBytes(pdfBytes(int(MB)), "a.pdf"), KindPDF, "The file must be 512KiB or smaller."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := pipeline.Validate(tt.c, tt.kind)
			if outcome.Reason != ReasonSizeExceeded {
				t.Fatalf("Validate() reason = %q, want %q", outcome.Reason, ReasonSizeExceeded)
			}
			if got := ErrorMessage(tt.tag, outcome.Err()); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
