package decode

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/inboxreel/inboxreel/internal/mailsource"
)

func TestTextSinglePart(t *testing.T) {
	body := base64.RawURLEncoding.EncodeToString([]byte("hello world"))
	root := mailsource.MessagePart{
		MimeType: "text/plain",
		Body:     []byte(body),
		Encoding: "base64url",
	}
	got := Text(root)
	if got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
}

func TestTextWalksMultipart(t *testing.T) {
	plain := base64.RawURLEncoding.EncodeToString([]byte("plain part"))
	html := base64.RawURLEncoding.EncodeToString([]byte("<p>html part</p>"))

	root := mailsource.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []mailsource.MessagePart{
			{MimeType: "text/plain", Body: []byte(plain), Encoding: "base64url"},
			{MimeType: "text/html", Body: []byte(html), Encoding: "base64url"},
		},
	}

	got := Text(root)
	if got == "" {
		t.Fatal("expected non-empty concatenated text")
	}
	if !strings.Contains(got, "plain part") || !strings.Contains(got, "html part") {
		t.Errorf("Text() = %q, want it to contain both leaf bodies", got)
	}
}

func TestTextSkipsNonTextLeaves(t *testing.T) {
	attachment := base64.RawURLEncoding.EncodeToString([]byte{0x00, 0x01, 0x02})
	root := mailsource.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []mailsource.MessagePart{
			{MimeType: "application/pdf", Filename: "doc.pdf", Body: []byte(attachment), Encoding: "base64url"},
		},
	}
	got := Text(root)
	if got != "" {
		t.Errorf("Text() = %q, want empty for non-text leaf", got)
	}
}

func TestTextHandlesStandardBase64(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte("standard encoded"))
	root := mailsource.MessagePart{
		MimeType: "text/plain",
		Body:     []byte(body),
		Encoding: "base64",
	}
	got := Text(root)
	if got != "standard encoded" {
		t.Errorf("Text() = %q, want %q", got, "standard encoded")
	}
}

