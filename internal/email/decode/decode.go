// Package decode walks a mailsource.MessagePart tree and concatenates
// its inline text bodies, tolerating malformed parts by skipping them.
package decode

import (
	"encoding/base64"
	"strings"

	"github.com/inboxreel/inboxreel/internal/mailsource"
)

// Text walks root depth-first and returns the concatenated, decoded
// UTF-8 text of every text/* or untyped (empty MimeType) leaf part. A part whose body fails to
// decode is skipped rather than aborting the whole walk.
func Text(root mailsource.MessagePart) string {
	var b strings.Builder
	walk(root, &b)
	return b.String()
}

func walk(part mailsource.MessagePart, b *strings.Builder) {
	if len(part.Parts) > 0 {
		for _, child := range part.Parts {
			walk(child, b)
		}
		return
	}
	if len(part.Body) == 0 {
		return
	}
	if !strings.HasPrefix(part.MimeType, "text/") && part.MimeType != "" {
		// Non-text leaves (attachments, images) carry no link text.
		return
	}

	decoded, ok := decodeBody(part.Body, part.Encoding)
	if !ok {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.Write(decoded)
}

func decodeBody(body []byte, encoding string) ([]byte, bool) {
	switch encoding {
	case "base64url":
		decoded, err := base64.RawURLEncoding.DecodeString(string(body))
		if err != nil {
			decoded, err = base64.URLEncoding.DecodeString(string(body))
		}
		if err != nil {
			return nil, false
		}
		return decoded, true
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(string(body))
		}
		if err != nil {
			return nil, false
		}
		return decoded, true
	default:
		return body, true
	}
}
