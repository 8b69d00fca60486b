// Package mailsource defines the Provider contract the Inbox Synchronizer
// and Email Processor use against the upstream inbox API. Two implementations exist: gmail (the primary
// provider, via google.golang.org/api/gmail/v1) and imap (a second
// provider, via emersion/go-imap + go-message).
package mailsource

import (
	"context"
	"time"
)

// MessagePart is one node of a MIME part tree: either a leaf with an
// inline body, or a container with children. Providers populate this
// directly from their wire formats; internal/email/decode walks it.
type MessagePart struct {
	MimeType string
	Filename string
	// Body is the raw, still-encoded payload for a leaf part (base64url
	// for Gmail, whatever transfer-encoding go-message already stripped
	// for IMAP — see internal/email/decode for the tolerant walk).
	Body     []byte
	Encoding string // "base64url", "base64", "" (already decoded)
	Parts    []MessagePart
}

// RawMessage is a provider-agnostic view of one inbox message, enough for
// the Email Processor to decode text and extract links.
type RawMessage struct {
	ExternalMessageID string
	ThreadID          string
	SenderAddress     string
	SenderDisplayName string
	Subject           string
	ReceivedAt        time.Time
	Labels            []string
	InReplyTo         string // header value, used to resolve the is_thread_reply open question
	Root              MessagePart
}

// Thread is the full set of messages under one thread id, used to derive
// ThreadScore's reply count honestly instead of the source's labels.length
// bug.
type Thread struct {
	ID             string
	MessageIDs     []string
	TotalMessages  int
}

// Page is a single page of message ids with a continuation token for
// paging.
type Page struct {
	MessageIDs    []string
	NextPageToken string
}

// TokenRefreshFunc is invoked whenever a Provider transparently refreshes
// the underlying OAuth token, so the caller can persist the new one — the
// same shape a TokenUpdateFunc would take.
type TokenRefreshFunc func(accessToken, refreshToken string, expiry time.Time) error

// ErrAuthorizationRevoked is returned by any Provider method when a token
// refresh fails with an unambiguous revocation signal.
type ErrAuthorizationRevoked struct {
	Cause error
}

func (e *ErrAuthorizationRevoked) Error() string {
	return "mailsource: authorization revoked: " + e.Cause.Error()
}

func (e *ErrAuthorizationRevoked) Unwrap() error { return e.Cause }

// Provider is the contract every inbox source implements: profile
// (current cursor), delta listing since a cursor, bounded recent
// listing, full message get, and thread listing.
type Provider interface {
	// Profile returns the upstream's current change cursor (historyId,
	// UIDVALIDITY+UID high-water-mark, etc.) for bounded vs. delta sync
	// decisions.
	Profile(ctx context.Context, accessToken, refreshToken string, onRefresh TokenRefreshFunc) (cursor string, err error)

	// ListDelta lists message ids that changed since cursor, paginating
	// via pageToken until NextPageToken is empty.
	ListDelta(ctx context.Context, accessToken, refreshToken, cursor, pageToken string, onRefresh TokenRefreshFunc) (Page, error)

	// ListBounded lists the N most recent messages matching a coarse
	// domain pre-filter, used only when the user has no cursor yet.
	ListBounded(ctx context.Context, accessToken, refreshToken string, limit int, onRefresh TokenRefreshFunc) (Page, error)

	// GetMessage fetches one message with its full body.
	GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onRefresh TokenRefreshFunc) (*RawMessage, error)

	// ListThread returns the full thread a message belongs to, used to
	// derive an honest reply count.
	ListThread(ctx context.Context, accessToken, refreshToken, threadID string, onRefresh TokenRefreshFunc) (*Thread, error)
}
