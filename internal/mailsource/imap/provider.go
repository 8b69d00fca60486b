// Package imap implements mailsource.Provider over a generic IMAP
// mailbox, using github.com/emersion/go-imap and go-message. It is the
// second mailsource.Provider, so inboxreel can ingest a video-link
// inbox that isn't Gmail.
//
// The IMAP change cursor is "{UIDVALIDITY}:{lastUID}" — a UIDVALIDITY
// change invalidates the cursor (the IMAP analogue of Gmail's historyId
// expiring): ListDelta then returns a stale-cursor error; it does not
// reset the cursor or run a bounded sync itself.
package imap

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inboxreel/inboxreel/internal/mailsource"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

const targetDomainQuery = "youtube"

// Provider connects to one IMAP server per call — simpler and statelessly
// idempotent, at the cost of reconnecting per job; acceptable since the
// Email Processor and Inbox Synchronizer already suspend at I/O boundaries.
type Provider struct {
	addr string // host:port
}

func NewProvider(addr string) *Provider {
	return &Provider{addr: addr}
}

func (p *Provider) dial(username, password string) (*client.Client, error) {
	c, err := client.DialTLS(p.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap: dial %s: %w", p.addr, err)
	}
	if err := c.Login(username, password); err != nil {
		c.Logout()
		if isAuthFailure(err) {
			return nil, &mailsource.ErrAuthorizationRevoked{Cause: err}
		}
		return nil, fmt.Errorf("imap: login: %w", err)
	}
	return c, nil
}

func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authenticationfailed") || strings.Contains(msg, "invalid credentials")
}

// credentials for IMAP are username/app-password, carried in the same
// access/refresh token fields the Provider interface defines: accessToken
// is the username, refreshToken is the app password. onRefresh is unused
// — IMAP credentials don't rotate the way OAuth tokens do.
func (p *Provider) Profile(ctx context.Context, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) (string, error) {
	c, err := p.dial(accessToken, refreshToken)
	if err != nil {
		return "", err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return "", fmt.Errorf("imap: select inbox: %w", err)
	}
	return fmt.Sprintf("%d:%d", mbox.UidValidity, mbox.UidNext-1), nil
}

func (p *Provider) ListDelta(ctx context.Context, accessToken, refreshToken, cursor, pageToken string, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	c, err := p.dial(accessToken, refreshToken)
	if err != nil {
		return mailsource.Page{}, err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return mailsource.Page{}, fmt.Errorf("imap: select inbox: %w", err)
	}

	uidValidity, lastUID := parseCursor(cursor)
	if uidValidity != 0 && uidValidity != mbox.UidValidity {
		// Mailbox was recreated — the UIDs in this cursor no longer
		// refer to the same messages.
		return mailsource.Page{}, fmt.Errorf("imap: uidvalidity changed, cursor stale")
	}

	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(lastUID+1, 0)

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return mailsource.Page{}, fmt.Errorf("imap: uid search: %w", err)
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return mailsource.Page{MessageIDs: ids}, nil
}

func (p *Provider) ListBounded(ctx context.Context, accessToken, refreshToken string, limit int, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	c, err := p.dial(accessToken, refreshToken)
	if err != nil {
		return mailsource.Page{}, err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return mailsource.Page{}, fmt.Errorf("imap: select inbox: %w", err)
	}
	if mbox.Messages == 0 {
		return mailsource.Page{}, nil
	}
	if limit <= 0 {
		limit = 200
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Subject", "")
	criteria.Body = []string{targetDomainQuery}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return mailsource.Page{}, fmt.Errorf("imap: uid search: %w", err)
	}
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return mailsource.Page{MessageIDs: ids}, nil
}

func (p *Provider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.RawMessage, error) {
	c, err := p.dial(accessToken, refreshToken)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("imap: select inbox: %w", err)
	}

	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("imap: invalid message id %q: %w", messageID, err)
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var raw *mailsource.RawMessage
	for msg := range messages {
		raw = convertMessage(msg, section)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap: fetch: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("imap: message %s not found", messageID)
	}
	return raw, nil
}

// ListThread has no native IMAP equivalent without the THREAD extension,
// which this provider does not use; it always returns a single-message
// "thread", which the Email Processor treats as a thread-reply-count of
// zero rather than guessing.
func (p *Provider) ListThread(ctx context.Context, accessToken, refreshToken, threadID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.Thread, error) {
	return &mailsource.Thread{ID: threadID, MessageIDs: []string{threadID}, TotalMessages: 1}, nil
}

func parseCursor(cursor string) (uidValidity uint32, lastUID uint32) {
	if cursor == "" {
		return 0, 0
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	v, _ := strconv.ParseUint(parts[0], 10, 32)
	u, _ := strconv.ParseUint(parts[1], 10, 32)
	return uint32(v), uint32(u)
}

func convertMessage(msg *imap.Message, section *imap.BodySectionName) *mailsource.RawMessage {
	raw := &mailsource.RawMessage{
		ExternalMessageID: strconv.FormatUint(uint64(msg.Uid), 10),
	}
	if msg.Envelope != nil {
		raw.Subject = msg.Envelope.Subject
		raw.ReceivedAt = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			addr := msg.Envelope.From[0]
			raw.SenderAddress = addr.MailboxName + "@" + addr.HostName
			raw.SenderDisplayName = addr.PersonalName
			if raw.SenderDisplayName == "" {
				raw.SenderDisplayName = raw.SenderAddress
			}
		}
		if len(msg.Envelope.InReplyTo) > 0 {
			raw.InReplyTo = msg.Envelope.InReplyTo
		}
	}

	literal := msg.GetBody(section)
	if literal == nil {
		return raw
	}

	entity, err := message.Read(literal)
	if err != nil {
		// go-message tolerates most malformed headers on its own; if it
		// still fails, fall back to an unparsed single-part body rather
		// than dropping the message.
		raw.Root = mailsource.MessagePart{MimeType: "text/plain"}
		return raw
	}
	raw.Root = convertEntity(entity)
	return raw
}

func convertEntity(entity *message.Entity) mailsource.MessagePart {
	mimeType, _, _ := entity.Header.ContentType()
	part := mailsource.MessagePart{MimeType: mimeType}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err != nil {
				break
			}
			part.Parts = append(part.Parts, convertEntity(child))
		}
		return part
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return part
	}
	part.Body = body
	part.Encoding = ""
	return part
}
