// Package gmail implements mailsource.Provider against the Gmail API:
// a notifying oauth2.TokenSource wrapper and an option.WithHTTPClient(client)
// service construction, driven by history.list/messages.list.
package gmail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/inboxreel/inboxreel/internal/mailsource"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// targetDomainQuery is the coarse pre-filter for the bounded initial sync
//: only messages that could plausibly reference the target
// video platform.
const targetDomainQuery = "youtube.com OR youtu.be"

type Provider struct {
	clientID     string
	clientSecret string
}

func NewProvider(clientID, clientSecret string) *Provider {
	return &Provider{clientID: clientID, clientSecret: clientSecret}
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	onRefresh mailsource.TokenRefreshFunc
	err      error
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.onRefresh != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if cbErr := s.onRefresh(t.AccessToken, t.RefreshToken, t.Expiry); cbErr != nil {
			s.err = cbErr
		}
	}
	return t, nil
}

func (p *Provider) service(ctx context.Context, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) (*gmailapi.Service, *notifyTokenSource, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	oauthCfg := &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:       oauthCfg.TokenSource(ctx, token),
		current:   token,
		onRefresh: onRefresh,
	}
	client := oauth2.NewClient(ctx, wrapped)

	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		if isRevoked(err) {
			return nil, nil, &mailsource.ErrAuthorizationRevoked{Cause: err}
		}
		return nil, nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return srv, wrapped, nil
}

func isRevoked(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "token has been expired or revoked")
}

func (p *Provider) Profile(ctx context.Context, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) (string, error) {
	srv, wrapped, err := p.service(ctx, accessToken, refreshToken, onRefresh)
	if err != nil {
		return "", err
	}
	profile, err := srv.Users.GetProfile("me").Do()
	if err != nil {
		if isRevoked(err) {
			return "", &mailsource.ErrAuthorizationRevoked{Cause: err}
		}
		return "", fmt.Errorf("gmail: get profile: %w", err)
	}
	if wrapped.err != nil {
		return "", wrapped.err
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

func (p *Provider) ListDelta(ctx context.Context, accessToken, refreshToken, cursor, pageToken string, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	srv, _, err := p.service(ctx, accessToken, refreshToken, onRefresh)
	if err != nil {
		return mailsource.Page{}, err
	}

	startHistoryID, convErr := strconv.ParseUint(cursor, 10, 64)
	if convErr != nil {
		return mailsource.Page{}, fmt.Errorf("gmail: invalid cursor %q: %w", cursor, convErr)
	}

	call := srv.Users.History.List("me").StartHistoryId(startHistoryID).
		HistoryTypes("messageAdded")
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return mailsource.Page{}, fmt.Errorf("gmail: list history: %w", err)
	}

	ids := make([]string, 0, len(resp.History))
	seen := make(map[string]struct{})
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message == nil {
				continue
			}
			if _, dup := seen[added.Message.Id]; dup {
				continue
			}
			seen[added.Message.Id] = struct{}{}
			ids = append(ids, added.Message.Id)
		}
	}

	return mailsource.Page{MessageIDs: ids, NextPageToken: resp.NextPageToken}, nil
}

func (p *Provider) ListBounded(ctx context.Context, accessToken, refreshToken string, limit int, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	srv, _, err := p.service(ctx, accessToken, refreshToken, onRefresh)
	if err != nil {
		return mailsource.Page{}, err
	}
	if limit <= 0 {
		limit = 200
	}

	call := srv.Users.Messages.List("me").Q(targetDomainQuery).MaxResults(int64(limit))
	resp, err := call.Do()
	if err != nil {
		return mailsource.Page{}, fmt.Errorf("gmail: list bounded: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return mailsource.Page{MessageIDs: ids}, nil
}

func (p *Provider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.RawMessage, error) {
	srv, _, err := p.service(ctx, accessToken, refreshToken, onRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: get message %s: %w", messageID, err)
	}

	return convertMessage(msg), nil
}

func (p *Provider) ListThread(ctx context.Context, accessToken, refreshToken, threadID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.Thread, error) {
	srv, _, err := p.service(ctx, accessToken, refreshToken, onRefresh)
	if err != nil {
		return nil, err
	}

	thread, err := srv.Users.Threads.Get("me", threadID).Format("minimal").Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: get thread %s: %w", threadID, err)
	}

	ids := make([]string, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		ids = append(ids, m.Id)
	}
	return &mailsource.Thread{ID: threadID, MessageIDs: ids, TotalMessages: len(ids)}, nil
}

func convertMessage(msg *gmailapi.Message) *mailsource.RawMessage {
	from := header(msg.Payload.Headers, "From")
	senderAddress, senderName := splitFrom(from)

	return &mailsource.RawMessage{
		ExternalMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		SenderAddress:     senderAddress,
		SenderDisplayName: senderName,
		Subject:           header(msg.Payload.Headers, "Subject"),
		ReceivedAt:        time.UnixMilli(msg.InternalDate),
		Labels:            msg.LabelIds,
		InReplyTo:         header(msg.Payload.Headers, "In-Reply-To"),
		Root:              convertPart(msg.Payload),
	}
}

func convertPart(part *gmailapi.MessagePart) mailsource.MessagePart {
	converted := mailsource.MessagePart{
		MimeType: part.MimeType,
		Filename: part.Filename,
		Encoding: "base64url",
	}
	if part.Body != nil {
		converted.Body = []byte(part.Body.Data)
	}
	for _, child := range part.Parts {
		converted.Parts = append(converted.Parts, convertPart(child))
	}
	return converted
}

func header(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func splitFrom(from string) (address, name string) {
	idx := strings.Index(from, "<")
	if idx < 0 {
		return strings.TrimSpace(from), strings.TrimSpace(from)
	}
	name = strings.TrimSpace(from[:idx])
	address = strings.Trim(strings.TrimSpace(from[idx:]), "<>")
	if name == "" {
		name = address
	}
	return address, name
}
