package email

import (
	"context"
	"errors"
	"testing"

	"github.com/inboxreel/inboxreel/internal/mailsource"
)

type fakeProvider struct {
	thread    *mailsource.Thread
	threadErr error
}

func (f *fakeProvider) Profile(ctx context.Context, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) (string, error) {
	return "", nil
}

func (f *fakeProvider) ListDelta(ctx context.Context, accessToken, refreshToken, cursor, pageToken string, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	return mailsource.Page{}, nil
}

func (f *fakeProvider) ListBounded(ctx context.Context, accessToken, refreshToken string, limit int, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	return mailsource.Page{}, nil
}

func (f *fakeProvider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.RawMessage, error) {
	return nil, nil
}

func (f *fakeProvider) ListThread(ctx context.Context, accessToken, refreshToken, threadID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.Thread, error) {
	return f.thread, f.threadErr
}

func TestDeriveThreadInfoReplyCountFromThread(t *testing.T) {
	p := &Processor{provider: &fakeProvider{thread: &mailsource.Thread{TotalMessages: 4}}}
	raw := &mailsource.RawMessage{ThreadID: "t1", InReplyTo: "<msg-id>"}

	replyCount, isReply := p.deriveThreadInfo(context.Background(), "", "", raw, nil)
	if replyCount != 3 {
		t.Errorf("replyCount = %d, want 3", replyCount)
	}
	if !isReply {
		t.Error("isReply = false, want true (In-Reply-To header present)")
	}
}

func TestDeriveThreadInfoNoThreadID(t *testing.T) {
	p := &Processor{provider: &fakeProvider{}}
	raw := &mailsource.RawMessage{}

	replyCount, isReply := p.deriveThreadInfo(context.Background(), "", "", raw, nil)
	if replyCount != 0 {
		t.Errorf("replyCount = %d, want 0", replyCount)
	}
	if isReply {
		t.Error("isReply = true, want false")
	}
}

func TestDeriveThreadInfoFallsBackOnThreadError(t *testing.T) {
	p := &Processor{provider: &fakeProvider{threadErr: errors.New("upstream error")}}
	raw := &mailsource.RawMessage{ThreadID: "t1"}

	replyCount, _ := p.deriveThreadInfo(context.Background(), "", "", raw, nil)
	if replyCount != 0 {
		t.Errorf("replyCount = %d, want 0 when thread listing fails", replyCount)
	}
}

func TestDeriveThreadInfoNeverNegative(t *testing.T) {
	p := &Processor{provider: &fakeProvider{thread: &mailsource.Thread{TotalMessages: 0}}}
	raw := &mailsource.RawMessage{ThreadID: "t1"}

	replyCount, _ := p.deriveThreadInfo(context.Background(), "", "", raw, nil)
	if replyCount != 0 {
		t.Errorf("replyCount = %d, want 0 (floored), got negative or other", replyCount)
	}
}
