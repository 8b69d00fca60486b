package inboxsync

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/inboxreel/inboxreel/internal/mailsource"
	"github.com/inboxreel/inboxreel/internal/queue"
	"github.com/inboxreel/inboxreel/internal/user/domain"
	"github.com/inboxreel/inboxreel/pkg/cryptutil"
)

type fakeUserRepo struct {
	mu                 sync.Mutex
	updated            *domain.User
	advancedCursor     string
	markedReauth       bool
	advanceCursorCalls int
}

func (f *fakeUserRepo) FindByID(id string) (*domain.User, error) { return nil, nil }
func (f *fakeUserRepo) FindByExternalAccountAddress(address string) (*domain.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) Create(user *domain.User) error { return nil }
func (f *fakeUserRepo) Update(user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = user
	return nil
}
func (f *fakeUserRepo) AdvanceCursor(userID, newCursor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advancedCursor = newCursor
	f.advanceCursorCalls++
	return nil
}
func (f *fakeUserRepo) MarkNeedsReauthorization(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedReauth = true
	return nil
}

type fakeSyncProvider struct {
	mu          sync.Mutex
	deltaPages  []mailsource.Page
	deltaCalls  int
	deltaErr    error
	boundedPage mailsource.Page
	boundedErr  error
	profile     string
	profileErr  error
}

func (f *fakeSyncProvider) Profile(ctx context.Context, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) (string, error) {
	return f.profile, f.profileErr
}

func (f *fakeSyncProvider) ListDelta(ctx context.Context, accessToken, refreshToken, cursor, pageToken string, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	if f.deltaErr != nil {
		return mailsource.Page{}, f.deltaErr
	}
	f.mu.Lock()
	idx := f.deltaCalls
	f.deltaCalls++
	f.mu.Unlock()
	return f.deltaPages[idx], nil
}

func (f *fakeSyncProvider) ListBounded(ctx context.Context, accessToken, refreshToken string, limit int, onRefresh mailsource.TokenRefreshFunc) (mailsource.Page, error) {
	return f.boundedPage, f.boundedErr
}

func (f *fakeSyncProvider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.RawMessage, error) {
	return nil, nil
}

func (f *fakeSyncProvider) ListThread(ctx context.Context, accessToken, refreshToken, threadID string, onRefresh mailsource.TokenRefreshFunc) (*mailsource.Thread, error) {
	return nil, nil
}

type fakeJobQueue struct {
	mu       sync.Mutex
	enqueued []queue.EnqueueOptions
	payloads []EmailProcessPayload
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, queueName string, payload any, opts queue.EnqueueOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, opts)
	if p, ok := payload.(EmailProcessPayload); ok {
		f.payloads = append(f.payloads, p)
	}
	return nil
}

func (f *fakeJobQueue) Subscribe(ctx context.Context, queueName string, handler queue.Handler) error {
	return nil
}

func testBox(t *testing.T) *cryptutil.Box {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	box, err := cryptutil.NewBox(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("NewBox() error = %v", err)
	}
	return box
}

func sealedUser(t *testing.T, box *cryptutil.Box, cursor string) *domain.User {
	t.Helper()
	access, err := box.Seal("access-token")
	if err != nil {
		t.Fatalf("Seal(access) error = %v", err)
	}
	refresh, err := box.Seal("refresh-token")
	if err != nil {
		t.Fatalf("Seal(refresh) error = %v", err)
	}
	return &domain.User{
		ID:                    "user-1",
		EncryptedAccessToken:  access,
		EncryptedRefreshToken: refresh,
		ChangeCursor:          cursor,
	}
}

func TestSyncBoundedOnFirstRun(t *testing.T) {
	box := testBox(t)
	u := sealedUser(t, box, "")

	provider := &fakeSyncProvider{
		boundedPage: mailsource.Page{MessageIDs: []string{"m1", "m2"}},
		profile:     "cursor-1",
	}
	users := &fakeUserRepo{}
	jobs := &fakeJobQueue{}

	s := New(users, provider, jobs, box)
	if err := s.Sync(context.Background(), u); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if users.advancedCursor != "cursor-1" {
		t.Errorf("advancedCursor = %q, want %q", users.advancedCursor, "cursor-1")
	}
	if len(jobs.payloads) != 2 {
		t.Fatalf("enqueued %d jobs, want 2", len(jobs.payloads))
	}
}

func TestSyncDeltaPaginatesAndDedupes(t *testing.T) {
	box := testBox(t)
	u := sealedUser(t, box, "cursor-0")

	provider := &fakeSyncProvider{
		deltaPages: []mailsource.Page{
			{MessageIDs: []string{"m1", "m2"}, NextPageToken: "page-2"},
			{MessageIDs: []string{"m2", "m3"}, NextPageToken: ""},
		},
		profile: "cursor-2",
	}
	users := &fakeUserRepo{}
	jobs := &fakeJobQueue{}

	s := New(users, provider, jobs, box)
	if err := s.Sync(context.Background(), u); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(jobs.payloads) != 3 {
		t.Fatalf("enqueued %d jobs, want 3 (m1, m2, m3 deduped)", len(jobs.payloads))
	}
	if users.advanceCursorCalls != 1 {
		t.Errorf("AdvanceCursor called %d times, want 1", users.advanceCursorCalls)
	}
	if users.advancedCursor != "cursor-2" {
		t.Errorf("advancedCursor = %q, want %q", users.advancedCursor, "cursor-2")
	}
}

func TestSyncDeltaDoesNotAdvanceCursorOnFailure(t *testing.T) {
	box := testBox(t)
	u := sealedUser(t, box, "cursor-0")

	provider := &fakeSyncProvider{
		deltaErr: errFake,
	}
	users := &fakeUserRepo{}
	jobs := &fakeJobQueue{}

	// A short-lived context keeps this test fast: withRetry's backoff
	// sleep is cut short by ctx.Done() instead of running to completion,
	// but the error is still non-nil and the cursor is still untouched.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := New(users, provider, jobs, box)
	if err := s.Sync(ctx, u); err == nil {
		t.Fatal("Sync() error = nil, want non-nil on upstream failure")
	}

	if users.advanceCursorCalls != 0 {
		t.Error("AdvanceCursor should not be called when the delta pass fails midway")
	}
}

func TestSyncHandlesAuthorizationRevocation(t *testing.T) {
	box := testBox(t)
	u := sealedUser(t, box, "cursor-0")

	provider := &fakeSyncProvider{
		deltaErr: &mailsource.ErrAuthorizationRevoked{Cause: errFake},
	}
	users := &fakeUserRepo{}
	jobs := &fakeJobQueue{}

	s := New(users, provider, jobs, box)
	if err := s.Sync(context.Background(), u); err != nil {
		t.Fatalf("Sync() error = %v, want nil (revocation is handled, not propagated)", err)
	}
	if !users.markedReauth {
		t.Error("expected user to be marked for reauthorization")
	}
}

func TestSyncEnqueueIdempotencyKeyIsUserAndMessage(t *testing.T) {
	box := testBox(t)
	u := sealedUser(t, box, "")

	provider := &fakeSyncProvider{
		boundedPage: mailsource.Page{MessageIDs: []string{"m1"}},
		profile:     "cursor-1",
	}
	users := &fakeUserRepo{}
	jobs := &fakeJobQueue{}

	s := New(users, provider, jobs, box)
	if err := s.Sync(context.Background(), u); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(jobs.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs.enqueued))
	}
	want := "user-1:m1"
	if jobs.enqueued[0].IdempotencyKey != want {
		t.Errorf("IdempotencyKey = %q, want %q", jobs.enqueued[0].IdempotencyKey, want)
	}
}

var errFake = &fakeError{"upstream failure"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }
