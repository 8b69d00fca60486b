package gmail

import (
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"
)

func TestHeaderFindsCaseInsensitive(t *testing.T) {
	headers := []*gmailapi.MessagePartHeader{
		{Name: "Subject", Value: "hello"},
		{Name: "FROM", Value: "a@example.com"},
	}
	if got := header(headers, "from"); got != "a@example.com" {
		t.Errorf("header(from) = %q, want %q", got, "a@example.com")
	}
	if got := header(headers, "Subject"); got != "hello" {
		t.Errorf("header(Subject) = %q, want %q", got, "hello")
	}
}

func TestHeaderMissing(t *testing.T) {
	headers := []*gmailapi.MessagePartHeader{{Name: "Subject", Value: "hello"}}
	if got := header(headers, "To"); got != "" {
		t.Errorf("header(To) = %q, want empty", got)
	}
}

func TestSplitFromWithDisplayName(t *testing.T) {
	address, name := splitFrom("Jane Doe <jane@example.com>")
	if address != "jane@example.com" {
		t.Errorf("address = %q, want %q", address, "jane@example.com")
	}
	if name != "Jane Doe" {
		t.Errorf("name = %q, want %q", name, "Jane Doe")
	}
}

func TestSplitFromBareAddress(t *testing.T) {
	address, name := splitFrom("jane@example.com")
	if address != "jane@example.com" {
		t.Errorf("address = %q, want %q", address, "jane@example.com")
	}
	if name != "jane@example.com" {
		t.Errorf("name = %q, want address fallback, got %q", name, name)
	}
}

func TestSplitFromEmptyDisplayName(t *testing.T) {
	address, name := splitFrom("<jane@example.com>")
	if address != "jane@example.com" {
		t.Errorf("address = %q, want %q", address, "jane@example.com")
	}
	if name != "jane@example.com" {
		t.Errorf("name = %q, want address fallback when display name is empty, got %q", name, name)
	}
}

func TestIsRevokedDetectsInvalidGrant(t *testing.T) {
	if !isRevoked(&testError{"oauth2: invalid_grant"}) {
		t.Error("isRevoked() = false, want true for invalid_grant error")
	}
	if !isRevoked(&testError{"token has been expired or revoked"}) {
		t.Error("isRevoked() = false, want true for expired/revoked message")
	}
	if isRevoked(&testError{"network timeout"}) {
		t.Error("isRevoked() = true, want false for unrelated error")
	}
	if isRevoked(nil) {
		t.Error("isRevoked(nil) = true, want false")
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
