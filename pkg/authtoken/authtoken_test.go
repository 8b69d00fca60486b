package authtoken

import (
	"testing"
	"time"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	token, err := issuer.Issue("operator-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	subject, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if subject != "operator-1" {
		t.Errorf("Validate() subject = %q, want %q", subject, "operator-1")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer("secret-a", time.Hour)
	token, err := issuer.Issue("operator-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewIssuer("secret-b", time.Hour)
	if _, err := other.Validate(token); err == nil {
		t.Error("Validate() with wrong secret succeeded, want error")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute) // already expired
	token, err := issuer.Issue("operator-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := issuer.Validate(token); err == nil {
		t.Error("Validate() for expired token succeeded, want error")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	if _, err := issuer.Validate("not-a-jwt"); err == nil {
		t.Error("Validate() for garbage token succeeded, want error")
	}
}

func TestNewIssuerDefaultsExpiry(t *testing.T) {
	issuer := NewIssuer("test-secret", 0)
	if issuer.expiry != 12*time.Hour {
		t.Errorf("default expiry = %v, want 12h", issuer.expiry)
	}
}
