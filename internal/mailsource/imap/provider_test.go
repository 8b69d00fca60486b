package imap

import "testing"

func TestParseCursorValid(t *testing.T) {
	validity, lastUID := parseCursor("42:1001")
	if validity != 42 {
		t.Errorf("validity = %d, want 42", validity)
	}
	if lastUID != 1001 {
		t.Errorf("lastUID = %d, want 1001", lastUID)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	validity, lastUID := parseCursor("")
	if validity != 0 || lastUID != 0 {
		t.Errorf("parseCursor(\"\") = (%d, %d), want (0, 0)", validity, lastUID)
	}
}

func TestParseCursorMalformed(t *testing.T) {
	validity, lastUID := parseCursor("not-a-cursor")
	if validity != 0 || lastUID != 0 {
		t.Errorf("parseCursor(malformed) = (%d, %d), want (0, 0)", validity, lastUID)
	}
}

func TestParseCursorNonNumeric(t *testing.T) {
	validity, lastUID := parseCursor("abc:def")
	if validity != 0 || lastUID != 0 {
		t.Errorf("parseCursor(non-numeric) = (%d, %d), want (0, 0)", validity, lastUID)
	}
}

func TestIsAuthFailureDetectsKnownMessages(t *testing.T) {
	if !isAuthFailure(&testError{"AUTHENTICATIONFAILED"}) {
		t.Error("isAuthFailure() = false, want true for AUTHENTICATIONFAILED")
	}
	if !isAuthFailure(&testError{"Invalid credentials"}) {
		t.Error("isAuthFailure() = false, want true for invalid credentials")
	}
	if isAuthFailure(&testError{"connection reset"}) {
		t.Error("isAuthFailure() = true, want false for unrelated error")
	}
	if isAuthFailure(nil) {
		t.Error("isAuthFailure(nil) = true, want false")
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
