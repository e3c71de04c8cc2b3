package preview

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef-test"

func TestIssueVerify(t *testing.T) {
	s, err := NewSigner(secret)
	if err != nil {
		t.Fatal(err)
	}
	tok, exp, err := s.Issue("q-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Fatalf("expiry %v too soon", exp)
	}
	qid, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if qid != "q-1" {
		t.Fatalf("qid = %q", qid)
	}
}

func TestVerifyRejects(t *testing.T) {
	s, _ := NewSigner(secret)
	other, _ := NewSigner("another-secret-of-16")

	expired := &Signer{hmac: s.hmac, now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
	old, _, _ := expired.Issue("q-1", time.Hour)
	foreign, _, _ := other.Issue("q-1", time.Hour)
	good, _, _ := s.Issue("q-1", time.Hour)
	i := strings.LastIndex(good, ".") + 5
	flip := "A"
	if good[i] == 'A' {
		flip = "B"
	}
	tampered := good[:i] + flip + good[i+1:]

	for name, tok := range map[string]string{
		"expired":  old,
		"foreign":  foreign,
		"tampered": tampered,
		"garbage":  "not.a.token",
		"empty":    "",
	} {
		if _, err := s.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestShortSecret(t *testing.T) {
	if _, err := NewSigner("short"); err == nil {
		t.Fatal("short secret accepted")
	}
}
