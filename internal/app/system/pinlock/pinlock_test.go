package pinlock

import (
	"errors"
	"testing"
	"time"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

const (
	hashA = "$2a$04$aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "$2a$04$bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestIssueVerify(t *testing.T) {
	s := New(testKey, 0)
	tok, exp, err := s.Issue("profile-1", hashA)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if d := time.Until(exp); d < 29*time.Minute || d > TTL {
		t.Errorf("expiry %v out of range", d)
	}
	if err := s.Verify(tok, "profile-1", hashA); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestIssue_NoPIN(t *testing.T) {
	if _, _, err := New(testKey, 0).Issue("profile-1", ""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	s := New(testKey, 0)
	tok, _, err := s.Issue("profile-1", hashA)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := New([]byte("ffffffffffffffffffffffffffffffff"), 0)

	tests := []struct {
		name    string
		signer  *Signer
		token   string
		profile string
		pinHash string
	}{
		{"empty", s, "", "profile-1", hashA},
		{"garbage", s, "not-a-token", "profile-1", hashA},
		{"other profile", s, tok, "profile-2", hashA},
		{"other key", other, tok, "profile-1", hashA},
		{"pin changed", s, tok, "profile-1", hashB},
		{"pin removed", s, tok, "profile-1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.signer.Verify(tt.token, tt.profile, tt.pinHash); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	s := New(testKey, time.Minute)
	issued := time.Now()
	s.now = func() time.Time { return issued }
	tok, _, err := s.Issue("p", hashA)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = func() time.Time { return issued.Add(59 * time.Second) }
	if err := s.Verify(tok, "p", hashA); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if err := s.Verify(tok, "p", hashA); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}
