package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/clock"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTokens(ttl time.Duration) (*TokenService, *clock.Fake) {
	fake := clock.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return NewTokenService(testSecret, ttl, "listkeeper", fake), fake
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, _ := newTokens(time.Hour)
	id := uuid.New()

	tok, err := svc.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != id {
		t.Errorf("Verify = %v, want %v", got, id)
	}
}

func TestVerifyExpiry(t *testing.T) {
	svc, fake := newTokens(time.Hour)
	tok, err := svc.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	fake.Advance(59 * time.Minute)
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}
	fake.Advance(2 * time.Minute)
	if _, err := svc.Verify(tok); !apperror.IsAuthError(err) {
		t.Errorf("Verify after expiry = %v, want auth error", err)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	svc, fake := newTokens(0)
	tok, err := svc.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	fake.Advance(10 * 365 * 24 * time.Hour)
	if _, err := svc.Verify(tok); err != nil {
		t.Errorf("Verify with zero TTL: %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	svc, fake := newTokens(time.Hour)
	now := fake.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "listkeeper",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	badSubject := valid
	badSubject.Subject = "42"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-of-32-bytes-long!"), valid)},
		{"alg none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
		{"hs512", sign(jwt.SigningMethodHS512, testSecret, valid)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, testSecret, wrongIssuer)},
		{"non uuid subject", sign(jwt.SigningMethodHS256, testSecret, badSubject)},
		{"missing expiry", sign(jwt.SigningMethodHS256, testSecret, noExpiry)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Verify(tc.token); !apperror.IsAuthError(err) {
				t.Errorf("Verify = %v, want auth error", err)
			}
		})
	}
}

func TestVerifyPair(t *testing.T) {
	svc, _ := newTokens(time.Hour)
	id := uuid.New()
	tok, _ := svc.Issue(id)
	other, _ := svc.Issue(uuid.New())

	testCases := []struct {
		name   string
		cookie string
		header string
		wantOK bool
	}{
		{"match", tok, tok, true},
		{"header missing", tok, "", false},
		{"cookie missing", "", tok, false},
		{"both missing", "", "", false},
		{"mismatch", tok, other, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.VerifyPair(tc.cookie, tc.header)
			if tc.wantOK {
				if err != nil || got != id {
					t.Errorf("VerifyPair = %v, %v; want %v", got, err, id)
				}
				return
			}
			if !apperror.IsAuthError(err) {
				t.Errorf("VerifyPair error = %v, want auth error", err)
			}
		})
	}
}

func TestDecodeBasic(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	testCases := []struct {
		name     string
		header   string
		wantUser string
		wantPass string
		wantType apperror.ErrorType
		wantErr  bool
	}{
		{"valid", "Basic " + b64("alice:s3cret"), "alice", "s3cret", 0, false},
		{"lower-case scheme", "basic " + b64("alice:s3cret"), "alice", "s3cret", 0, false},
		{"colon in password", "Basic " + b64("alice:a:b"), "alice", "a:b", 0, false},
		{"missing", "", "", "", apperror.AuthError, true},
		{"bearer scheme", "Bearer abc", "", "", apperror.FormatError, true},
		{"no payload", "Basic", "", "", apperror.FormatError, true},
		{"bad base64", "Basic !!!", "", "", apperror.FormatError, true},
		{"no separator", "Basic " + b64("alice"), "", "", apperror.FormatError, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, pass, err := DecodeBasic(tc.header)
			if tc.wantErr {
				ae, ok := apperror.FromError(err)
				if !ok || ae.Type != tc.wantType {
					t.Fatalf("DecodeBasic error = %v, want type %v", err, tc.wantType)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBasic: %v", err)
			}
			if user != tc.wantUser || pass != tc.wantPass {
				t.Errorf("DecodeBasic = (%q, %q), want (%q, %q)", user, pass, tc.wantUser, tc.wantPass)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("Bearer abc.def"); got != "abc.def" {
		t.Errorf("BearerToken = %q", got)
	}
	if got := BearerToken("Basic abc"); got != "" {
		t.Errorf("BearerToken(Basic) = %q, want empty", got)
	}
}
