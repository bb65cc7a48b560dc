package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/clock"
)

// Names of the double-submit token pair.
const (
	CookieName = "XSRF-TOKEN"
	HeaderName = "X-XSRF-TOKEN"
)

// Claims is the JWT payload. The user id travels in the standard `sub` claim.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
	parser *jwt.Parser
}

// NewTokenService creates a TokenService. A zero ttl issues tokens without expiry.
func NewTokenService(secret []byte, ttl time.Duration, issuer string, clk clock.Clock) *TokenService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(clk.Now),
	}
	if ttl > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	return &TokenService{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
		clock:  clk,
		parser: jwt.NewParser(opts...),
	}
}

// TTL returns the configured token lifetime (zero means no expiry).
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID.
func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	now := s.clock.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry, and returns the user id.
func (s *TokenService) Verify(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, apperror.NewAuthError("token is missing", nil)
	}
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, apperror.NewAuthError("invalid token", err)
	}
	if !token.Valid {
		return uuid.Nil, apperror.NewAuthError("invalid token", nil)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apperror.NewAuthError("token subject is not a user id", err)
	}
	return id, nil
}

// VerifyPair implements the double-submit check: the cookie copy and the
// header copy must both be present and byte-equal before the token is verified.
func (s *TokenService) VerifyPair(cookie, header string) (uuid.UUID, error) {
	if cookie == "" || header == "" {
		return uuid.Nil, apperror.NewAuthError("token cookie or header missing", nil)
	}
	if subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
		return uuid.Nil, apperror.NewAuthError("token cookie and header differ", nil)
	}
	return s.Verify(cookie)
}

// DecodeBasic parses an `Authorization: Basic` header value.
// A missing header is an AuthError (401). A header that is present but
// malformed is a FormatError (400).
func DecodeBasic(header string) (username, password string, err error) {
	if strings.TrimSpace(header) == "" {
		return "", "", apperror.NewAuthError("authorization header missing", nil)
	}
	scheme, payload, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "", apperror.NewFormatError("authorization scheme is not Basic", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", "", apperror.NewFormatError("basic credentials are not valid base64", err)
	}
	username, password, ok = strings.Cut(string(raw), ":")
	if !ok {
		return "", "", apperror.NewFormatError(fmt.Sprintf("basic credentials lack a separator (%d bytes)", len(raw)), nil)
	}
	return username, password, nil
}

// BearerToken extracts the token from an `Authorization: Bearer` header value.
// It returns "" when the header does not use the Bearer scheme.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
