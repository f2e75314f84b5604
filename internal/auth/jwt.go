// Package auth provides the bearer token codec, password hashing and the
// authentication gate that guards the Conduit API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client signs up (POST /api/users) or logs in (POST /api/users/login)
//  2. Server verifies the password and issues a signed JWT
//  3. Client sends "Authorization: Bearer <jwt>" on every later request
//  4. Authenticate middleware verifies the token, loads the user, and puts an
//     Identity into the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. All the information needed (userID, expiry) is inside the signed token.
// The signature ensures nobody can tamper with it without the secret key.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"userID","iat":...,"exp":...,"iss":"conduit"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// There is no revocation list. A token stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "conduit"

	// DefaultTokenTTL is used when NewTokenService is given a zero ttl.
	DefaultTokenTTL = 24 * time.Hour
)

// Parse failures. Callers can tell them apart with errors.Is; the HTTP gate
// collapses all of them to 401.
var (
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenSignature = errors.New("auth: token signature invalid")
	ErrTokenExpired   = errors.New("auth: token expired")
)

// Claims is the verified content of a token.
type Claims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 tokens.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. The secret should be at least 32 bytes of random data in
// production, e.g. JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl < 0 {
		return nil, errors.New("auth: token ttl must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for userID, valid from issuedAt until issuedAt+TTL.
// JWT timestamps have second precision, so sub-second parts are dropped.
func (s *TokenService) Issue(userID string, issuedAt time.Time) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Algorithm is HS256 (prevents "alg":"none" and algorithm confusion)
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired at the service clock's "now": a token is still
//     valid at the exp instant and expires strictly after it
//   - Issuer matches "conduit"
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		// jwt treats now == exp as expired; one nanosecond keeps exp inclusive.
		jwt.WithLeeway(time.Nanosecond),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	out := &Claims{UserID: c.Subject, ExpiresAt: c.ExpiresAt.Time}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, nil
}
