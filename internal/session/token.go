package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenIssuer  = "docklytask"
	sessionClaim = "session"
)

var ErrInvalidToken = errors.New("session: invalid token")

// Signer issues and verifies HS256 session tokens carrying a Session.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSigner(key []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

// Sign returns a compact token for s. The access token is not embedded.
func (g *Signer) Sign(s Session) (string, error) {
	s.AccessToken = ""
	now := g.now()
	sub := s.User.ID
	if sub == "" {
		sub = s.User.Email
	}
	tok, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(sub).
		IssuedAt(now).
		Expiration(now.Add(g.ttl)).
		Claim(sessionClaim, s).
		Build()
	if err != nil {
		return "", fmt.Errorf("build session token: %w", err)
	}
	b, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, g.key))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return string(b), nil
}

// Verify checks signature, issuer and expiry and returns the embedded Session.
func (g *Signer) Verify(raw string) (Session, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, g.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithClock(jwt.ClockFunc(g.now)),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	v, ok := tok.Get(sessionClaim)
	if !ok {
		return Session{}, fmt.Errorf("%w: no session claim", ErrInvalidToken)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return s, nil
}
