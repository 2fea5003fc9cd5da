package server

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
)

const stateIssuer = "portfolio-api/spotify-auth"

// stateSigner issues and checks the OAuth state parameter as a short-lived
// HS256 JWT, so callbacks need no server-side session.
type stateSigner struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// newStateSigner uses a random key when secret is empty; states then only
// verify on the instance that issued them.
func newStateSigner(secret string, ttl time.Duration) (*stateSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate state key: %w", err)
		}
		log.Warn().Msg("OAUTH_STATE_SECRET not set, using a per-process state key")
	}
	return &stateSigner{secret: key, ttl: ttl, nowFunc: time.Now}, nil
}

func (s *stateSigner) Issue() (string, error) {
	now := s.nowFunc()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

func (s *stateSigner) Verify(state string) error {
	if state == "" {
		return fmt.Errorf("missing state: %w", apperrors.ErrInvalidState)
	}

	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInvalidState)
	}
	return nil
}
