package security

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

const (
	Issuer = "userfront"

	// AccessTokenTTL is fixed; callers cannot override it.
	AccessTokenTTL = 2592000 * time.Second
)

type accessClaims struct {
	UserID   int64  `json:"userId"`
	UserUUID string `json:"userUuid"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	key *rsa.PrivateKey
	now func() time.Time
}

func NewTokenIssuer(key *rsa.PrivateKey) *TokenIssuer {
	return &TokenIssuer{key: key, now: time.Now}
}

// WithClock replaces the issuance clock. Used by tests.
func (s *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *TokenIssuer) IssueAccessToken(u domain.User) (string, error) {
	if s.key == nil {
		return "", domain.ErrCredentialSigning(errors.New("signing key not configured"))
	}

	now := s.now()
	claims := accessClaims{
		UserID:   u.ID,
		UserUUID: u.UUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", domain.ErrCredentialSigning(err)
	}
	return signed, nil
}

type TokenVerifier struct {
	key *rsa.PublicKey
	now func() time.Time
}

func NewTokenVerifier(key *rsa.PublicKey) *TokenVerifier {
	return &TokenVerifier{key: key, now: time.Now}
}

func (v *TokenVerifier) WithClock(now func() time.Time) *TokenVerifier {
	if now != nil {
		v.now = now
	}
	return v
}

func (v *TokenVerifier) VerifyAccessToken(token string) (identity.TokenClaims, error) {
	if v.key == nil {
		return identity.TokenClaims{}, domain.ErrTokenInvalid()
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodRS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.TokenClaims{}, domain.ErrTokenExpired()
		}
		return identity.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.UserID <= 0 || claims.UserUUID == "" {
		return identity.TokenClaims{}, domain.ErrTokenInvalid()
	}

	return identity.TokenClaims{
		UserID:   claims.UserID,
		UserUUID: claims.UserUUID,
	}, nil
}
